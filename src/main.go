package main

import (
	"aworld/src/boot"
	"aworld/src/config"
	"aworld/src/middlewares"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	apiPrefix string = "/api/v1"
)

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		if config.EnvBool("MAINTENANCE_MODE", false) {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": err.Error()})
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func corsMiddleware(apiEnv string) gin.HandlerFunc {
	if apiEnv == "local" {
		return cors.Default()
	}
	appHost := os.Getenv("APP_HOST")
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
	cc.AllowOriginFunc = func(origin string) bool {
		if appHost == "" {
			return false
		}
		match, _ := regexp.MatchString(appHost, origin)
		log.Printf("Origin matches %s: %v\n", origin, match)
		return match
	}
	cc.AllowCredentials = true
	cc.AllowAllOrigins = false
	return cors.New(cc)
}

// registerRoutes mounts every API route group on router.
func registerRoutes(router *gin.Engine) {
	apiv1 := apiv1Group(router)
	paymentWebhookRoute(apiv1)
	paymentHandlers(apiv1)
	orderHandlers(apiv1)
	invoiceHandlers(apiv1)
	quotationHandlers(apiv1)
}

func initLogger() {
	cwd, _ := os.Getwd()
	logsDir := path.Join(cwd, "logs")
	serverLogs := path.Join(logsDir, "server.log")
	apiLogs := path.Join(logsDir, "api.log")
	gin.ForceConsoleColor()

	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		log.Printf("Could not create logs directory: %s\n", err.Error())
		return
	}
	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(io.MultiWriter(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}, os.Stdout))
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "" || apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("No .env file loaded: %s\n", err.Error())
		}
	}
	apiEnv = config.Environment()
	initLogger()

	d := boot.InitDb()
	svc := boot.InitServices(d)
	boot.InitScheduler(svc)
	defer boot.StopScheduler()
	go boot.InitBroker()

	registerValidators()

	router := setupRouter()
	router.Use(corsMiddleware(apiEnv))
	router = maintenanceModeMiddleware(router)
	registerRoutes(router)

	if err := router.Run(":" + config.Port()); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
