package boot

import (
	"aworld/src/config"
	"aworld/src/db"
	"aworld/src/lib"
	"aworld/src/payments"
	"aworld/src/types"
	"context"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	d := db.GetDb()
	if err := db.Migrate(d); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	return d
}

// InitSessionStore uses Redis when it answers a ping. Outside production the
// in-process store is used as a fallback.
func InitSessionStore(ctx context.Context) payments.SessionStore {
	if lib.PingRedis(ctx) {
		log.Println("[Boot] Payment sessions stored in Redis")
		return payments.NewRedisSessionStore(lib.GetRedisClient())
	}
	if config.Environment() == string(types.Production) {
		log.Fatalln("[Boot] Redis is required for payment sessions in production")
	}
	log.Println("[Boot] Redis unavailable, payment sessions kept in memory")
	return payments.NewMemorySessionStore()
}

// resolveNoonConfig fills the API key from Secrets Manager when only its id is configured.
func resolveNoonConfig(ctx context.Context) config.NoonConfig {
	cfg := config.GetNoonConfig()
	if cfg.APIKey != "" || cfg.APIKeySecretID == "" {
		return cfg
	}
	key, err := lib.GetSecretString(ctx, cfg.APIKeySecretID)
	if err != nil {
		log.Printf("[Boot] Could not load Noon API key from %s: %s\n", cfg.APIKeySecretID, err.Error())
		return cfg
	}
	cfg.APIKey = key
	return cfg
}

func InitServices(d *gorm.DB) *payments.Service {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	noonCfg := resolveNoonConfig(ctx)
	if !noonCfg.Complete() {
		log.Println("[Boot] Noon credentials incomplete, payment sessions will be refused")
	}
	if !noonCfg.VerifyWebhooks {
		log.Println("[Boot] SECURITY: webhook signature verification is disabled (NOON_WEBHOOK_VERIFY)")
	}
	payCfg := config.GetPaymentsConfig()
	publisher := lib.NewPublisher(config.Environment(), payCfg.EventsQueue)
	log.Printf("[Boot] Payment events published via %s\n", publisher.Name())

	svc := payments.NewService(payments.Deps{
		DB:        d,
		Sessions:  InitSessionStore(ctx),
		Gateway:   lib.NewNoonClient(lib.NoonClientFromConfig(noonCfg, nil)),
		Verifier:  payments.NewVerifier(noonCfg),
		Publisher: publisher,
		Options:   payments.OptionsFromConfig(payCfg, noonCfg),
	})
	return payments.SetService(svc)
}

func InitBroker() {
	if config.Environment() != string(types.Local) || os.Getenv("KAFKA_BROKER") == "" {
		return
	}
	queue := config.GetPaymentsConfig().EventsQueue
	if _, err := lib.KafkaCreateTopics(context.Background(), queue); err != nil {
		log.Printf("[Boot] Could not create topic %s: %s\n", queue, err.Error())
	}
}

// InitScheduler registers the overdue sweep and starts the scheduler.
func InitScheduler(svc *payments.Service) {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	interval := config.GetPaymentsConfig().SweepInterval
	_, err = lib.CreateCronJob("mark-overdue-invoices", func() {
		svc.SweepOverdue(context.Background())
	}, interval)
	if err != nil {
		log.Printf("Error scheduling overdue sweep: %s\n", err.Error())
		return
	}
	log.Println("Jobs in queue:", len(sched.Jobs()))
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
	}
}
