package main

import (
	"aworld/src/types"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func respondOK(ctx *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	ctx.JSON(status, body)
}

// respondBindError reports request binding failures. Rule violations become a
// 422 with one entry per field; anything else is a malformed request.
func respondBindError(ctx *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := map[string]string{}
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"message": "Validation failed",
			"error":   "Validation failed",
			"errors":  fields,
		})
		return
	}
	ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Malformed request", "error": err.Error()})
}

// gatewayBody returns the gateway's response as JSON when it is JSON.
func gatewayBody(raw string) any {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	return raw
}

func respondError(ctx *gin.Context, err error) {
	var (
		verr *types.ValidationError
		nf   *types.NotFoundError
		ce   *types.ConflictError
		gerr *types.GatewayError
	)
	switch {
	case errors.As(err, &verr):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"message": "Validation failed",
			"error":   err.Error(),
			"errors":  verr.Fields,
		})
	case errors.As(err, &nf):
		ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error(), "error": err.Error()})
	case errors.As(err, &ce):
		ctx.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error(), "error": err.Error()})
	case errors.As(err, &gerr):
		ctx.JSON(gerr.StatusCode, gin.H{"success": false, "message": "Payment gateway error", "error": gatewayBody(gerr.Body)})
	case errors.Is(err, types.ErrGatewayNotConfigured):
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error(), "error": err.Error()})
	default:
		log.Printf("[API] %s %s failed: %s\n", ctx.Request.Method, ctx.Request.URL.Path, err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error", "error": "Internal server error"})
	}
}
