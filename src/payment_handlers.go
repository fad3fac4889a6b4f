package main

import (
	"aworld/src/payments"
	"aworld/src/types"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/payment/create", func(ctx *gin.Context) {
			var body types.CreatePaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			res, err := payments.GetService().CreatePaymentSession(ctx, body)
			if err != nil {
				var gerr *types.GatewayError
				if errors.As(err, &gerr) {
					ctx.JSON(gerr.StatusCode, gin.H{
						"success": false,
						"message": "Failed to create payment session",
						"error":   gatewayBody(gerr.Body),
					})
					return
				}
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusCreated, "Payment session created successfully", res)
		}).
		GET("/payment/status", func(ctx *gin.Context) {
			var query types.PaymentCallbackQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				respondBindError(ctx, err)
				return
			}
			status, err := payments.GetService().GetPaymentStatus(ctx, query.OrderID)
			if types.IsNotFound(err) {
				ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Invoice not found", "error": "Invoice not found"})
				return
			}
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "", status)
		}).
		GET("/payment/success", func(ctx *gin.Context) {
			orderID := ctx.Query("order_id")
			paymentID := ctx.Query("payment_id")
			data := gin.H{"order_id": orderID, "payment_id": paymentID}
			if orderID == "" {
				respondOK(ctx, http.StatusOK, "Payment completed successfully", data)
				return
			}
			inv, err := payments.GetService().PaymentSuccess(ctx, orderID, paymentID)
			if err != nil {
				log.Printf("[Payment] Success callback for %s could not be applied: %s\n", orderID, err.Error())
				ctx.JSON(http.StatusOK, gin.H{
					"success": false,
					"message": "Payment received, confirmation is pending",
					"data":    data,
				})
				return
			}
			if inv != nil {
				data["invoice"] = inv
			}
			respondOK(ctx, http.StatusOK, "Payment completed successfully", data)
		}).
		GET("/payment/cancel", func(ctx *gin.Context) {
			orderID := ctx.Query("order_id")
			if orderID != "" {
				if _, err := payments.GetService().PaymentCancel(ctx, orderID); err != nil {
					log.Printf("[Payment] Cancel callback for %s could not be applied: %s\n", orderID, err.Error())
				}
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success": false,
				"message": "Payment was cancelled",
				"data":    gin.H{"order_id": orderID},
			})
		})
	return g
}

func paymentWebhookRoute(g *gin.RouterGroup) *gin.RouterGroup {
	g.POST("/payment/webhook", func(ctx *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Webhook] Panic while processing webhook: %v\n", r)
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Webhook processing failed"})
			}
		}()
		raw, err := ctx.GetRawData()
		if err != nil {
			respondError(ctx, types.Internal("read webhook body", err))
			return
		}
		res, err := payments.GetService().HandleWebhook(ctx, raw, ctx.GetHeader(payments.SignatureHeader))
		if errors.Is(err, types.ErrInvalidSignature) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid signature"})
			return
		}
		if err != nil {
			log.Printf("[Webhook] Processing failed: %s\n", err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Webhook processing failed"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"success": true, "outcome": fmt.Sprint(res.Outcome)})
	})
	return g
}
