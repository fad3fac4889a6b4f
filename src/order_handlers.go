package main

import (
	"aworld/src/ledger"
	"aworld/src/payments"
	"aworld/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func orderHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/orders", func(ctx *gin.Context) {
			var body types.CreateOrderRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			order, err := payments.GetService().PlaceOrder(ctx, body)
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusCreated, "Order created successfully", order)
		}).
		GET("/orders", func(ctx *gin.Context) {
			var query types.OrderQueryFilters
			if err := ctx.ShouldBindQuery(&query); err != nil {
				respondBindError(ctx, err)
				return
			}
			page, err := payments.GetService().Orders().List(ctx, ledger.OrderFilter{
				Search:        query.Search,
				Status:        query.Status,
				PaymentMethod: query.PaymentMethod,
				Currency:      query.Currency,
				Page:          query.Page,
			})
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "", page)
		}).
		GET("/orders/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			order, err := payments.GetService().Orders().FindByID(ctx, params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "", order)
		}).
		PATCH("/orders/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			var body types.UpdateOrderStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			order, err := payments.GetService().UpdateOrderStatus(ctx, params.ID, types.OrderStatus(body.Status))
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "Order status updated successfully", order)
		}).
		DELETE("/orders/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			if err := payments.GetService().Orders().Delete(ctx, params.ID); err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "Order deleted successfully", nil)
		})
	return g
}
