package main

import (
	"aworld/src/ledger"
	"aworld/src/payments"
	"aworld/src/types"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func invoiceHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/invoices", func(ctx *gin.Context) {
			var query types.InvoiceQueryFilters
			if err := ctx.ShouldBindQuery(&query); err != nil {
				respondBindError(ctx, err)
				return
			}
			page, err := payments.GetService().Invoices().List(ctx, ledger.InvoiceFilter{
				Search:        query.Search,
				Status:        query.Status,
				PaymentMethod: query.PaymentMethod,
				Page:          query.Page,
			})
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "", page)
		}).
		GET("/invoices/stats", func(ctx *gin.Context) {
			stats, err := payments.GetService().Invoices().Stats(ctx, time.Now())
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "", stats)
		}).
		PATCH("/invoices/update-overdue", func(ctx *gin.Context) {
			n, err := payments.GetService().SweepOverdue(ctx)
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "Overdue invoices updated", gin.H{"updated": n})
		}).
		GET("/invoices/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			inv, err := payments.GetService().Invoices().FindByID(ctx, params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "", inv)
		}).
		PATCH("/invoices/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			var body types.UpdateInvoiceStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			inv, err := payments.GetService().Invoices().UpdateStatus(ctx, params.ID, types.InvoiceStatus(body.Status))
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "Invoice status updated successfully", inv)
		})
	return g
}
