package main

import (
	"aworld/src/db"
	"aworld/src/ledger"
	"aworld/src/models"
	"aworld/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func quotationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/quotations", func(ctx *gin.Context) {
			var body types.CreateQuotationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			q := models.Quotation{
				CustomerName:  body.CustomerName,
				CustomerEmail: body.CustomerEmail,
				ValidUntil:    body.ValidUntil,
			}
			for _, it := range body.Items {
				price := decimal.Zero
				if it.UnitPrice != nil {
					price = *it.UnitPrice
				}
				q.Items = append(q.Items, models.QuotationItem{
					ProductName: it.ProductName,
					Description: it.Description,
					Quantity:    it.Quantity,
					UnitPrice:   price,
				})
			}
			if err := ledger.NewQuotationLedger(db.GetDb()).Create(ctx, &q); err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusCreated, "Quotation created successfully", q)
		}).
		GET("/quotations/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			q, err := ledger.NewQuotationLedger(db.GetDb()).FindByID(ctx, params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "", q)
		}).
		PATCH("/quotations/:id/items/:itemId", func(ctx *gin.Context) {
			var params types.QuotationItemURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			var body types.UpdateQuotationItemRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			q, err := ledger.NewQuotationLedger(db.GetDb()).UpdateItem(ctx, params.ID, params.ItemID, ledger.QuotationItemPatch{
				Quantity:    body.Quantity,
				UnitPrice:   body.UnitPrice,
				Description: body.Description,
			})
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "Quotation item updated successfully", q)
		}).
		PATCH("/quotations/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				respondBindError(ctx, err)
				return
			}
			var body types.UpdateQuotationStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				respondBindError(ctx, err)
				return
			}
			q, err := ledger.NewQuotationLedger(db.GetDb()).UpdateStatus(ctx, params.ID, types.QuotationStatus(body.Status))
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondOK(ctx, http.StatusOK, "Quotation status updated successfully", q)
		})
	return g
}
