package models

import (
	"aworld/src/types"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Quotation struct {
	ID              uint                  `gorm:"primarykey" json:"id"`
	QuotationNumber string                `gorm:"type:varchar(255);uniqueIndex;not null" json:"quotation_number"`
	CustomerName    string                `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail   *string               `gorm:"type:varchar(255)" json:"customer_email"`
	Status          types.QuotationStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	ValidUntil      *time.Time            `json:"valid_until"`
	Total           decimal.Decimal       `gorm:"type:numeric(12,2);not null" json:"total"`

	Items []QuotationItem `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	types.Timestamps
}

// Recalculate sums the item totals into Total.
func (q *Quotation) Recalculate() {
	total := decimal.Zero
	for i := range q.Items {
		q.Items[i].Recalculate()
		total = total.Add(q.Items[i].TotalPrice)
	}
	q.Total = total
}

type QuotationItem struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	QuotationID uint            `gorm:"index;not null" json:"quotation_id"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (i *QuotationItem) Recalculate() {
	i.TotalPrice = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *QuotationItem) BeforeSave(tx *gorm.DB) error {
	i.Recalculate()
	return nil
}
