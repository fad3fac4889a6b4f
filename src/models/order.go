package models

import (
	"aworld/src/types"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LineItem struct {
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (li *LineItem) Recalculate() {
	li.TotalPrice = li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID            uint                          `gorm:"primarykey" json:"id"`
	OrderNumber   string                        `gorm:"type:varchar(255);uniqueIndex;not null" json:"order_number"`
	CustomerName  string                        `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail *string                       `gorm:"type:varchar(255)" json:"customer_email"`
	CustomerPhone *string                       `gorm:"type:varchar(20)" json:"customer_phone"`
	UserID        *uint                         `gorm:"index" json:"user_id"`
	InvoiceID     *uint                         `gorm:"index" json:"invoice_id"`
	TotalAmount   decimal.Decimal               `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency      string                        `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentMethod types.PaymentMethod           `gorm:"type:varchar(50);not null" json:"payment_method"`
	PaymentID     *string                       `gorm:"type:varchar(255)" json:"payment_id"`
	Status        types.OrderStatus             `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Items         datatypes.JSONSlice[LineItem] `json:"items"`
	Notes         *string                       `gorm:"type:text" json:"notes"`

	types.Timestamps

	Invoice *Invoice `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// BeforeSave keeps every line item's total in step with its factors.
func (o *Order) BeforeSave(tx *gorm.DB) error {
	for i := range o.Items {
		o.Items[i].Recalculate()
	}
	return nil
}
