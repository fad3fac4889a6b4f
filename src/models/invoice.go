package models

import (
	"aworld/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	InvoiceNumber string              `gorm:"type:varchar(255);uniqueIndex;not null" json:"invoice_number"`
	UserID        *uint               `gorm:"index" json:"user_id"`
	RentalID      *uint               `json:"rental_id,omitempty"`
	Amount        decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency      string              `gorm:"type:varchar(3)" json:"currency,omitempty"`
	Status        types.InvoiceStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod string              `gorm:"type:varchar(50)" json:"payment_method"`
	PaymentID     *string             `gorm:"type:varchar(255)" json:"payment_id,omitempty"`
	IssuedAt      time.Time           `json:"issued_at"`
	DueDate       time.Time           `gorm:"index" json:"due_date"`

	types.Timestamps

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// IsOverdue reports whether a pending invoice is past its due date at now.
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == types.INVOICE_PENDING && i.DueDate.Before(now)
}
