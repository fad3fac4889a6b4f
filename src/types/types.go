package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*a = nil
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Environment string

const (
	Local      Environment = "local"
	Test       Environment = "test"
	Production Environment = "production"
)

type InvoiceStatus string

const (
	INVOICE_PENDING   InvoiceStatus = "pending"
	INVOICE_PAID      InvoiceStatus = "paid"
	INVOICE_CANCELLED InvoiceStatus = "cancelled"
	INVOICE_OVERDUE   InvoiceStatus = "overdue"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case INVOICE_PENDING, INVOICE_PAID, INVOICE_CANCELLED, INVOICE_OVERDUE:
		return true
	}
	return false
}

type OrderStatus string

const (
	ORDER_PENDING    OrderStatus = "pending"
	ORDER_PROCESSING OrderStatus = "processing"
	ORDER_PAID       OrderStatus = "paid"
	ORDER_CANCELLED  OrderStatus = "cancelled"
	ORDER_REFUNDED   OrderStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case ORDER_PENDING, ORDER_PROCESSING, ORDER_PAID, ORDER_CANCELLED, ORDER_REFUNDED:
		return true
	}
	return false
}

// InvoiceStatus is the status a linked invoice takes when its order moves to s.
func (s OrderStatus) InvoiceStatus() InvoiceStatus {
	switch s {
	case ORDER_PAID:
		return INVOICE_PAID
	case ORDER_CANCELLED, ORDER_REFUNDED:
		return INVOICE_CANCELLED
	default:
		return INVOICE_PENDING
	}
}

type PaymentMethod string

const (
	METHOD_CREDIT_CARD   PaymentMethod = "credit_card"
	METHOD_CASH          PaymentMethod = "cash"
	METHOD_BANK_TRANSFER PaymentMethod = "bank_transfer"
	METHOD_PAYPAL        PaymentMethod = "paypal"
	METHOD_NOON          PaymentMethod = "noon"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case METHOD_CREDIT_CARD, METHOD_CASH, METHOD_BANK_TRANSFER, METHOD_PAYPAL, METHOD_NOON:
		return true
	}
	return false
}

type QuotationStatus string

const (
	QUOTATION_DRAFT    QuotationStatus = "draft"
	QUOTATION_SENT     QuotationStatus = "sent"
	QUOTATION_ACCEPTED QuotationStatus = "accepted"
	QUOTATION_REJECTED QuotationStatus = "rejected"
)

// GatewayStatus is an order status as reported by the payment gateway.
type GatewayStatus string

const (
	GATEWAY_CAPTURED   GatewayStatus = "CAPTURED"
	GATEWAY_AUTHORIZED GatewayStatus = "AUTHORIZED"
	GATEWAY_FAILED     GatewayStatus = "FAILED"
	GATEWAY_CANCELLED  GatewayStatus = "CANCELLED"
	GATEWAY_DECLINED   GatewayStatus = "DECLINED"
	GATEWAY_PENDING    GatewayStatus = "PENDING"
	GATEWAY_INITIATED  GatewayStatus = "INITIATED"
)

// ParseGatewayStatus normalizes s and reports whether it is a known status.
func ParseGatewayStatus(s string) (GatewayStatus, bool) {
	gs := GatewayStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch gs {
	case GATEWAY_CAPTURED, GATEWAY_AUTHORIZED, GATEWAY_FAILED, GATEWAY_CANCELLED,
		GATEWAY_DECLINED, GATEWAY_PENDING, GATEWAY_INITIATED:
		return gs, true
	}
	return gs, false
}

func (s GatewayStatus) IsTerminal() bool {
	return s != GATEWAY_PENDING && s != GATEWAY_INITIATED
}

// InvoiceStatus returns the invoice status a terminal gateway status materializes as.
func (s GatewayStatus) InvoiceStatus() InvoiceStatus {
	switch s {
	case GATEWAY_CAPTURED, GATEWAY_AUTHORIZED:
		return INVOICE_PAID
	case GATEWAY_FAILED, GATEWAY_CANCELLED, GATEWAY_DECLINED:
		return INVOICE_CANCELLED
	}
	return INVOICE_PENDING
}

var (
	PaymentCurrencies = []string{"SAR", "USD", "AED", "KWD", "QAR", "BHD", "OMR", "JOD", "EGP"}
	OrderCurrencies   = []string{"SAR", "USD", "EUR"}
)

func IsPaymentCurrency(c string) bool {
	return slices.Contains(PaymentCurrencies, c)
}

func IsOrderCurrency(c string) bool {
	return slices.Contains(OrderCurrencies, c)
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type QuotationItemURIParams struct {
	ID     uint `uri:"id" binding:"required"`
	ItemID uint `uri:"itemId" binding:"required"`
}

type CreatePaymentRequestBody struct {
	UserID        *uint            `json:"user_id"`
	Amount        *decimal.Decimal `json:"amount" binding:"required,gte=0.01"`
	Currency      string           `json:"currency" binding:"required,paymentcurrency"`
	OrderID       string           `json:"order_id" binding:"required,max=255"`
	Description   string           `json:"description" binding:"omitempty,max=255"`
	CustomerEmail string           `json:"customer_email" binding:"required,email"`
	CustomerName  string           `json:"customer_name" binding:"required,max=255"`
	CustomerPhone string           `json:"customer_phone" binding:"omitempty,max=20"`
}

type PaymentCallbackQuery struct {
	OrderID   string `form:"order_id" binding:"required"`
	PaymentID string `form:"payment_id"`
}

type OrderLineItemBody struct {
	Name     string           `json:"name" binding:"required,max=255"`
	Quantity int              `json:"quantity" binding:"required,gte=1"`
	Price    *decimal.Decimal `json:"price" binding:"required,gte=0"`
}

type CreateOrderRequestBody struct {
	CustomerName  string              `json:"customer_name" binding:"required,max=255"`
	CustomerEmail *string             `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone *string             `json:"customer_phone" binding:"omitempty,max=20"`
	UserID        *uint               `json:"user_id"`
	TotalAmount   *decimal.Decimal    `json:"total_amount" binding:"required,gte=0"`
	Currency      string              `json:"currency" binding:"required,ordercurrency"`
	PaymentMethod string              `json:"payment_method" binding:"required,paymentmethod"`
	PaymentID     *string             `json:"payment_id" binding:"omitempty,max=255"`
	Status        string              `json:"status" binding:"required,orderstatus"`
	Items         []OrderLineItemBody `json:"items" binding:"required,min=1,dive"`
	Notes         *string             `json:"notes" binding:"omitempty,max=1000"`
}

type UpdateOrderStatusRequestBody struct {
	Status string `json:"status" binding:"required,orderstatus"`
}

type UpdateInvoiceStatusRequestBody struct {
	Status string `json:"status" binding:"required,invoicestatus"`
}

type OrderQueryFilters struct {
	Search        string `form:"search"`
	Status        string `form:"status" binding:"omitempty,orderstatus"`
	PaymentMethod string `form:"payment_method"`
	Currency      string `form:"currency"`
	Page          int    `form:"page" binding:"omitempty,gte=1"`
}

type InvoiceQueryFilters struct {
	Search        string `form:"search"`
	Status        string `form:"status" binding:"omitempty,invoicestatus"`
	PaymentMethod string `form:"payment_method"`
	Page          int    `form:"page" binding:"omitempty,gte=1"`
}

type QuotationItemBody struct {
	ProductName string           `json:"product_name" binding:"required,max=255"`
	Description string           `json:"description" binding:"omitempty,max=1000"`
	Quantity    int              `json:"quantity" binding:"required,gte=1"`
	UnitPrice   *decimal.Decimal `json:"unit_price" binding:"gte=0"`
}

type CreateQuotationRequestBody struct {
	CustomerName  string              `json:"customer_name" binding:"required,max=255"`
	CustomerEmail *string             `json:"customer_email" binding:"omitempty,email"`
	ValidUntil    *time.Time          `json:"valid_until"`
	Items         []QuotationItemBody `json:"items" binding:"required,min=1,dive"`
}

type UpdateQuotationItemRequestBody struct {
	Quantity    *int             `json:"quantity" binding:"omitempty,gte=1"`
	UnitPrice   *decimal.Decimal `json:"unit_price" binding:"omitempty,gte=0"`
	Description *string          `json:"description" binding:"omitempty,max=1000"`
}

type UpdateQuotationStatusRequestBody struct {
	Status string `json:"status" binding:"required,oneof=draft sent accepted rejected"`
}

type APIResponsePaymentStatus struct {
	OrderID       string          `json:"order_id"`
	Status        InvoiceStatus   `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type APIResponseInvoiceStats struct {
	Total         int64           `json:"total"`
	Paid          int64           `json:"paid"`
	Pending       int64           `json:"pending"`
	Cancelled     int64           `json:"cancelled"`
	Overdue       int64           `json:"overdue"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
}
