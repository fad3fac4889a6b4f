package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WebhookOutcome string

const (
	WEBHOOK_CREATED_PAID             WebhookOutcome = "created_paid"
	WEBHOOK_CREATED_CANCELLED        WebhookOutcome = "created_cancelled"
	WEBHOOK_IGNORED_PENDING          WebhookOutcome = "ignored_pending"
	WEBHOOK_IGNORED_NO_SESSION       WebhookOutcome = "ignored_no_session"
	WEBHOOK_IGNORED_EXISTING_INVOICE WebhookOutcome = "ignored_existing_invoice"
	WEBHOOK_REJECTED                 WebhookOutcome = "rejected"
	WEBHOOK_FAILED                   WebhookOutcome = "failed"
)

// WebhookEvent is the audit record of one inbound gateway notification.
type WebhookEvent struct {
	ID              uuid.UUID      `gorm:"primarykey;type:uuid" json:"id"`
	Provider        string         `gorm:"type:varchar(20);not null;index" json:"provider"`
	Reference       string         `gorm:"type:varchar(255);index" json:"reference"`
	GatewayOrderID  string         `gorm:"type:varchar(255)" json:"gateway_order_id"`
	GatewayStatus   string         `gorm:"type:varchar(50)" json:"gateway_status"`
	PayloadJSON     string         `gorm:"type:text;not null" json:"payload_json"`
	SignatureValid  bool           `gorm:"default:false" json:"signature_valid"`
	Outcome         WebhookOutcome `gorm:"type:varchar(50);index" json:"outcome"`
	ProcessingError string         `gorm:"type:text" json:"processing_error,omitempty"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (w *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
