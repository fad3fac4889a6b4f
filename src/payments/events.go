package payments

import (
	"aworld/src/models"
	"aworld/src/types"
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	EVENT_INVOICE_PAID         = "invoice.paid"
	EVENT_INVOICE_CANCELLED    = "invoice.cancelled"
	EVENT_ORDER_STATUS_CHANGED = "order.status_changed"
)

// Event is published after a reconciliation outcome has been committed.
type Event struct {
	ID            uuid.UUID
	Type          string
	Reference     string
	InvoiceNumber string
	Status        string
	Amount        string
	Currency      string
	PaymentID     string
	Source        string
	OccurredAt    time.Time
}

func (e Event) Payload() types.JSONB {
	return types.JSONB{
		"id":             e.ID.String(),
		"type":           e.Type,
		"reference":      e.Reference,
		"invoice_number": e.InvoiceNumber,
		"status":         e.Status,
		"amount":         e.Amount,
		"currency":       e.Currency,
		"payment_id":     e.PaymentID,
		"source":         e.Source,
		"occurred_at":    e.OccurredAt.UTC().Format(time.RFC3339),
	}
}

func invoiceEvent(inv *models.Invoice, source string, at time.Time) Event {
	typ := EVENT_INVOICE_PAID
	if inv.Status == types.INVOICE_CANCELLED {
		typ = EVENT_INVOICE_CANCELLED
	}
	e := Event{
		ID:            uuid.New(),
		Type:          typ,
		Reference:     inv.InvoiceNumber,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        string(inv.Status),
		Amount:        inv.Amount.StringFixed(2),
		Currency:      inv.Currency,
		Source:        source,
		OccurredAt:    at,
	}
	if inv.PaymentID != nil {
		e.PaymentID = *inv.PaymentID
	}
	return e
}

func orderEvent(o *models.Order, at time.Time) Event {
	e := Event{
		ID:         uuid.New(),
		Type:       EVENT_ORDER_STATUS_CHANGED,
		Reference:  o.OrderNumber,
		Status:     string(o.Status),
		Amount:     o.TotalAmount.StringFixed(2),
		Currency:   o.Currency,
		Source:     "order",
		OccurredAt: at,
	}
	if o.Invoice != nil {
		e.InvoiceNumber = o.Invoice.InvoiceNumber
	}
	if o.PaymentID != nil {
		e.PaymentID = *o.PaymentID
	}
	return e
}

// publish sends e and only logs failures; the committed records stay authoritative.
func (s *Service) publish(ctx context.Context, e Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e.Reference, e.Payload()); err != nil {
		log.Printf("[Payments] Error publishing %s for %s via %s: %s\n", e.Type, e.Reference, s.publisher.Name(), err.Error())
	}
}
