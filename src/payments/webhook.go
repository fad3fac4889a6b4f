package payments

import (
	"aworld/src/models"
	"aworld/src/types"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/tidwall/gjson"
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

// Envelope is the validated subset of a gateway notification.
type Envelope struct {
	Reference      string
	Status         types.GatewayStatus
	GatewayOrderID string
}

// UnknownStatusError is returned for a payload whose status is not recognized.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown gateway status %q", e.Status)
}

// firstString returns the first non-empty value among paths.
func firstString(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := doc.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// ParseEnvelope reads the nested order object, falling back to the flat
// orderReference/orderStatus/orderId fields some notifications use.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrMalformedPayload
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, ErrMalformedPayload
	}
	env := &Envelope{
		Reference:      firstString(doc, "order.reference", "orderReference"),
		GatewayOrderID: firstString(doc, "order.id", "orderId"),
	}
	rawStatus := firstString(doc, "order.status", "orderStatus")
	if env.Reference == "" || rawStatus == "" {
		return nil, fmt.Errorf("%w: reference and status are required", ErrMalformedPayload)
	}
	status, ok := types.ParseGatewayStatus(rawStatus)
	if !ok {
		return env, &UnknownStatusError{Status: rawStatus}
	}
	env.Status = status
	return env, nil
}

type WebhookResult struct {
	Outcome   models.WebhookOutcome
	Reference string
	Invoice   *models.Invoice
}

func (s *Service) audit(ctx context.Context, ev *models.WebhookEvent) {
	if s.db == nil {
		return
	}
	now := s.now()
	ev.ProcessedAt = &now
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		log.Printf("[Webhook] Error saving audit record for %s: %s\n", ev.Reference, err.Error())
	}
}

// HandleWebhook applies a gateway notification. Unrecognized payloads and
// references without a session are acknowledged without side effects; only
// an invalid signature or a failure to persist the outcome returns an error.
func (s *Service) HandleWebhook(ctx context.Context, raw []byte, signature string) (*WebhookResult, error) {
	log.Printf("[Webhook] Noon payload received: %s\n", string(raw))
	ev := &models.WebhookEvent{Provider: "noon", PayloadJSON: string(raw)}

	if err := s.verifier.Verify(raw, signature); err != nil {
		ev.Outcome = models.WEBHOOK_REJECTED
		ev.ProcessingError = err.Error()
		s.audit(ctx, ev)
		return &WebhookResult{Outcome: ev.Outcome}, types.ErrInvalidSignature
	}
	ev.SignatureValid = true

	env, err := ParseEnvelope(raw)
	if env != nil {
		ev.Reference = env.Reference
		ev.GatewayOrderID = env.GatewayOrderID
	}
	if err != nil {
		var unknown *UnknownStatusError
		if errors.As(err, &unknown) {
			ev.GatewayStatus = unknown.Status
		}
		log.Printf("[Webhook] Ignoring payload: %s\n", err.Error())
		ev.Outcome = models.WEBHOOK_REJECTED
		ev.ProcessingError = err.Error()
		s.audit(ctx, ev)
		return &WebhookResult{Outcome: ev.Outcome, Reference: ev.Reference}, nil
	}
	ev.GatewayStatus = string(env.Status)
	result := &WebhookResult{Reference: env.Reference}

	if !env.Status.IsTerminal() {
		sess, err := s.sessions.Peek(ctx, env.Reference)
		if err != nil {
			return s.failWebhook(ctx, ev, types.Internal("read payment session", err))
		}
		ev.Outcome = models.WEBHOOK_IGNORED_PENDING
		if sess == nil {
			ev.Outcome = models.WEBHOOK_IGNORED_NO_SESSION
		}
		log.Printf("[Webhook] %s is %s, waiting for a terminal status\n", env.Reference, env.Status)
		s.audit(ctx, ev)
		result.Outcome = ev.Outcome
		return result, nil
	}

	sess, err := s.sessions.Take(ctx, env.Reference)
	if err != nil {
		return s.failWebhook(ctx, ev, types.Internal("take payment session", err))
	}
	if sess == nil {
		log.Printf("[Webhook] No session for %s, already processed or unknown\n", env.Reference)
		ev.Outcome = models.WEBHOOK_IGNORED_NO_SESSION
		s.audit(ctx, ev)
		result.Outcome = ev.Outcome
		return result, nil
	}

	inv, created, err := s.materialize(ctx, sess, env.Status.InvoiceStatus(), env.GatewayOrderID, "webhook")
	if err != nil {
		return s.failWebhook(ctx, ev, err)
	}
	switch {
	case !created:
		ev.Outcome = models.WEBHOOK_IGNORED_EXISTING_INVOICE
	case inv.Status == types.INVOICE_CANCELLED:
		ev.Outcome = models.WEBHOOK_CREATED_CANCELLED
	default:
		ev.Outcome = models.WEBHOOK_CREATED_PAID
	}
	s.audit(ctx, ev)
	result.Outcome = ev.Outcome
	result.Invoice = inv
	return result, nil
}

func (s *Service) failWebhook(ctx context.Context, ev *models.WebhookEvent, err error) (*WebhookResult, error) {
	log.Printf("[Webhook] Processing error for %s: %s payload=%s\n", ev.Reference, err.Error(), ev.PayloadJSON)
	ev.Outcome = models.WEBHOOK_FAILED
	ev.ProcessingError = err.Error()
	s.audit(ctx, ev)
	return &WebhookResult{Outcome: ev.Outcome, Reference: ev.Reference}, err
}
