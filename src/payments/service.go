package payments

import (
	"aworld/src/config"
	"aworld/src/ledger"
	"aworld/src/lib"
	"aworld/src/models"
	"aworld/src/types"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Gateway initiates remote checkout orders.
type Gateway interface {
	InitiateOrder(ctx context.Context, req lib.NoonOrderRequest) (*lib.NoonOrderResult, error)
}

type Options struct {
	SessionTTL     time.Duration
	RequireUser    bool
	FallbackUserID *uint
	ReturnURL      string
}

func OptionsFromConfig(p config.PaymentsConfig, n config.NoonConfig) Options {
	return Options{
		SessionTTL:     p.SessionTTL,
		RequireUser:    p.RequireUser,
		FallbackUserID: p.FallbackUserID,
		ReturnURL:      n.ReturnURL,
	}
}

type Deps struct {
	DB        *gorm.DB
	Invoices  *ledger.InvoiceLedger
	Orders    *ledger.OrderLedger
	Sessions  SessionStore
	Gateway   Gateway
	Verifier  Verifier
	Publisher lib.Publisher
	Options   Options
	Now       func() time.Time
}

// Service runs the payment reconciliation workflow on top of the ledgers.
type Service struct {
	db        *gorm.DB
	invoices  *ledger.InvoiceLedger
	orders    *ledger.OrderLedger
	sessions  SessionStore
	gateway   Gateway
	verifier  Verifier
	publisher lib.Publisher
	opts      Options
	now       func() time.Time
}

func NewService(d Deps) *Service {
	if d.Invoices == nil {
		d.Invoices = ledger.NewInvoiceLedger(d.DB)
	}
	if d.Orders == nil {
		d.Orders = ledger.NewOrderLedger(d.DB, d.Invoices)
	}
	if d.Sessions == nil {
		d.Sessions = NewMemorySessionStore()
	}
	if d.Verifier == nil {
		d.Verifier = NoopVerifier{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Options.SessionTTL <= 0 {
		d.Options.SessionTTL = config.DEFAULT_SESSION_TTL
	}
	return &Service{
		db:        d.DB,
		invoices:  d.Invoices,
		orders:    d.Orders,
		sessions:  d.Sessions,
		gateway:   d.Gateway,
		verifier:  d.Verifier,
		publisher: d.Publisher,
		opts:      d.Options,
		now:       d.Now,
	}
}

var service *Service

func GetService() *Service {
	return service
}

// SetService Replace the process wide service, mainly for tests
func SetService(s *Service) *Service {
	service = s
	return service
}

func (s *Service) Invoices() *ledger.InvoiceLedger {
	return s.invoices
}

func (s *Service) Orders() *ledger.OrderLedger {
	return s.orders
}

type CheckoutSession struct {
	OrderID        string          `json:"order_id"`
	NoonOrderID    string          `json:"noon_order_id"`
	Status         string          `json:"status"`
	CheckoutURL    string          `json:"checkout_url,omitempty"`
	NextActions    json.RawMessage `json:"next_actions,omitempty"`
	PaymentOptions json.RawMessage `json:"payment_options,omitempty"`
}

func (s *Service) resolveUser(id *uint) (*uint, error) {
	if id != nil {
		return id, nil
	}
	if s.opts.RequireUser {
		return nil, types.NewValidationError("user_id", "required")
	}
	return s.opts.FallbackUserID, nil
}

// checkUser rejects an owner id with no users row. The invoice written at the
// terminal event references it, so a bad id would fail every delivery.
func (s *Service) checkUser(ctx context.Context, id *uint) error {
	if id == nil || s.db == nil {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return types.Internal("check user", err)
	}
	if count == 0 {
		return types.NewValidationError("user_id", "selected user does not exist")
	}
	return nil
}

func (s *Service) returnURL(reference string) string {
	if s.opts.ReturnURL == "" {
		return ""
	}
	return s.opts.ReturnURL + "/payment/success?order_id=" + url.QueryEscape(reference)
}

// CreatePaymentSession initiates a gateway checkout for req.OrderID. The session
// is stored only once the gateway has accepted the order.
func (s *Service) CreatePaymentSession(ctx context.Context, req types.CreatePaymentRequestBody) (*CheckoutSession, error) {
	fields := map[string]string{}
	if req.Amount == nil || req.Amount.LessThan(decimal.RequireFromString("0.01")) {
		fields["amount"] = "must be at least 0.01"
	}
	if !types.IsPaymentCurrency(req.Currency) {
		fields["currency"] = "unsupported currency"
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		fields["order_id"] = "required"
	}
	if req.CustomerEmail == "" {
		fields["customer_email"] = "required"
	}
	if len(fields) > 0 {
		return nil, &types.ValidationError{Fields: fields}
	}
	userID, err := s.resolveUser(req.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, types.ErrGatewayNotConfigured
	}

	taken, err := s.invoices.Exists(ctx, req.OrderID)
	if err != nil {
		return nil, types.Internal("check order reference", err)
	}
	if taken {
		return nil, types.NewValidationError("order_id", "has already been taken")
	}
	live, err := s.sessions.Peek(ctx, req.OrderID)
	if err != nil {
		return nil, types.Internal("read payment session", err)
	}
	if live != nil {
		return nil, &types.ConflictError{Resource: "payment session", Value: req.OrderID}
	}

	res, err := s.gateway.InitiateOrder(ctx, lib.NoonOrderRequest{
		Amount:    *req.Amount,
		Currency:  req.Currency,
		Reference: req.OrderID,
		Name:      req.Description,
		ReturnURL: s.returnURL(req.OrderID),
	})
	if err != nil {
		log.Printf("[Payments] Gateway rejected session for %s: %s\n", req.OrderID, err.Error())
		return nil, err
	}

	session := Session{
		Reference:      req.OrderID,
		UserID:         userID,
		Amount:         *req.Amount,
		Currency:       req.Currency,
		Description:    req.Description,
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		GatewayOrderID: res.OrderID,
		CreatedAt:      s.now(),
	}
	if err := s.sessions.Put(ctx, session, s.opts.SessionTTL); err != nil {
		if errors.Is(err, ErrSessionExists) {
			return nil, &types.ConflictError{Resource: "payment session", Value: req.OrderID, Err: err}
		}
		return nil, types.Internal("store payment session", err)
	}
	log.Printf("[Payments] Session stored for %s (gateway order %s)\n", req.OrderID, res.OrderID)

	return &CheckoutSession{
		OrderID:        req.OrderID,
		NoonOrderID:    res.OrderID,
		Status:         res.Status,
		CheckoutURL:    res.CheckoutURL,
		NextActions:    res.NextActions,
		PaymentOptions: res.PaymentOptions,
	}, nil
}

// materialize turns a consumed session into an invoice with status. created is
// false when an invoice with the reference already existed and was kept as is.
// When the invoice cannot be written the session is put back so a later
// delivery can retry.
func (s *Service) materialize(ctx context.Context, sess *Session, status types.InvoiceStatus, paymentID, source string) (inv *models.Invoice, created bool, err error) {
	now := s.now()
	if paymentID == "" {
		paymentID = sess.GatewayOrderID
	}
	inv = &models.Invoice{
		InvoiceNumber: sess.Reference,
		UserID:        sess.UserID,
		Amount:        sess.Amount,
		Currency:      sess.Currency,
		Status:        status,
		PaymentMethod: string(types.METHOD_NOON),
		IssuedAt:      now,
		DueDate:       now.Add(config.PAYMENT_INVOICE_DUE_IN),
	}
	if paymentID != "" {
		inv.PaymentID = &paymentID
	}
	err = s.invoices.Create(ctx, inv)
	if types.IsConflict(err) {
		log.Printf("[Payments] Invoice %s already exists, keeping it\n", sess.Reference)
		inv, err = s.invoices.FindByNumber(ctx, sess.Reference)
		if err != nil {
			return nil, false, types.Internal("find existing invoice", err)
		}
		return inv, false, nil
	}
	if err != nil {
		log.Printf("[Payments] Error creating invoice for %s: %s\n", sess.Reference, err.Error())
		if rerr := s.sessions.Put(ctx, *sess, sess.TTL); rerr != nil {
			log.Printf("[Payments] Could not restore session %s: %s\n", sess.Reference, rerr.Error())
		}
		return nil, false, types.Internal("create invoice", err)
	}
	log.Printf("[Payments] Invoice %s created as %s from %s\n", inv.InvoiceNumber, inv.Status, source)
	s.publish(ctx, invoiceEvent(inv, source, now))
	return inv, true, nil
}

// PaymentSuccess promotes the session for orderID to a paid invoice. A missing
// session means the outcome was already handled or expired, and nil is returned.
func (s *Service) PaymentSuccess(ctx context.Context, orderID, paymentID string) (*models.Invoice, error) {
	sess, err := s.sessions.Take(ctx, orderID)
	if err != nil {
		return nil, types.Internal("take payment session", err)
	}
	if sess == nil {
		log.Printf("[Payments] No session for %s on success callback, nothing to do\n", orderID)
		return nil, nil
	}
	inv, _, err := s.materialize(ctx, sess, types.INVOICE_PAID, paymentID, "success_callback")
	return inv, err
}

// PaymentCancel cancels the invoice for orderID if one exists. A pending session
// is left alone; the gateway's terminal webhook still decides its outcome.
func (s *Service) PaymentCancel(ctx context.Context, orderID string) (*models.Invoice, error) {
	inv, err := s.invoices.FindByNumber(ctx, orderID)
	if types.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, types.Internal("find invoice", err)
	}
	if inv.Status == types.INVOICE_CANCELLED {
		return inv, nil
	}
	inv, err = s.invoices.UpdateStatus(ctx, inv.ID, types.INVOICE_CANCELLED)
	if err != nil {
		return nil, types.Internal("cancel invoice", err)
	}
	s.publish(ctx, invoiceEvent(inv, "cancel_callback", s.now()))
	return inv, nil
}

// GetPaymentStatus reports the invoice for orderID, or a pending status derived
// from a live session.
func (s *Service) GetPaymentStatus(ctx context.Context, orderID string) (*types.APIResponsePaymentStatus, error) {
	inv, err := s.invoices.FindByNumber(ctx, orderID)
	if err == nil {
		return &types.APIResponsePaymentStatus{
			OrderID:       inv.InvoiceNumber,
			Status:        inv.Status,
			Amount:        inv.Amount,
			Currency:      inv.Currency,
			PaymentMethod: inv.PaymentMethod,
			CreatedAt:     inv.CreatedAt,
			UpdatedAt:     inv.UpdatedAt,
		}, nil
	}
	if !types.IsNotFound(err) {
		return nil, types.Internal("find invoice", err)
	}
	sess, err := s.sessions.Peek(ctx, orderID)
	if err != nil {
		return nil, types.Internal("read payment session", err)
	}
	if sess == nil {
		return nil, &types.NotFoundError{Resource: "invoice", Key: orderID}
	}
	return &types.APIResponsePaymentStatus{
		OrderID:       sess.Reference,
		Status:        types.INVOICE_PENDING,
		Amount:        sess.Amount,
		Currency:      sess.Currency,
		PaymentMethod: string(types.METHOD_NOON),
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.CreatedAt,
	}, nil
}

// SweepOverdue marks every pending invoice past its due date as overdue.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	n, err := s.invoices.MarkOverdue(ctx, s.now())
	if err != nil {
		log.Printf("[Payments] Error marking overdue invoices: %s\n", err.Error())
		return 0, err
	}
	if n > 0 {
		log.Printf("[Payments] Marked %d invoices overdue\n", n)
	}
	return n, nil
}
