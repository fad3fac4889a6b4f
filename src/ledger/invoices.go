package ledger

import (
	"aworld/src/models"
	"aworld/src/models/scopes"
	"aworld/src/types"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceLedger owns invoice records and their numbering.
type InvoiceLedger struct {
	db     *gorm.DB
	now    func() time.Time
	number numberSource
	seq    sequencer
}

func NewInvoiceLedger(db *gorm.DB) *InvoiceLedger {
	seq := sequencer{table: "invoices", column: "invoice_number"}
	return &InvoiceLedger{
		db:     db,
		now:    time.Now,
		number: seq.next,
		seq:    seq,
	}
}

type Page[T any] struct {
	Data        []T   `json:"data"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

func newPage[T any](data []T, page int, total int64) Page[T] {
	if page < 1 {
		page = 1
	}
	last := int((total + scopes.PerPage - 1) / scopes.PerPage)
	if last < 1 {
		last = 1
	}
	return Page[T]{Data: data, CurrentPage: page, PerPage: scopes.PerPage, Total: total, LastPage: last}
}

func validateInvoice(inv *models.Invoice) error {
	fields := map[string]string{}
	if inv.Amount.IsNegative() {
		fields["amount"] = "must not be negative"
	}
	if inv.Status == "" {
		inv.Status = types.INVOICE_PENDING
	}
	if !inv.Status.Valid() {
		fields["status"] = "unknown status"
	}
	if len(fields) > 0 {
		return &types.ValidationError{Fields: fields}
	}
	return nil
}

// Create stores inv. A blank InvoiceNumber is filled from the monthly sequence
// and regenerated on collision; a supplied number is never rewritten.
func (l *InvoiceLedger) Create(ctx context.Context, inv *models.Invoice) error {
	return l.CreateWith(ctx, inv, nil)
}

// CreateWith stores inv and then runs after inside the same transaction.
func (l *InvoiceLedger) CreateWith(ctx context.Context, inv *models.Invoice, after func(tx *gorm.DB, inv *models.Invoice) error) error {
	if err := validateInvoice(inv); err != nil {
		return err
	}
	supplied := inv.InvoiceNumber != ""
	run := func(attempt int) error {
		return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := l.insert(tx, inv, supplied); err != nil {
				return err
			}
			if after != nil {
				return after(tx, inv)
			}
			return nil
		})
	}
	if supplied {
		err := run(1)
		if isDuplicate(err) {
			return &types.ConflictError{Resource: "invoice", Value: inv.InvoiceNumber, Err: err}
		}
		return err
	}
	return withNumberRetry("invoice", func(attempt int) error {
		inv.ID = 0
		inv.InvoiceNumber = ""
		err := run(attempt)
		if isDuplicate(err) {
			log.Printf("[InvoiceLedger] Number collision on attempt %d, regenerating\n", attempt)
		}
		return err
	})
}

func (l *InvoiceLedger) insert(tx *gorm.DB, inv *models.Invoice, supplied bool) error {
	now := l.now()
	if inv.IssuedAt.IsZero() {
		inv.IssuedAt = now
	}
	if !supplied {
		number, err := l.number(tx, InvoicePrefix, now)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number
	}
	if err := tx.Omit("User").Create(inv).Error; err != nil {
		return err
	}
	if !supplied {
		return l.seq.commit(tx, InvoicePrefix, now, inv.InvoiceNumber)
	}
	return nil
}

func (l *InvoiceLedger) FindByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var inv models.Invoice
	err := l.db.WithContext(ctx).
		Where("invoice_number = ?", number).
		First(&inv).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Resource: "invoice", Key: number}
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (l *InvoiceLedger) FindByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := l.db.WithContext(ctx).
		Scopes(scopes.WithID(id)).
		Preload("User").
		First(&inv).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Resource: "invoice", Key: strconv.FormatUint(uint64(id), 10)}
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Exists reports whether number is already taken by an invoice, including soft-deleted ones.
func (l *InvoiceLedger) Exists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Unscoped().
		Model(&models.Invoice{}).
		Where("invoice_number = ?", number).
		Count(&count).
		Error
	return count > 0, err
}

// UpdateStatus sets the invoice status. Setting the current status again is a no-op.
// Only a pending invoice past its due date may become overdue.
func (l *InvoiceLedger) UpdateStatus(ctx context.Context, id uint, status types.InvoiceStatus) (*models.Invoice, error) {
	if !status.Valid() {
		return nil, types.NewValidationError("status", "unknown status")
	}
	var inv models.Invoice
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(scopes.WithID(id)).First(&inv).Error; err != nil {
			return err
		}
		if inv.Status == status {
			return nil
		}
		if status == types.INVOICE_OVERDUE && !inv.IsOverdue(l.now()) {
			return types.NewValidationError("status", "only a pending invoice past its due date can be overdue")
		}
		if err := tx.Model(&inv).Update("status", status).Error; err != nil {
			return err
		}
		inv.Status = status
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Resource: "invoice", Key: strconv.FormatUint(uint64(id), 10)}
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkOverdue moves every pending invoice due before now to overdue.
func (l *InvoiceLedger) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := l.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Scopes(scopes.WithPendingStatus).
		Where("due_date < ?", now).
		Update("status", types.INVOICE_OVERDUE)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

type InvoiceFilter struct {
	Search        string
	Status        string
	PaymentMethod string
	Page          int
}

func (l *InvoiceLedger) List(ctx context.Context, f InvoiceFilter) (Page[models.Invoice], error) {
	var (
		invoices []models.Invoice
		total    int64
	)
	filtered := func() *gorm.DB {
		return l.db.WithContext(ctx).
			Model(&models.Invoice{}).
			Scopes(
				scopes.WithStatus(f.Status),
				scopes.WithColumn("payment_method", f.PaymentMethod),
				scopes.Search(f.Search, "invoice_number", "payment_id"),
			)
	}
	if err := filtered().Count(&total).Error; err != nil {
		return Page[models.Invoice]{}, err
	}
	err := filtered().
		Scopes(scopes.Paginate(f.Page)).
		Order("created_at desc").
		Order("id desc").
		Find(&invoices).
		Error
	if err != nil {
		return Page[models.Invoice]{}, err
	}
	return newPage(invoices, f.Page, total), nil
}

func (l *InvoiceLedger) Stats(ctx context.Context, now time.Time) (*types.APIResponseInvoiceStats, error) {
	var rows []struct {
		Status string
		Count  int64
		Amount decimal.NullDecimal
	}
	err := l.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select("status, COUNT(*) AS count, SUM(amount) AS amount").
		Group("status").
		Scan(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("invoice stats: %w", err)
	}
	stats := &types.APIResponseInvoiceStats{TotalAmount: decimal.Zero, PendingAmount: decimal.Zero}
	for _, r := range rows {
		stats.Total += r.Count
		switch types.InvoiceStatus(r.Status) {
		case types.INVOICE_PAID:
			stats.Paid = r.Count
			if r.Amount.Valid {
				stats.TotalAmount = r.Amount.Decimal
			}
		case types.INVOICE_PENDING:
			stats.Pending = r.Count
			if r.Amount.Valid {
				stats.PendingAmount = r.Amount.Decimal
			}
		case types.INVOICE_CANCELLED:
			stats.Cancelled = r.Count
		}
	}
	var overdue int64
	err = l.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("status = ? OR (status = ? AND due_date < ?)", types.INVOICE_OVERDUE, types.INVOICE_PENDING, now).
		Count(&overdue).
		Error
	if err != nil {
		return nil, fmt.Errorf("invoice stats: %w", err)
	}
	stats.Overdue = overdue
	return stats, nil
}
