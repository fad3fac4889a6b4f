package ledger

import (
	"aworld/src/models"
	"aworld/src/models/scopes"
	"aworld/src/types"
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// OrderLedger owns order records and links them to invoices.
type OrderLedger struct {
	db       *gorm.DB
	invoices *InvoiceLedger
	now      func() time.Time
	number   numberSource
	seq      sequencer
}

func NewOrderLedger(db *gorm.DB, invoices *InvoiceLedger) *OrderLedger {
	if invoices == nil {
		invoices = NewInvoiceLedger(db)
	}
	seq := sequencer{table: "orders", column: "order_number"}
	return &OrderLedger{
		db:       db,
		invoices: invoices,
		now:      time.Now,
		number:   seq.next,
		seq:      seq,
	}
}

func orderNotFound(id uint) error {
	return &types.NotFoundError{Resource: "order", Key: strconv.FormatUint(uint64(id), 10)}
}

func validateOrder(o *models.Order) error {
	fields := map[string]string{}
	if o.CustomerName == "" {
		fields["customer_name"] = "required"
	}
	if o.TotalAmount.IsNegative() {
		fields["total_amount"] = "must not be negative"
	}
	if !types.IsOrderCurrency(o.Currency) {
		fields["currency"] = "unsupported currency"
	}
	if o.Status == "" {
		o.Status = types.ORDER_PENDING
	}
	if !o.Status.Valid() {
		fields["status"] = "unknown status"
	}
	if len(o.Items) == 0 {
		fields["items"] = "at least one item is required"
	}
	for _, item := range o.Items {
		if item.Quantity < 1 || item.UnitPrice.IsNegative() || item.Name == "" {
			fields["items"] = "every item needs a name, a quantity of at least 1 and a non-negative price"
			break
		}
	}
	if len(fields) > 0 {
		return &types.ValidationError{Fields: fields}
	}
	return nil
}

func (l *OrderLedger) Create(ctx context.Context, o *models.Order) error {
	return l.Place(ctx, o, nil)
}

// Place stores o and, when inv is given, creates inv first and links it to o
// within the same transaction. Both numbers are generated from their own
// monthly sequences.
func (l *OrderLedger) Place(ctx context.Context, o *models.Order, inv *models.Invoice) error {
	if err := validateOrder(o); err != nil {
		return err
	}
	if inv != nil {
		if err := validateInvoice(inv); err != nil {
			return err
		}
	}
	if o.UserID != nil {
		var count int64
		if err := l.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", *o.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return types.NewValidationError("user_id", "selected user does not exist")
		}
	}
	return withNumberRetry("order", func(attempt int) error {
		o.ID = 0
		o.OrderNumber = ""
		o.InvoiceID = nil
		if inv != nil {
			inv.ID = 0
			inv.InvoiceNumber = ""
		}
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if inv != nil {
				if err := l.invoices.insert(tx, inv, false); err != nil {
					return err
				}
				o.InvoiceID = &inv.ID
			}
			now := l.now()
			number, err := l.number(tx, OrderPrefix, now)
			if err != nil {
				return err
			}
			o.OrderNumber = number
			if err := tx.Omit("Invoice", "User").Create(o).Error; err != nil {
				return err
			}
			return l.seq.commit(tx, OrderPrefix, now, o.OrderNumber)
		})
		if isDuplicate(err) {
			log.Printf("[OrderLedger] Number collision on attempt %d, regenerating\n", attempt)
		}
		if err == nil && inv != nil {
			o.Invoice = inv
		}
		return err
	})
}

func (l *OrderLedger) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := l.db.WithContext(ctx).
		Scopes(scopes.WithID(id)).
		Preload("Invoice").
		Preload("User").
		First(&o).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateStatus moves the order to status and cascades the mapped status to its invoice.
func (l *OrderLedger) UpdateStatus(ctx context.Context, id uint, status types.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, types.NewValidationError("status", "unknown status")
	}
	var o models.Order
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(scopes.WithID(id)).First(&o).Error; err != nil {
			return err
		}
		if o.Status != status {
			if err := tx.Model(&models.Order{}).Scopes(scopes.WithID(o.ID)).Update("status", status).Error; err != nil {
				return err
			}
			o.Status = status
		}
		if o.InvoiceID == nil {
			return nil
		}
		invoiceStatus := status.InvoiceStatus()
		err := tx.
			Model(&models.Invoice{}).
			Scopes(scopes.WithID(*o.InvoiceID)).
			Where("status <> ?", invoiceStatus).
			Update("status", invoiceStatus).
			Error
		if err != nil {
			return err
		}
		var inv models.Invoice
		if err := tx.Scopes(scopes.WithID(*o.InvoiceID)).First(&inv).Error; err != nil {
			return err
		}
		o.Invoice = &inv
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Delete removes the order row permanently. The linked invoice is kept.
func (l *OrderLedger) Delete(ctx context.Context, id uint) error {
	res := l.db.WithContext(ctx).
		Unscoped().
		Scopes(scopes.WithID(id)).
		Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return orderNotFound(id)
	}
	return nil
}

type OrderFilter struct {
	Search        string
	Status        string
	PaymentMethod string
	Currency      string
	Page          int
}

func (l *OrderLedger) List(ctx context.Context, f OrderFilter) (Page[models.Order], error) {
	var (
		orders []models.Order
		total  int64
	)
	filtered := func() *gorm.DB {
		return l.db.WithContext(ctx).
			Model(&models.Order{}).
			Scopes(
				scopes.WithStatus(f.Status),
				scopes.WithColumn("payment_method", f.PaymentMethod),
				scopes.WithColumn("currency", f.Currency),
				scopes.Search(f.Search, "order_number", "customer_name", "payment_id"),
			)
	}
	if err := filtered().Count(&total).Error; err != nil {
		return Page[models.Order]{}, err
	}
	err := filtered().
		Preload("Invoice").
		Scopes(scopes.Paginate(f.Page)).
		Order("created_at desc").
		Order("id desc").
		Find(&orders).
		Error
	if err != nil {
		return Page[models.Order]{}, err
	}
	return newPage(orders, f.Page, total), nil
}
