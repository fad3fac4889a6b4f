package ledger

import (
	"aworld/src/models"
	"aworld/src/models/scopes"
	"aworld/src/types"
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type QuotationLedger struct {
	db     *gorm.DB
	now    func() time.Time
	number numberSource
	seq    sequencer
}

func NewQuotationLedger(db *gorm.DB) *QuotationLedger {
	seq := sequencer{table: "quotations", column: "quotation_number"}
	return &QuotationLedger{db: db, now: time.Now, number: seq.next, seq: seq}
}

func quotationNotFound(id uint) error {
	return &types.NotFoundError{Resource: "quotation", Key: strconv.FormatUint(uint64(id), 10)}
}

func (l *QuotationLedger) Create(ctx context.Context, q *models.Quotation) error {
	if len(q.Items) == 0 {
		return types.NewValidationError("items", "at least one item is required")
	}
	if q.Status == "" {
		q.Status = types.QUOTATION_DRAFT
	}
	q.Recalculate()
	return withNumberRetry("quotation", func(attempt int) error {
		q.ID = 0
		for i := range q.Items {
			q.Items[i].ID = 0
			q.Items[i].QuotationID = 0
		}
		return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := l.now()
			number, err := l.number(tx, QuotationPrefix, now)
			if err != nil {
				return err
			}
			q.QuotationNumber = number
			if err := tx.Create(q).Error; err != nil {
				return err
			}
			return l.seq.commit(tx, QuotationPrefix, now, q.QuotationNumber)
		})
	})
}

func (l *QuotationLedger) FindByID(ctx context.Context, id uint) (*models.Quotation, error) {
	var q models.Quotation
	err := l.db.WithContext(ctx).
		Scopes(scopes.WithID(id)).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&q).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, quotationNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

type QuotationItemPatch struct {
	Quantity    *int
	UnitPrice   *decimal.Decimal
	Description *string
}

// UpdateItem applies patch to one item; its total and the quotation total are recomputed.
func (l *QuotationLedger) UpdateItem(ctx context.Context, quotationID, itemID uint, patch QuotationItemPatch) (*models.Quotation, error) {
	if patch.Quantity != nil && *patch.Quantity < 1 {
		return nil, types.NewValidationError("quantity", "must be at least 1")
	}
	if patch.UnitPrice != nil && patch.UnitPrice.IsNegative() {
		return nil, types.NewValidationError("unit_price", "must not be negative")
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.QuotationItem
		err := tx.
			Where("id = ? AND quotation_id = ?", itemID, quotationID).
			First(&item).
			Error
		if err != nil {
			return err
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if patch.UnitPrice != nil {
			item.UnitPrice = *patch.UnitPrice
		}
		if patch.Description != nil {
			item.Description = *patch.Description
		}
		if err := tx.Save(&item).Error; err != nil {
			return err
		}
		var items []models.QuotationItem
		if err := tx.Where("quotation_id = ?", quotationID).Find(&items).Error; err != nil {
			return err
		}
		total := decimal.Zero
		for _, it := range items {
			total = total.Add(it.TotalPrice)
		}
		return tx.Model(&models.Quotation{}).Scopes(scopes.WithID(quotationID)).Update("total", total).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Resource: "quotation item", Key: strconv.FormatUint(uint64(itemID), 10)}
	}
	if err != nil {
		return nil, err
	}
	return l.FindByID(ctx, quotationID)
}

func (l *QuotationLedger) UpdateStatus(ctx context.Context, id uint, status types.QuotationStatus) (*models.Quotation, error) {
	res := l.db.WithContext(ctx).
		Model(&models.Quotation{}).
		Scopes(scopes.WithID(id)).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, quotationNotFound(id)
	}
	return l.FindByID(ctx, id)
}
