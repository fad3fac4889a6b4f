package ledger

import (
	"aworld/src/models"
	"aworld/src/types"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	InvoicePrefix   = "INV"
	OrderPrefix     = "ORD"
	QuotationPrefix = "QUO"

	// maxNumberAttempts bounds regeneration after a unique violation.
	maxNumberAttempts = 5
)

// FormatNumber renders PREFIX-YYYYMM-NNNN.
func FormatNumber(prefix string, at time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, at.Format("200601"), seq)
}

// ParseSequence extracts the trailing numeric sequence of a generated number.
func ParseSequence(number string) (int, bool) {
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx == len(number)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(number[idx+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// numberSource produces the next candidate number for prefix in the month of at.
type numberSource func(tx *gorm.DB, prefix string, at time.Time) (string, error)

// sequencer allocates numbers for one table column. The unique index on the
// column is the source of truth; the sequence row only keeps the high-water mark.
type sequencer struct {
	table  string
	column string
}

func (s sequencer) next(tx *gorm.DB, prefix string, at time.Time) (string, error) {
	period := at.Format("200601")
	pattern := fmt.Sprintf("%s-%s-%%", prefix, period)
	var numbers []string
	err := tx.
		Table(s.table).
		Where(fmt.Sprintf("%s LIKE ?", s.column), pattern).
		Pluck(s.column, &numbers).
		Error
	if err != nil {
		return "", err
	}
	highest := 0
	for _, n := range numbers {
		if seq, ok := ParseSequence(n); ok && seq > highest {
			highest = seq
		}
	}
	var seqRow models.NumberSequence
	err = tx.
		Where(&models.NumberSequence{Prefix: prefix, YearMonth: period}).
		Limit(1).
		Find(&seqRow).
		Error
	if err != nil {
		return "", err
	}
	if seqRow.LastValue > highest {
		highest = seqRow.LastValue
	}
	return FormatNumber(prefix, at, highest+1), nil
}

// commit raises the high-water mark for number's period.
func (s sequencer) commit(tx *gorm.DB, prefix string, at time.Time, number string) error {
	seq, ok := ParseSequence(number)
	if !ok || !strings.HasPrefix(number, fmt.Sprintf("%s-%s-", prefix, at.Format("200601"))) {
		return nil
	}
	row := models.NumberSequence{Prefix: prefix, YearMonth: at.Format("200601"), LastValue: seq}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prefix"}, {Name: "year_month"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_value", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lt{Column: clause.Column{Table: "number_sequences", Name: "last_value"}, Value: seq},
		}},
	}).Create(&row).Error
}

// isDuplicate reports whether err is a unique constraint violation.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// withNumberRetry runs fn until it stops failing with a unique violation or attempts run out.
func withNumberRetry(resource string, fn func(attempt int) error) error {
	var err error
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		err = fn(attempt)
		if !isDuplicate(err) {
			return err
		}
	}
	return &types.ConflictError{Resource: resource, Err: err}
}
