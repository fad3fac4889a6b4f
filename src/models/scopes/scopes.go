package scopes

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const PerPage = 15

func WithID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func WithPendingStatus(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", "pending")
}

// WithStatus filters on status when s is non-empty.
func WithStatus(s string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if s == "" {
			return db
		}
		return db.Where("status = ?", s)
	}
}

func WithColumn(column, value string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if value == "" {
			return db
		}
		return db.Where(fmt.Sprintf("%s = ?", column), value)
	}
}

// Search matches term as a substring of any of columns.
func Search(term string, columns ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(columns) == 0 {
			return db
		}
		like := "%" + term + "%"
		conds := make([]string, 0, len(columns))
		args := make([]any, 0, len(columns))
		for _, c := range columns {
			conds = append(conds, fmt.Sprintf("%s LIKE ?", c))
			args = append(args, like)
		}
		return db.Where(strings.Join(conds, " OR "), args...)
	}
}

func Paginate(page int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * PerPage).Limit(PerPage)
	}
}
