package models

import (
	"aworld/src/types"
)

type User struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `gorm:"uniqueIndex" json:"email,omitempty"`
	Role  string `json:"role,omitempty"`

	Invoices []Invoice `gorm:"foreignKey:UserID" json:"invoices,omitempty"`

	types.Timestamps
}
