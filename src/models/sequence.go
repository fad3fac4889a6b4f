package models

import "time"

// NumberSequence remembers the last sequence issued per prefix and month, so
// numbers of hard-deleted rows are never handed out again.
type NumberSequence struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Prefix    string    `gorm:"type:varchar(10);not null;uniqueIndex:ux_number_sequences_prefix_period,priority:1" json:"prefix"`
	YearMonth string    `gorm:"type:varchar(6);not null;uniqueIndex:ux_number_sequences_prefix_period,priority:2" json:"year_month"`
	LastValue int       `gorm:"not null;default:0" json:"last_value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
