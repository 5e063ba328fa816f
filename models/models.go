package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex"`
	Hash     string
	Cash     float64
}

// Transaction is an append-only trade record. Qty and Price are signed:
// positive for buys, negative for sells. Price is the total for the trade,
// not per share.
type Transaction struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	Stock     string `gorm:"index"`
	Qty       float64
	Price     float64
	Timestamp time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}
