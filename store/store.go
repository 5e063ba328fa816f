// Package store owns all persistence for users and trades.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"trade-simulator/apperr"
	"trade-simulator/models"
)

// StartingCash is credited to every new account.
const StartingCash = 10000

// Positions whose aggregated quantity falls at or below epsilon are treated
// as closed, so floating-point dust never shows up as a holding.
const epsilon = 0.01

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Holding is a user's net position in one symbol, aggregated over all of
// their transactions.
type Holding struct {
	Stock string
	Qty   float64
}

func (s *Store) CreateUser(ctx context.Context, username, hash string) (*models.User, error) {
	user := models.User{Username: username, Hash: hash, Cash: StartingCash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("username already exists")
		}
		return nil, err
	}
	return &user, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func (s *Store) UserByName(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no such user")
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no such user")
		}
		return nil, err
	}
	return &user, nil
}

// Buy debits cash and appends a positive transaction. The balance check,
// debit and insert run in one database transaction, so concurrent buys
// cannot drive the balance negative.
func (s *Store) Buy(ctx context.Context, userID uint, symbol string, qty, unitPrice float64) error {
	symbol = strings.ToUpper(symbol)
	cost := unitPrice * qty

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("no such user")
			}
			return err
		}

		if user.Cash < cost {
			return apperr.Conflict("not enough cash")
		}

		if err := tx.Model(&user).Update("cash", user.Cash-cost).Error; err != nil {
			return err
		}

		return tx.Create(&models.Transaction{
			UserID:    userID,
			Stock:     symbol,
			Qty:       qty,
			Price:     cost,
			Timestamp: time.Now(),
		}).Error
	})
}

// Sell credits cash and appends a negative transaction, rejecting the sale
// when the aggregated holding is smaller than the requested quantity.
func (s *Store) Sell(ctx context.Context, userID uint, symbol string, qty, unitPrice float64) error {
	symbol = strings.ToUpper(symbol)
	value := unitPrice * qty

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		held, err := holding(tx, userID, symbol)
		if err != nil {
			return err
		}
		if held <= 0 {
			return apperr.Conflict("you appear to have no shares")
		}
		if held < qty {
			return apperr.Conflict("not enough shares")
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("no such user")
			}
			return err
		}

		if err := tx.Model(&user).Update("cash", user.Cash+value).Error; err != nil {
			return err
		}

		return tx.Create(&models.Transaction{
			UserID:    userID,
			Stock:     symbol,
			Qty:       -qty,
			Price:     -value,
			Timestamp: time.Now(),
		}).Error
	})
}

func holding(tx *gorm.DB, userID uint, symbol string) (float64, error) {
	var held float64
	err := tx.Model(&models.Transaction{}).
		Where("user_id = ? AND stock = ?", userID, symbol).
		Select("COALESCE(SUM(qty), 0)").
		Scan(&held).Error
	return held, err
}

func (s *Store) Holdings(ctx context.Context, userID uint) ([]Holding, error) {
	var holdings []Holding
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("stock, SUM(qty) AS qty").
		Where("user_id = ?", userID).
		Group("stock").
		Having("SUM(qty) > ?", epsilon).
		Order("stock").
		Scan(&holdings).Error
	return holdings, err
}

// HeldSymbols lists the symbols of currently open positions, for the sell
// form's dropdown.
func (s *Store) HeldSymbols(ctx context.Context, userID uint) ([]string, error) {
	holdings, err := s.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Stock)
	}
	return symbols, nil
}

func (s *Store) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var trades []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp ASC, id ASC").
		Find(&trades).Error
	return trades, err
}
