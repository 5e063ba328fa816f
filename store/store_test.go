package store_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trade-simulator/apperr"
	"trade-simulator/database"
	"trade-simulator/store"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// unique shared-cache name per test so connections from the pool see
	// the same in-memory database without leaking across tests
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func cashOf(t *testing.T, s *store.Store, userID uint) float64 {
	t.Helper()
	user, err := s.UserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("UserByID failed: %v", err)
	}
	return user.Cash
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCreateUser(t *testing.T) {
	s := store.New(setupTestDB(t))
	ctx := context.Background()

	t.Run("starting_balance_and_empty_holdings", func(t *testing.T) {
		user, err := s.CreateUser(ctx, "alice", "hash")
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if !almostEqual(user.Cash, store.StartingCash) {
			t.Errorf("expected starting cash %v, got %v", store.StartingCash, user.Cash)
		}

		holdings, err := s.Holdings(ctx, user.ID)
		if err != nil {
			t.Fatalf("Holdings failed: %v", err)
		}
		if len(holdings) != 0 {
			t.Errorf("expected no holdings for a new user, got %v", holdings)
		}
	})

	t.Run("duplicate_username", func(t *testing.T) {
		if _, err := s.CreateUser(ctx, "bob", "hash"); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		_, err := s.CreateUser(ctx, "bob", "otherhash")
		if err == nil {
			t.Fatal("expected an error for duplicate username, got nil")
		}
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Errorf("expected conflict, got %v", err)
		}
	})
}

func TestBuySellScenario(t *testing.T) {
	s := store.New(setupTestDB(t))
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "carol", "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// buy 10 shares at 20
	if err := s.Buy(ctx, user.ID, "AAPL", 10, 20); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if cash := cashOf(t, s, user.ID); !almostEqual(cash, 9800) {
		t.Errorf("expected cash 9800 after buy, got %v", cash)
	}

	trades, err := s.History(ctx, user.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(trades))
	}
	if !almostEqual(trades[0].Qty, 10) || !almostEqual(trades[0].Price, 200) {
		t.Errorf("expected qty 10 and price 200, got qty %v price %v", trades[0].Qty, trades[0].Price)
	}

	// selling more than held is rejected and leaves no trace
	err = s.Sell(ctx, user.ID, "AAPL", 15, 25)
	if err == nil {
		t.Fatal("expected an error selling more shares than held, got nil")
	}
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("expected conflict, got %v", err)
	}
	if cash := cashOf(t, s, user.ID); !almostEqual(cash, 9800) {
		t.Errorf("cash changed on rejected sell: %v", cash)
	}

	// sell all 10 at 25
	if err := s.Sell(ctx, user.ID, "AAPL", 10, 25); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if cash := cashOf(t, s, user.ID); !almostEqual(cash, 10050) {
		t.Errorf("expected cash 10050 after sell, got %v", cash)
	}

	// closed positions drop out of the portfolio
	holdings, err := s.Holdings(ctx, user.ID)
	if err != nil {
		t.Fatalf("Holdings failed: %v", err)
	}
	if len(holdings) != 0 {
		t.Errorf("expected no holdings after closing the position, got %v", holdings)
	}
}

func TestCashInvariant(t *testing.T) {
	s := store.New(setupTestDB(t))
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "dave", "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := s.Buy(ctx, user.ID, "NFLX", 4, 100); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if err := s.Buy(ctx, user.ID, "AAPL", 3, 50); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if err := s.Sell(ctx, user.ID, "NFLX", 2, 110); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	// cash equals starting cash minus the signed sum of recorded prices
	trades, err := s.History(ctx, user.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	var signedSum float64
	for _, trade := range trades {
		signedSum += trade.Price
	}
	if cash := cashOf(t, s, user.ID); !almostEqual(cash, store.StartingCash-signedSum) {
		t.Errorf("cash %v does not reconcile with transactions (signed sum %v)", cash, signedSum)
	}
}

func TestBuyInsufficientCash(t *testing.T) {
	s := store.New(setupTestDB(t))
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "erin", "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	err = s.Buy(ctx, user.ID, "AAPL", 1000, 20)
	if err == nil {
		t.Fatal("expected an error buying beyond available cash, got nil")
	}
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("expected conflict, got %v", err)
	}

	// neither write happened
	if cash := cashOf(t, s, user.ID); !almostEqual(cash, store.StartingCash) {
		t.Errorf("cash changed on rejected buy: %v", cash)
	}
	trades, err := s.History(ctx, user.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("expected no transactions after rejected buy, got %d", len(trades))
	}
}

func TestSellWithoutShares(t *testing.T) {
	s := store.New(setupTestDB(t))
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "frank", "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	err = s.Sell(ctx, user.ID, "AAPL", 1, 20)
	if err == nil {
		t.Fatal("expected an error selling with no position, got nil")
	}
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestSymbolNormalization(t *testing.T) {
	s := store.New(setupTestDB(t))
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "gina", "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := s.Buy(ctx, user.ID, "aapl", 5, 10); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}

	holdings, err := s.Holdings(ctx, user.ID)
	if err != nil {
		t.Fatalf("Holdings failed: %v", err)
	}
	if len(holdings) != 1 || holdings[0].Stock != "AAPL" {
		t.Fatalf("expected a single AAPL holding, got %v", holdings)
	}

	// a lower-case sell matches the upper-cased position
	if err := s.Sell(ctx, user.ID, "aapl", 5, 10); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
}

func TestHeldSymbols(t *testing.T) {
	s := store.New(setupTestDB(t))
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "hank", "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := s.Buy(ctx, user.ID, "NFLX", 2, 10); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if err := s.Buy(ctx, user.ID, "AAPL", 1, 10); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if err := s.Sell(ctx, user.ID, "AAPL", 1, 10); err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	symbols, err := s.HeldSymbols(ctx, user.ID)
	if err != nil {
		t.Fatalf("HeldSymbols failed: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "NFLX" {
		t.Errorf("expected only NFLX held, got %v", symbols)
	}
}
