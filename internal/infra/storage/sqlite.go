package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"carbon_market/internal/domain"
	"carbon_market/internal/engine"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MarketRecord holds the serialized market-side state (rounds, prices,
// event, freeze window) as a single JSON document. There is always at most
// one row.
type MarketRecord struct {
	ID   uint `gorm:"primaryKey"`
	Data []byte
}

// TeamRecord is the persisted form of a team account. Decimal fields are
// stored as strings to avoid float drift.
type TeamRecord struct {
	TeamID       string `gorm:"primaryKey"`
	Name         string
	Balance      string
	QuizScore    int64
	Transactions []byte // JSON []domain.Transaction
	AppliedRefs  []byte // JSON map[string]bool
}

// HoldingRecord is one persisted position.
type HoldingRecord struct {
	TeamID      string `gorm:"primaryKey"`
	ItemID      string `gorm:"primaryKey"`
	Quantity    int64
	AvgBuyPrice string
}

// Storage persists engine state in SQLite.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (creating if needed) the SQLite database at dbPath and
// runs migrations.
func NewStorage(dbPath string) (*Storage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&MarketRecord{}, &TeamRecord{}, &HoldingRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// SaveState writes the full engine state in one transaction.
func (s *Storage) SaveState(state engine.State) error {
	market := state
	market.Teams = nil
	market.Holdings = nil
	marketJSON, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("failed to marshal market state: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&MarketRecord{ID: 1, Data: marketJSON}).Error; err != nil {
			return err
		}

		for i := range state.Teams {
			rec, err := teamToRecord(&state.Teams[i])
			if err != nil {
				return err
			}
			if err := tx.Save(rec).Error; err != nil {
				return err
			}
		}

		// Holdings are replaced wholesale; sells and resets delete rows.
		if err := tx.Where("1 = 1").Delete(&HoldingRecord{}).Error; err != nil {
			return err
		}
		for _, h := range state.Holdings {
			rec := HoldingRecord{
				TeamID:      h.TeamID,
				ItemID:      h.ItemID,
				Quantity:    h.Quantity,
				AvgBuyPrice: h.AvgBuyPrice.String(),
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadState reads the persisted engine state. The second return value is
// false when the database holds no state yet.
func (s *Storage) LoadState() (engine.State, bool, error) {
	var state engine.State

	var market MarketRecord
	err := s.db.First(&market, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return state, false, nil
	}
	if err != nil {
		return state, false, err
	}
	if err := json.Unmarshal(market.Data, &state); err != nil {
		return state, false, fmt.Errorf("failed to unmarshal market state: %w", err)
	}

	var teams []TeamRecord
	if err := s.db.Find(&teams).Error; err != nil {
		return state, false, err
	}
	for i := range teams {
		acct, err := recordToTeam(&teams[i])
		if err != nil {
			return state, false, err
		}
		state.Teams = append(state.Teams, *acct)
	}

	var holdings []HoldingRecord
	if err := s.db.Find(&holdings).Error; err != nil {
		return state, false, err
	}
	for _, rec := range holdings {
		avg, err := decimal.NewFromString(rec.AvgBuyPrice)
		if err != nil {
			return state, false, fmt.Errorf("corrupt avg buy price for %s/%s: %w", rec.TeamID, rec.ItemID, err)
		}
		state.Holdings = append(state.Holdings, domain.Holding{
			TeamID:      rec.TeamID,
			ItemID:      rec.ItemID,
			Quantity:    rec.Quantity,
			AvgBuyPrice: avg,
		})
	}

	return state, true, nil
}

func teamToRecord(acct *domain.TeamAccount) (*TeamRecord, error) {
	txJSON, err := json.Marshal(acct.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transactions for %s: %w", acct.TeamID, err)
	}
	refsJSON, err := json.Marshal(acct.AppliedRefs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal applied refs for %s: %w", acct.TeamID, err)
	}
	return &TeamRecord{
		TeamID:       acct.TeamID,
		Name:         acct.Name,
		Balance:      acct.Balance.String(),
		QuizScore:    acct.QuizScore,
		Transactions: txJSON,
		AppliedRefs:  refsJSON,
	}, nil
}

func recordToTeam(rec *TeamRecord) (*domain.TeamAccount, error) {
	balance, err := decimal.NewFromString(rec.Balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance for team %s: %w", rec.TeamID, err)
	}

	acct := &domain.TeamAccount{
		TeamID:    rec.TeamID,
		Name:      rec.Name,
		Balance:   balance,
		QuizScore: rec.QuizScore,
	}
	if len(rec.Transactions) > 0 {
		if err := json.Unmarshal(rec.Transactions, &acct.Transactions); err != nil {
			return nil, fmt.Errorf("corrupt transactions for team %s: %w", rec.TeamID, err)
		}
	}
	if len(rec.AppliedRefs) > 0 {
		if err := json.Unmarshal(rec.AppliedRefs, &acct.AppliedRefs); err != nil {
			return nil, fmt.Errorf("corrupt applied refs for team %s: %w", rec.TeamID, err)
		}
	}
	if acct.AppliedRefs == nil {
		acct.AppliedRefs = make(map[string]bool)
	}
	return acct, nil
}
