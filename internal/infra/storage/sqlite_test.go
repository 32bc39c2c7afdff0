package storage

import (
	"path/filepath"
	"testing"

	"carbon_market/internal/domain"
	"carbon_market/internal/engine"

	"github.com/shopspring/decimal"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	return s
}

func TestLoadStateEmpty(t *testing.T) {
	s := newTestStorage(t)

	_, found, err := s.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if found {
		t.Error("fresh database should report no state")
	}
}

func TestSaveLoadState(t *testing.T) {
	s := newTestStorage(t)

	m, err := engine.NewMarket(domain.DefaultCatalog(), engine.Options{})
	if err != nil {
		t.Fatalf("NewMarket failed: %v", err)
	}
	m.EnsureTeam("t1", "Alpha")
	m.Buy("t1", "greenvolt", 2)
	m.ApplyAdjustment("t1", domain.TxQuiz, "Q1", decimal.NewFromInt(50), "q1")
	m.TriggerEvent(domain.EventBoom)
	m.AdvanceRound()

	if err := s.SaveState(m.ExportState()); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	loaded, found, err := s.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if !found {
		t.Fatal("state should be found after save")
	}

	restored, _ := engine.NewMarket(domain.DefaultCatalog(), engine.Options{})
	if err := restored.RestoreState(loaded); err != nil {
		t.Fatalf("RestoreState failed: %v", err)
	}

	want := m.Snapshot()
	got := restored.Snapshot()
	if got.CurrentRound != want.CurrentRound || got.ActiveEvent != want.ActiveEvent {
		t.Errorf("market state mismatch: got round %d event %q", got.CurrentRound, got.ActiveEvent)
	}
	if !got.Stocks[0].CurrentPrice.Equal(want.Stocks[0].CurrentPrice) {
		t.Errorf("price mismatch: %s vs %s", got.Stocks[0].CurrentPrice, want.Stocks[0].CurrentPrice)
	}

	wantAcct, _ := m.Team("t1")
	gotAcct, err := restored.Team("t1")
	if err != nil {
		t.Fatalf("Team failed: %v", err)
	}
	if !gotAcct.Balance.Equal(wantAcct.Balance) {
		t.Errorf("balance = %s, want %s", gotAcct.Balance, wantAcct.Balance)
	}
	if len(gotAcct.Transactions) != len(wantAcct.Transactions) {
		t.Errorf("transactions = %d, want %d", len(gotAcct.Transactions), len(wantAcct.Transactions))
	}

	p, _ := restored.Portfolio("t1")
	if len(p.Holdings) != 1 || p.Holdings[0].Quantity != 2 {
		t.Errorf("holdings = %+v", p.Holdings)
	}
}

func TestSaveStateOverwrites(t *testing.T) {
	s := newTestStorage(t)

	m, _ := engine.NewMarket(domain.DefaultCatalog(), engine.Options{})
	m.EnsureTeam("t1", "Alpha")
	m.Buy("t1", "lithium", 3)
	if err := s.SaveState(m.ExportState()); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	m.Sell("t1", "lithium", 3)
	if err := s.SaveState(m.ExportState()); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, _, err := s.LoadState()
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(loaded.Holdings) != 0 {
		t.Errorf("holdings = %+v, want none (sold out)", loaded.Holdings)
	}
}
