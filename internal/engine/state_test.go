package engine

import (
	"testing"

	"carbon_market/internal/domain"

	"github.com/shopspring/decimal"
)

func TestStateRoundTrip(t *testing.T) {
	m, _ := newTestMarket(t)
	m.EnsureTeam("t1", "Alpha")
	m.EnsureTeam("t2", "Bravo")
	m.Buy("t1", "solar", 3)
	m.ApplyAdjustment("t2", domain.TxQuiz, "Q1", decimal.NewFromInt(50), "q1")
	m.TriggerEvent(domain.EventRecovery)
	m.AdjustPrice("grain", decimal.NewFromInt(7))
	m.AdvanceRound()
	m.SetItemFrozen("grain", true)

	state := m.ExportState()

	restored, err := NewMarket(testCatalog(), Options{})
	if err != nil {
		t.Fatalf("NewMarket failed: %v", err)
	}
	if err := restored.RestoreState(state); err != nil {
		t.Fatalf("RestoreState failed: %v", err)
	}

	origSnap := m.Snapshot()
	restSnap := restored.Snapshot()

	if restSnap.CurrentRound != origSnap.CurrentRound {
		t.Errorf("round = %d, want %d", restSnap.CurrentRound, origSnap.CurrentRound)
	}
	if restSnap.ActiveEvent != origSnap.ActiveEvent {
		t.Errorf("event = %q, want %q", restSnap.ActiveEvent, origSnap.ActiveEvent)
	}
	for i, v := range origSnap.Stocks {
		r := restSnap.Stocks[i]
		if !r.CurrentPrice.Equal(v.CurrentPrice) || len(r.PriceHistory) != len(v.PriceHistory) {
			t.Errorf("item %s state mismatch after restore", v.ID)
		}
	}
	if !restSnap.Commodities[0].IsFrozen {
		t.Error("frozen flag lost in round trip")
	}

	origPortfolio, _ := m.Portfolio("t1")
	restPortfolio, err := restored.Portfolio("t1")
	if err != nil {
		t.Fatalf("Portfolio failed: %v", err)
	}
	if len(restPortfolio.Holdings) != len(origPortfolio.Holdings) {
		t.Fatalf("holdings lost in round trip")
	}
	if !restPortfolio.Balance.Equal(origPortfolio.Balance) {
		t.Errorf("balance = %s, want %s", restPortfolio.Balance, origPortfolio.Balance)
	}

	acct, err := restored.Team("t2")
	if err != nil {
		t.Fatalf("Team failed: %v", err)
	}
	if acct.QuizScore != 50 {
		t.Errorf("quizScore = %d, want 50", acct.QuizScore)
	}
	// Dedupe memory must survive the restart.
	if _, err := restored.ApplyAdjustment("t2", domain.TxQuiz, "Q1", decimal.NewFromInt(50), "q1"); err != domain.ErrDuplicateAdjustment {
		t.Errorf("replayed adjustment err = %v, want ErrDuplicateAdjustment", err)
	}
}

func TestRestoreStateRejectsUnknownItems(t *testing.T) {
	m, _ := newTestMarket(t)
	state := m.ExportState()
	state.Items = append(state.Items, ItemStateRecord{ItemID: "ghost", Price: decimal.NewFromInt(1)})

	fresh, _ := NewMarket(testCatalog(), Options{})
	if err := fresh.RestoreState(state); err == nil {
		t.Fatal("unknown item must be rejected")
	}
}
