package engine

import (
	"sync"
	"testing"

	"carbon_market/internal/domain"

	"github.com/shopspring/decimal"
)

func TestPortfolio(t *testing.T) {
	t.Run("valuation and pnl", func(t *testing.T) {
		m, _ := newTestMarket(t)
		m.EnsureTeam("t1", "Team One")

		m.Buy("t1", "solar", 5) // 5 @ 100
		m.Buy("t1", "grain", 4) // 4 @ 50

		// Round 1: solar -15% -> 85, grain +10% -> 55.
		m.AdvanceRound()

		p, err := m.Portfolio("t1")
		if err != nil {
			t.Fatalf("Portfolio failed: %v", err)
		}
		if len(p.Holdings) != 2 {
			t.Fatalf("holdings = %d, want 2", len(p.Holdings))
		}

		solar := p.Holdings[0]
		if solar.ItemID != "solar" {
			t.Fatalf("holdings not in catalog order: %+v", p.Holdings)
		}
		if !solar.CurrentValue.Equal(decimal.NewFromInt(425)) { // 5 x 85
			t.Errorf("solar value = %s, want 425", solar.CurrentValue)
		}
		if !solar.PnL.Equal(decimal.NewFromInt(-75)) {
			t.Errorf("solar pnl = %s, want -75", solar.PnL)
		}
		if !solar.PnLPercent.Equal(decimal.NewFromInt(-15)) {
			t.Errorf("solar pnl%% = %s, want -15", solar.PnLPercent)
		}

		grain := p.Holdings[1]
		if !grain.CurrentValue.Equal(decimal.NewFromInt(220)) { // 4 x 55
			t.Errorf("grain value = %s, want 220", grain.CurrentValue)
		}

		// Summary: invested 700, value 645, pnl -55.
		if !p.Summary.TotalInvested.Equal(decimal.NewFromInt(700)) {
			t.Errorf("totalInvested = %s, want 700", p.Summary.TotalInvested)
		}
		if !p.Summary.CurrentValue.Equal(decimal.NewFromInt(645)) {
			t.Errorf("currentValue = %s, want 645", p.Summary.CurrentValue)
		}
		if !p.Summary.TotalPnL.Equal(decimal.NewFromInt(-55)) {
			t.Errorf("totalPnL = %s, want -55", p.Summary.TotalPnL)
		}
	})

	t.Run("empty portfolio", func(t *testing.T) {
		m, _ := newTestMarket(t)
		m.EnsureTeam("t1", "Team One")

		p, err := m.Portfolio("t1")
		if err != nil {
			t.Fatalf("Portfolio failed: %v", err)
		}
		if len(p.Holdings) != 0 {
			t.Errorf("holdings = %+v, want none", p.Holdings)
		}
		if !p.Summary.TotalPnL.IsZero() {
			t.Errorf("totalPnL = %s, want 0", p.Summary.TotalPnL)
		}
	})

	t.Run("unknown team", func(t *testing.T) {
		m, _ := newTestMarket(t)
		if _, err := m.Portfolio("ghost"); err == nil {
			t.Fatal("expected NotFound for unknown team")
		}
	})
}

func TestLeaderboard(t *testing.T) {
	m, _ := newTestMarket(t)
	m.EnsureTeam("t1", "Alpha")
	m.EnsureTeam("t2", "Bravo")
	m.EnsureTeam("t3", "Charlie")

	m.ApplyAdjustment("t2", domain.TxGameWin, "Word Game", decimal.NewFromInt(300), "")
	m.ApplyAdjustment("t3", domain.TxPenalty, "Maze Game", decimal.NewFromInt(100), "")

	entries := m.Leaderboard()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Name != "Bravo" || entries[1].Name != "Alpha" || entries[2].Name != "Charlie" {
		t.Errorf("unexpected order: %s, %s, %s", entries[0].Name, entries[1].Name, entries[2].Name)
	}
}

// Trades, admin actions and reads running in parallel must keep accounting
// consistent: after everything settles, each team's balance plus realized
// spend still reconciles with its holdings.
func TestConcurrentTradesAndRounds(t *testing.T) {
	m, _ := newTestMarket(t)
	m.EnsureTeam("t1", "Alpha")
	m.EnsureTeam("t2", "Bravo")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			team := "t1"
			if i%2 == 0 {
				team = "t2"
			}
			m.Buy(team, "grain", 1)
			m.Snapshot()
			m.Portfolio(team)
			m.Sell(team, "grain", 1)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.AdvanceRound()
	}()
	wg.Wait()

	// Every buy is matched by a sell of the same size; only the round price
	// move between the two can shift a balance, and every trade executed at
	// the then-current price. Holdings must be fully closed out.
	for _, team := range []string{"t1", "t2"} {
		p, err := m.Portfolio(team)
		if err != nil {
			t.Fatalf("Portfolio(%s) failed: %v", team, err)
		}
		if len(p.Holdings) != 0 {
			t.Errorf("team %s still holds %+v", team, p.Holdings)
		}
		if p.Balance.IsNegative() {
			t.Errorf("team %s balance went negative: %s", team, p.Balance)
		}
	}
}
