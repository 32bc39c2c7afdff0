package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEventOverlayPercent(t *testing.T) {
	cases := []struct {
		event MarketEvent
		want  int64
	}{
		{EventCrash, -15},
		{EventRecovery, 10},
		{EventBoom, 20},
		{EventNone, 0},
	}
	for _, tc := range cases {
		if got := tc.event.OverlayPercent(); !got.Equal(decimal.NewFromInt(tc.want)) {
			t.Errorf("%q overlay = %s, want %d", tc.event, got, tc.want)
		}
	}

	if MarketEvent("meltdown").Valid() {
		t.Error("unknown event must not validate")
	}
	if !EventNone.Valid() {
		t.Error("none is a valid (cleared) event")
	}
}

func TestTotalChangePercent(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		got := TotalChangePercent(decimal.NewFromInt(100), decimal.NewFromInt(85))
		if !got.Equal(decimal.NewFromInt(-15)) {
			t.Errorf("got %s, want -15", got)
		}
	})

	t.Run("rounded to 2dp", func(t *testing.T) {
		got := TotalChangePercent(decimal.NewFromInt(3), decimal.NewFromInt(4))
		if !got.Equal(decimal.NewFromFloat(33.33)) {
			t.Errorf("got %s, want 33.33", got)
		}
	})

	t.Run("zero base is safe", func(t *testing.T) {
		if got := TotalChangePercent(decimal.Zero, decimal.NewFromInt(10)); !got.IsZero() {
			t.Errorf("got %s, want 0", got)
		}
	})
}

func TestHoldingApplyBuy(t *testing.T) {
	h := &Holding{TeamID: "t1", ItemID: "a", Quantity: 10, AvgBuyPrice: decimal.NewFromInt(100)}

	h.ApplyBuy(10, decimal.NewFromInt(120))
	if h.Quantity != 20 {
		t.Errorf("quantity = %d, want 20", h.Quantity)
	}
	if !h.AvgBuyPrice.Equal(decimal.NewFromInt(110)) {
		t.Errorf("avgBuyPrice = %s, want 110", h.AvgBuyPrice)
	}

	h.ApplySell(5)
	if h.Quantity != 15 {
		t.Errorf("quantity = %d, want 15", h.Quantity)
	}
	if !h.AvgBuyPrice.Equal(decimal.NewFromInt(110)) {
		t.Errorf("avgBuyPrice = %s, want 110 after sell", h.AvgBuyPrice)
	}
}

func TestTeamAccount(t *testing.T) {
	acct := NewTeamAccount("t1", "Alpha", decimal.NewFromInt(1000))

	if !acct.CanAfford(decimal.NewFromInt(1000)) {
		t.Error("exact cost must be affordable")
	}
	if acct.CanAfford(decimal.NewFromFloat(1000.01)) {
		t.Error("a cent over must not be affordable")
	}

	acct.Debit(decimal.NewFromFloat(999.99))
	if !acct.Balance.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("balance = %s, want 0.01", acct.Balance)
	}

	// Debit clamps rather than going negative.
	acct.Debit(decimal.NewFromInt(5))
	if !acct.Balance.IsZero() {
		t.Errorf("balance = %s, want 0", acct.Balance)
	}

	acct.Credit(decimal.NewFromFloat(12.345))
	if !acct.Balance.Equal(decimal.NewFromFloat(12.35)) {
		t.Errorf("balance = %s, want 12.35 (2dp)", acct.Balance)
	}
}
