package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketEvent is a market-wide overlay applied on top of each item's
// canonical per-round change. It is standing: once triggered it modifies
// every subsequent round until explicitly cleared.
type MarketEvent string

const (
	EventNone     MarketEvent = ""
	EventCrash    MarketEvent = "crash"
	EventRecovery MarketEvent = "recovery"
	EventBoom     MarketEvent = "boom"
)

// OverlayPercent returns the fixed percent the event adds to every item.
func (e MarketEvent) OverlayPercent() decimal.Decimal {
	switch e {
	case EventCrash:
		return decimal.NewFromInt(-15)
	case EventRecovery:
		return decimal.NewFromInt(10)
	case EventBoom:
		return decimal.NewFromInt(20)
	default:
		return decimal.Zero
	}
}

// Valid reports whether e is a known event (or none).
func (e MarketEvent) Valid() bool {
	switch e {
	case EventNone, EventCrash, EventRecovery, EventBoom:
		return true
	}
	return false
}

// NewsEntry records one applied round for one item.
type NewsEntry struct {
	Round         int             `json:"round"`
	News          string          `json:"news"`
	PercentChange decimal.Decimal `json:"percentChange"`
	PriceAfter    decimal.Decimal `json:"priceAfter"`
}

// ItemView is the per-item slice of the market snapshot exposed at the
// API boundary.
type ItemView struct {
	ID                 string            `json:"id"`
	Symbol             string            `json:"symbol"`
	Name               string            `json:"name"`
	Type               string            `json:"type"`
	BasePrice          decimal.Decimal   `json:"basePrice"`
	CurrentPrice       decimal.Decimal   `json:"currentPrice"`
	ChangePercent      decimal.Decimal   `json:"changePercent"`
	TotalChangePercent decimal.Decimal   `json:"totalChangePercent"`
	IsFrozen           bool              `json:"isFrozen"`
	CurrentNews        string            `json:"currentNews"`
	NewsHistory        []NewsEntry       `json:"newsHistory"`
	PriceHistory       []decimal.Decimal `json:"priceHistory"`
}

// MarketSnapshot is a consistent point-in-time view of the whole market.
type MarketSnapshot struct {
	CurrentRound      int         `json:"currentRound"`
	TotalRounds       int         `json:"totalRounds"`
	ActiveEvent       MarketEvent `json:"activeEvent"`
	EventRound        *int        `json:"eventRound"`
	MarketFrozen      bool        `json:"marketFrozen"`
	MarketFreezeUntil *time.Time  `json:"marketFreezeUntil"`
	Stocks            []ItemView  `json:"stocks"`
	Commodities       []ItemView  `json:"commodities"`
}

// Round2 rounds a monetary or percent value to two decimal places,
// the resolution every balance and price in the game is kept at.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// TotalChangePercent derives the cumulative change from base to current.
// Always recomputed, never stored, so it cannot drift.
func TotalChangePercent(base, current decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return Round2(current.Div(base).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)))
}
