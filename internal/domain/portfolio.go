package domain

import "github.com/shopspring/decimal"

// HoldingView is one valued position in a team's portfolio.
type HoldingView struct {
	ItemID       string          `json:"itemId"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Quantity     int64           `json:"quantity"`
	AvgBuyPrice  decimal.Decimal `json:"avgBuyPrice"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLPercent   decimal.Decimal `json:"pnlPercent"`
}

// PortfolioSummary aggregates a team's positions.
type PortfolioSummary struct {
	TotalInvested decimal.Decimal `json:"totalInvested"`
	CurrentValue  decimal.Decimal `json:"currentValue"`
	TotalPnL      decimal.Decimal `json:"totalPnL"`
}

// Portfolio is the full read model for one team.
type Portfolio struct {
	TeamID   string           `json:"teamId"`
	Balance  decimal.Decimal  `json:"balance"`
	Holdings []HoldingView    `json:"holdings"`
	Summary  PortfolioSummary `json:"summary"`
}

// ValueHolding prices a holding at the current market price.
func ValueHolding(h *Holding, symbol, name string, currentPrice decimal.Decimal) HoldingView {
	qty := decimal.NewFromInt(h.Quantity)
	invested := h.AvgBuyPrice.Mul(qty)
	value := Round2(currentPrice.Mul(qty))
	pnl := Round2(value.Sub(invested))

	pnlPct := decimal.Zero
	if invested.IsPositive() {
		pnlPct = Round2(pnl.Div(invested).Mul(decimal.NewFromInt(100)))
	}

	return HoldingView{
		ItemID:       h.ItemID,
		Symbol:       symbol,
		Name:         name,
		Quantity:     h.Quantity,
		AvgBuyPrice:  h.AvgBuyPrice,
		CurrentPrice: currentPrice,
		CurrentValue: value,
		PnL:          pnl,
		PnLPercent:   pnlPct,
	}
}

// LeaderboardEntry is one row of the shared leaderboard.
type LeaderboardEntry struct {
	TeamID    string          `json:"teamId"`
	Name      string          `json:"teamName"`
	Balance   decimal.Decimal `json:"balance"`
	QuizScore int64           `json:"quizScore"`
}
