package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types appended to a team's ledger.
const (
	TxBuy     = "BUY"
	TxSell    = "SELL"
	TxQuiz    = "QUIZ"
	TxPenalty = "PENALTY"
	TxGameWin = "GAME_WIN"
)

// Transaction is one append-only ledger entry for a team.
type Transaction struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Label     string          `json:"label"` // item name, or reward/penalty source
	Quantity  int64           `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewTransaction creates a ledger entry stamped with a fresh id.
func NewTransaction(txType, label string, quantity int64, amount decimal.Decimal, at time.Time) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		Type:      txType,
		Label:     label,
		Quantity:  quantity,
		Amount:    amount,
		Timestamp: at,
	}
}

// Holding is a team's position in one item. Created on first buy, removed
// when quantity reaches zero. AvgBuyPrice is the quantity-weighted average
// of all buy fills not yet offset by sells; sells never change it.
type Holding struct {
	TeamID      string          `json:"teamId"`
	ItemID      string          `json:"itemId"`
	Quantity    int64           `json:"quantity"`
	AvgBuyPrice decimal.Decimal `json:"avgBuyPrice"`
}

// ApplyBuy merges a fill into the holding, recomputing the weighted average:
// newAvg = (oldAvg*oldQty + price*qty) / (oldQty+qty), rounded to 2dp.
func (h *Holding) ApplyBuy(quantity int64, price decimal.Decimal) {
	oldQty := decimal.NewFromInt(h.Quantity)
	addQty := decimal.NewFromInt(quantity)
	totalQty := oldQty.Add(addQty)

	cost := h.AvgBuyPrice.Mul(oldQty).Add(price.Mul(addQty))
	h.AvgBuyPrice = Round2(cost.Div(totalQty))
	h.Quantity += quantity
}

// ApplySell reduces the position. The caller checks quantity first.
func (h *Holding) ApplySell(quantity int64) {
	h.Quantity -= quantity
}

// TeamAccount is the single source of truth for a team's spendable currency,
// plus its quiz score and ledger. Mutated only inside the engine's critical
// sections.
type TeamAccount struct {
	TeamID       string          `json:"teamId"`
	Name         string          `json:"name"`
	Balance      decimal.Decimal `json:"balance"`
	QuizScore    int64           `json:"quizScore"`
	Transactions []Transaction   `json:"transactions"`

	// AppliedRefs dedupes reward/penalty reference ids (quiz question ids,
	// game session ids) so replays cannot double-apply.
	AppliedRefs map[string]bool `json:"appliedRefs"`
}

// NewTeamAccount creates an account with the configured starting balance.
func NewTeamAccount(teamID, name string, startingBalance decimal.Decimal) *TeamAccount {
	return &TeamAccount{
		TeamID:      teamID,
		Name:        name,
		Balance:     startingBalance,
		AppliedRefs: make(map[string]bool),
	}
}

// Clone returns a deep copy safe to read or serialize after the engine's
// lock is released.
func (a *TeamAccount) Clone() TeamAccount {
	copied := *a
	copied.Transactions = append([]Transaction(nil), a.Transactions...)
	copied.AppliedRefs = make(map[string]bool, len(a.AppliedRefs))
	for k, v := range a.AppliedRefs {
		copied.AppliedRefs[k] = v
	}
	return copied
}

// CanAfford reports whether the account balance covers the cost.
func (a *TeamAccount) CanAfford(cost decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(cost)
}

// Debit removes funds. The caller checks CanAfford first; Debit clamps at
// zero rather than going negative so the balance invariant cannot break.
func (a *TeamAccount) Debit(amount decimal.Decimal) {
	a.Balance = Round2(a.Balance.Sub(amount))
	if a.Balance.IsNegative() {
		a.Balance = decimal.Zero
	}
}

// Credit adds funds.
func (a *TeamAccount) Credit(amount decimal.Decimal) {
	a.Balance = Round2(a.Balance.Add(amount))
}

// Append records a ledger entry.
func (a *TeamAccount) Append(tx Transaction) {
	a.Transactions = append(a.Transactions, tx)
}
