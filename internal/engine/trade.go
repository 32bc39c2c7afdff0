package engine

import (
	"fmt"

	"carbon_market/internal/domain"

	"github.com/shopspring/decimal"
)

// EnsureTeam registers a team account on first sight (called by the auth
// boundary after it resolves a team id). Existing accounts are untouched;
// the returned account is a copy safe to read without the lock.
func (m *Market) EnsureTeam(teamID, name string) domain.TeamAccount {
	m.mu.Lock()
	acct, ok := m.teams[teamID]
	if !ok {
		acct = domain.NewTeamAccount(teamID, name, m.startingBalance)
		m.teams[teamID] = acct
	}
	copied := acct.Clone()
	m.mu.Unlock()

	if !ok {
		m.notify()
	}
	return copied
}

// Buy executes a market buy for the team at the current authoritative price.
// The whole check-debit-merge sequence is one critical section, so the trade
// observes either fully pre- or fully post-advancement prices, never a mix.
// Returns the new balance.
func (m *Market) Buy(teamID, itemID string, quantity int64) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Decimal{}, domain.NewValidationError("quantity", domain.ErrInvalidQuantity)
	}

	m.mu.Lock()

	st, acct, err := m.tradePreflightLocked(teamID, itemID)
	if err != nil {
		m.mu.Unlock()
		return decimal.Decimal{}, err
	}

	cost := domain.Round2(st.price.Mul(decimal.NewFromInt(quantity)))
	if !acct.CanAfford(cost) {
		balance := acct.Balance
		m.mu.Unlock()
		return decimal.Decimal{}, domain.NewStateConflictError(
			fmt.Sprintf("insufficient balance: need %s CC, have %s CC", cost, balance),
			domain.ErrInsufficientBalance)
	}

	acct.Debit(cost)

	teamHoldings, ok := m.holdings[teamID]
	if !ok {
		teamHoldings = make(map[string]*domain.Holding)
		m.holdings[teamID] = teamHoldings
	}
	if h, ok := teamHoldings[itemID]; ok {
		h.ApplyBuy(quantity, st.price)
	} else {
		teamHoldings[itemID] = &domain.Holding{
			TeamID:      teamID,
			ItemID:      itemID,
			Quantity:    quantity,
			AvgBuyPrice: st.price,
		}
	}

	acct.Append(domain.NewTransaction(domain.TxBuy, st.item.Name, quantity, cost, m.now()))
	balance := acct.Balance
	m.mu.Unlock()

	m.notify()
	return balance, nil
}

// Sell executes a market sell for the team at the current authoritative
// price. The holding is removed once its quantity reaches zero; its average
// buy price only exists while the position is open. Returns the new balance.
func (m *Market) Sell(teamID, itemID string, quantity int64) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Decimal{}, domain.NewValidationError("quantity", domain.ErrInvalidQuantity)
	}

	m.mu.Lock()

	st, acct, err := m.tradePreflightLocked(teamID, itemID)
	if err != nil {
		m.mu.Unlock()
		return decimal.Decimal{}, err
	}

	h, ok := m.holdings[teamID][itemID]
	if !ok || h.Quantity < quantity {
		held := int64(0)
		if ok {
			held = h.Quantity
		}
		m.mu.Unlock()
		return decimal.Decimal{}, domain.NewStateConflictError(
			fmt.Sprintf("insufficient holdings: have %d, tried to sell %d", held, quantity),
			domain.ErrInsufficientHoldings)
	}

	proceeds := domain.Round2(st.price.Mul(decimal.NewFromInt(quantity)))
	acct.Credit(proceeds)

	h.ApplySell(quantity)
	if h.Quantity == 0 {
		delete(m.holdings[teamID], itemID)
	}

	acct.Append(domain.NewTransaction(domain.TxSell, st.item.Name, quantity, proceeds, m.now()))
	balance := acct.Balance
	m.mu.Unlock()

	m.notify()
	return balance, nil
}

// tradePreflightLocked resolves item and team and applies the freeze checks
// shared by Buy and Sell. Market-wide freeze wins over item state.
func (m *Market) tradePreflightLocked(teamID, itemID string) (*itemState, *domain.TeamAccount, error) {
	if m.marketFrozenLocked() {
		return nil, nil, domain.NewStateConflictError(
			"market is frozen, trading is temporarily suspended",
			domain.ErrMarketFrozen)
	}

	st, ok := m.items[itemID]
	if !ok {
		return nil, nil, &domain.NotFoundError{Kind: "item", ID: itemID}
	}
	if st.frozen {
		return nil, nil, domain.NewStateConflictError(
			fmt.Sprintf("%s is frozen and cannot be traded", st.item.Symbol),
			domain.ErrItemFrozen)
	}

	acct, ok := m.teams[teamID]
	if !ok {
		return nil, nil, &domain.NotFoundError{Kind: "team", ID: teamID}
	}
	return st, acct, nil
}

// ApplyAdjustment credits a quiz/game reward or debits a game penalty.
// refID (quiz question id, game session id) dedupes replays: a second call
// with the same refID returns the current balance and ErrDuplicateAdjustment
// without touching the account. Penalties floor the balance at zero.
func (m *Market) ApplyAdjustment(teamID, txType, label string, amount decimal.Decimal, refID string) (decimal.Decimal, error) {
	switch txType {
	case domain.TxQuiz, domain.TxPenalty, domain.TxGameWin:
	default:
		return decimal.Decimal{}, domain.NewValidationError("type",
			fmt.Errorf("unknown adjustment type %q", txType))
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, domain.NewValidationError("amount",
			fmt.Errorf("must be positive, got %s", amount))
	}

	m.mu.Lock()

	acct, ok := m.teams[teamID]
	if !ok {
		m.mu.Unlock()
		return decimal.Decimal{}, &domain.NotFoundError{Kind: "team", ID: teamID}
	}

	if refID != "" && acct.AppliedRefs[refID] {
		balance := acct.Balance
		m.mu.Unlock()
		return balance, domain.ErrDuplicateAdjustment
	}

	signed := amount
	if txType == domain.TxPenalty {
		acct.Debit(amount)
		signed = amount.Neg()
	} else {
		acct.Credit(amount)
		if txType == domain.TxQuiz {
			acct.QuizScore += amount.IntPart()
		}
	}

	if refID != "" {
		acct.AppliedRefs[refID] = true
	}
	acct.Append(domain.NewTransaction(txType, label, 1, signed, m.now()))
	balance := acct.Balance
	m.mu.Unlock()

	m.notify()
	return balance, nil
}
