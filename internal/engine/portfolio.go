package engine

import (
	"sort"

	"carbon_market/internal/domain"

	"github.com/shopspring/decimal"
)

// Portfolio values a team's open positions at current prices. Pure read,
// safe at polling frequency.
func (m *Market) Portfolio(teamID string) (domain.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.teams[teamID]
	if !ok {
		return domain.Portfolio{}, &domain.NotFoundError{Kind: "team", ID: teamID}
	}

	p := domain.Portfolio{
		TeamID:  teamID,
		Balance: acct.Balance,
		Summary: domain.PortfolioSummary{
			TotalInvested: decimal.Zero,
			CurrentValue:  decimal.Zero,
			TotalPnL:      decimal.Zero,
		},
	}

	// Catalog order keeps the view stable between polls.
	for _, id := range m.order {
		h, ok := m.holdings[teamID][id]
		if !ok {
			continue
		}
		st := m.items[id]
		view := domain.ValueHolding(h, st.item.Symbol, st.item.Name, st.price)
		p.Holdings = append(p.Holdings, view)

		invested := domain.Round2(h.AvgBuyPrice.Mul(decimal.NewFromInt(h.Quantity)))
		p.Summary.TotalInvested = p.Summary.TotalInvested.Add(invested)
		p.Summary.CurrentValue = p.Summary.CurrentValue.Add(view.CurrentValue)
	}
	p.Summary.TotalPnL = domain.Round2(p.Summary.CurrentValue.Sub(p.Summary.TotalInvested))
	return p, nil
}

// Team returns a copy of a team account, including its transaction log.
func (m *Market) Team(teamID string) (domain.TeamAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.teams[teamID]
	if !ok {
		return domain.TeamAccount{}, &domain.NotFoundError{Kind: "team", ID: teamID}
	}

	return acct.Clone(), nil
}

// Leaderboard returns all teams sorted by balance, highest first.
func (m *Market) Leaderboard() []domain.LeaderboardEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]domain.LeaderboardEntry, 0, len(m.teams))
	for _, acct := range m.teams {
		entries = append(entries, domain.LeaderboardEntry{
			TeamID:    acct.TeamID,
			Name:      acct.Name,
			Balance:   acct.Balance,
			QuizScore: acct.QuizScore,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Balance.Equal(entries[j].Balance) {
			return entries[i].Balance.GreaterThan(entries[j].Balance)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}
