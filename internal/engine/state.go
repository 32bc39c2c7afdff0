package engine

import (
	"fmt"
	"time"

	"carbon_market/internal/domain"

	"github.com/shopspring/decimal"
)

// ItemStateRecord is the serializable form of one item's runtime state.
type ItemStateRecord struct {
	ItemID        string             `json:"itemId"`
	Price         decimal.Decimal    `json:"price"`
	PriceHistory  []decimal.Decimal  `json:"priceHistory"`
	ChangePercent decimal.Decimal    `json:"changePercent"`
	Frozen        bool               `json:"frozen"`
	AdminExtra    decimal.Decimal    `json:"adminExtra"`
	NewsHistory   []domain.NewsEntry `json:"newsHistory"`
}

// State is everything the engine needs to survive a restart: market state,
// team accounts and holdings. The catalog itself is not part of it; the
// restored state must belong to the same catalog.
type State struct {
	CurrentRound      int                  `json:"currentRound"`
	ActiveEvent       domain.MarketEvent   `json:"activeEvent"`
	EventRound        *int                 `json:"eventRound"`
	MarketFrozen      bool                 `json:"marketFrozen"`
	MarketFreezeUntil *time.Time           `json:"marketFreezeUntil"`
	Items             []ItemStateRecord    `json:"items"`
	Teams             []domain.TeamAccount `json:"teams"`
	Holdings          []domain.Holding     `json:"holdings"`
}

// ExportState returns a deep copy of the engine's full persistent state.
func (m *Market) ExportState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := State{
		CurrentRound: m.currentRound,
		ActiveEvent:  m.activeEvent,
		MarketFrozen: m.marketFrozen,
	}
	if m.eventRound != nil {
		r := *m.eventRound
		s.EventRound = &r
	}
	if m.marketFreezeUntil != nil {
		t := *m.marketFreezeUntil
		s.MarketFreezeUntil = &t
	}

	for _, id := range m.order {
		st := m.items[id]
		s.Items = append(s.Items, ItemStateRecord{
			ItemID:        id,
			Price:         st.price,
			PriceHistory:  append([]decimal.Decimal(nil), st.priceHistory...),
			ChangePercent: st.changePercent,
			Frozen:        st.frozen,
			AdminExtra:    st.adminExtra,
			NewsHistory:   append([]domain.NewsEntry(nil), st.newsHistory...),
		})
	}

	for _, acct := range m.teams {
		s.Teams = append(s.Teams, acct.Clone())
	}

	for _, teamHoldings := range m.holdings {
		for _, h := range teamHoldings {
			s.Holdings = append(s.Holdings, *h)
		}
	}
	return s
}

// RestoreState replaces the engine's state with a previously exported one.
// Items unknown to the catalog are rejected rather than silently dropped.
func (m *Market) RestoreState(s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.CurrentRound < 0 || s.CurrentRound > m.totalRounds {
		return fmt.Errorf("restored round %d out of range [0, %d]", s.CurrentRound, m.totalRounds)
	}

	m.initItemsLocked()
	m.currentRound = s.CurrentRound
	m.activeEvent = s.ActiveEvent
	if s.EventRound != nil {
		r := *s.EventRound
		m.eventRound = &r
	}
	m.marketFrozen = s.MarketFrozen
	if s.MarketFreezeUntil != nil {
		t := *s.MarketFreezeUntil
		m.marketFreezeUntil = &t
	}

	for _, rec := range s.Items {
		st, ok := m.items[rec.ItemID]
		if !ok {
			return fmt.Errorf("restored state references unknown item %s", rec.ItemID)
		}
		st.price = rec.Price
		st.priceHistory = append([]decimal.Decimal(nil), rec.PriceHistory...)
		st.changePercent = rec.ChangePercent
		st.frozen = rec.Frozen
		st.adminExtra = rec.AdminExtra
		st.newsHistory = append([]domain.NewsEntry(nil), rec.NewsHistory...)
	}

	m.teams = make(map[string]*domain.TeamAccount, len(s.Teams))
	for i := range s.Teams {
		acct := s.Teams[i]
		if acct.AppliedRefs == nil {
			acct.AppliedRefs = make(map[string]bool)
		}
		m.teams[acct.TeamID] = &acct
	}

	m.holdings = make(map[string]map[string]*domain.Holding)
	for i := range s.Holdings {
		h := s.Holdings[i]
		if _, ok := m.items[h.ItemID]; !ok {
			return fmt.Errorf("restored holding references unknown item %s", h.ItemID)
		}
		if m.holdings[h.TeamID] == nil {
			m.holdings[h.TeamID] = make(map[string]*domain.Holding)
		}
		m.holdings[h.TeamID][h.ItemID] = &h
	}
	return nil
}
