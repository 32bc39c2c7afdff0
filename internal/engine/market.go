package engine

import (
	"fmt"
	"sync"
	"time"

	"carbon_market/internal/domain"

	"github.com/shopspring/decimal"
)

// itemState is the mutable per-item price state. priceHistory[0] is always
// the base price; price equals the last history entry.
type itemState struct {
	item          *domain.Item
	price         decimal.Decimal
	priceHistory  []decimal.Decimal
	changePercent decimal.Decimal
	frozen        bool
	newsHistory   []domain.NewsEntry
	adminExtra    decimal.Decimal
}

// Options tunes a Market instance. Zero values fall back to game defaults.
type Options struct {
	StartingBalance decimal.Decimal
	MinimumPrice    decimal.Decimal
	Clock           func() time.Time // injectable for tests
}

// Market is the authoritative market simulation and portfolio accounting
// engine. One instance owns all price state, team accounts and holdings;
// every operation runs under its mutex so admin actions and trades never
// observe a half-applied round.
type Market struct {
	mu sync.RWMutex

	catalog     *domain.Catalog
	items       map[string]*itemState
	order       []string // catalog order, for stable snapshots
	totalRounds int

	currentRound int
	activeEvent  domain.MarketEvent
	eventRound   *int

	marketFrozen      bool
	marketFreezeUntil *time.Time

	teams    map[string]*domain.TeamAccount
	holdings map[string]map[string]*domain.Holding // teamID -> itemID

	startingBalance decimal.Decimal
	minimumPrice    decimal.Decimal
	now             func() time.Time

	onChange func() // notified after every successful mutation, outside the lock
}

// NewMarket creates an engine at round 0 with every item at its base price.
func NewMarket(catalog *domain.Catalog, opts Options) (*Market, error) {
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	if opts.StartingBalance.IsZero() {
		opts.StartingBalance = decimal.NewFromInt(1000)
	}
	if opts.MinimumPrice.IsZero() {
		opts.MinimumPrice = decimal.NewFromInt(5)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	m := &Market{
		catalog:         catalog,
		totalRounds:     catalog.TotalRounds(),
		teams:           make(map[string]*domain.TeamAccount),
		holdings:        make(map[string]map[string]*domain.Holding),
		startingBalance: opts.StartingBalance,
		minimumPrice:    opts.MinimumPrice,
		now:             opts.Clock,
	}
	m.initItemsLocked()
	return m, nil
}

// SetOnChange registers a callback fired after each successful mutation
// (round advance, admin action, trade, adjustment). Used for persistence
// and websocket broadcast. Must be set before the engine is shared.
func (m *Market) SetOnChange(fn func()) {
	m.onChange = fn
}

func (m *Market) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}

// initItemsLocked resets all item state to catalog base prices.
func (m *Market) initItemsLocked() {
	m.items = make(map[string]*itemState, len(m.catalog.Items))
	m.order = m.order[:0]
	for i := range m.catalog.Items {
		it := &m.catalog.Items[i]
		m.items[it.ID] = &itemState{
			item:         it,
			price:        it.BasePrice,
			priceHistory: []decimal.Decimal{it.BasePrice},
		}
		m.order = append(m.order, it.ID)
	}
	m.currentRound = 0
	m.activeEvent = domain.EventNone
	m.eventRound = nil
	m.marketFrozen = false
	m.marketFreezeUntil = nil
}

// AdvanceRound moves the global round clock forward one step and reprices
// every item atomically: canonical percent + active event overlay + staged
// admin extra (consumed here). Returns the new round number.
func (m *Market) AdvanceRound() (int, error) {
	m.mu.Lock()

	if m.currentRound >= m.totalRounds {
		round := m.currentRound
		m.mu.Unlock()
		return round, domain.NewStateConflictError(
			fmt.Sprintf("all %d rounds have been played", m.totalRounds),
			domain.ErrRoundLimitReached)
	}

	m.currentRound++
	round := m.currentRound
	overlay := m.activeEvent.OverlayPercent()
	hundred := decimal.NewFromInt(100)

	for _, id := range m.order {
		st := m.items[id]
		rc, ok := st.item.RoundChange(round)
		if !ok {
			// Catalog validation guarantees this never happens.
			continue
		}

		effective := rc.Percent.Add(overlay).Add(st.adminExtra)
		st.adminExtra = decimal.Zero

		factor := decimal.NewFromInt(1).Add(effective.Div(hundred))
		newPrice := domain.Round2(st.price.Mul(factor))
		if newPrice.LessThan(m.minimumPrice) {
			newPrice = m.minimumPrice
		}

		st.price = newPrice
		st.priceHistory = append(st.priceHistory, newPrice)
		st.changePercent = effective
		st.newsHistory = append(st.newsHistory, domain.NewsEntry{
			Round:         round,
			News:          rc.News,
			PercentChange: effective,
			PriceAfter:    newPrice,
		})
	}

	m.mu.Unlock()
	m.notify()
	return round, nil
}

// SetItemFrozen flips an item's freeze flag. Idempotent. Frozen items still
// reprice on round advancement; only trading is blocked.
func (m *Market) SetItemFrozen(itemID string, frozen bool) error {
	m.mu.Lock()
	st, ok := m.items[itemID]
	if !ok {
		m.mu.Unlock()
		return &domain.NotFoundError{Kind: "item", ID: itemID}
	}
	st.frozen = frozen
	m.mu.Unlock()

	m.notify()
	return nil
}

// AdjustPrice stages an extra percent for the item's next round advancement.
// It does not move the current price. Staging again before the next round
// overwrites the previous value.
func (m *Market) AdjustPrice(itemID string, extraPercent decimal.Decimal) error {
	if extraPercent.Abs().GreaterThan(decimal.NewFromInt(100)) {
		return domain.NewValidationError("extraPercent",
			fmt.Errorf("must be between -100 and 100, got %s", extraPercent))
	}

	m.mu.Lock()
	st, ok := m.items[itemID]
	if !ok {
		m.mu.Unlock()
		return &domain.NotFoundError{Kind: "item", ID: itemID}
	}
	st.adminExtra = extraPercent
	m.mu.Unlock()

	m.notify()
	return nil
}

// TriggerEvent activates a market-wide overlay, or clears it when passed
// EventNone. The overlay is standing: it applies to every subsequent round
// until cleared.
func (m *Market) TriggerEvent(event domain.MarketEvent) error {
	if !event.Valid() {
		return domain.NewValidationError("event",
			fmt.Errorf("unknown event %q", event))
	}

	m.mu.Lock()
	if event == domain.EventNone {
		m.activeEvent = domain.EventNone
		m.eventRound = nil
	} else {
		m.activeEvent = event
		round := m.currentRound
		m.eventRound = &round
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

// FreezeMarket suspends all trading for the given duration. Zero minutes
// lifts the freeze immediately. Expiry is lazy: checked on every trade
// attempt and snapshot read, no timer involved.
func (m *Market) FreezeMarket(minutes int) error {
	if minutes < 0 {
		return domain.NewValidationError("durationMinutes",
			fmt.Errorf("must not be negative, got %d", minutes))
	}

	m.mu.Lock()
	if minutes == 0 {
		m.marketFrozen = false
		m.marketFreezeUntil = nil
	} else {
		until := m.now().Add(time.Duration(minutes) * time.Minute)
		m.marketFrozen = true
		m.marketFreezeUntil = &until
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

// Reset returns the market to its creation form (round 0, base prices, no
// event, unfrozen) and clears every team's holdings. Balances, quiz scores
// and transaction logs are untouched.
func (m *Market) Reset() {
	m.mu.Lock()
	m.initItemsLocked()
	m.holdings = make(map[string]map[string]*domain.Holding)
	m.mu.Unlock()

	m.notify()
}

// marketFrozenLocked applies lazy freeze expiry and reports the effective
// flag. Needs the write lock because an expired freeze is cleared in place.
func (m *Market) marketFrozenLocked() bool {
	if !m.marketFrozen {
		return false
	}
	if m.marketFreezeUntil != nil && !m.now().Before(*m.marketFreezeUntil) {
		m.marketFrozen = false
		m.marketFreezeUntil = nil
		return false
	}
	return true
}

// CurrentPrice returns the authoritative price for an item.
func (m *Market) CurrentPrice(itemID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.items[itemID]
	if !ok {
		return decimal.Decimal{}, &domain.NotFoundError{Kind: "item", ID: itemID}
	}
	return st.price, nil
}

// Snapshot returns a consistent point-in-time view of the whole market,
// grouped into stocks and commodities in catalog order.
func (m *Market) Snapshot() domain.MarketSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	frozen := m.marketFrozenLocked()

	snap := domain.MarketSnapshot{
		CurrentRound: m.currentRound,
		TotalRounds:  m.totalRounds,
		ActiveEvent:  m.activeEvent,
		MarketFrozen: frozen,
	}
	if m.eventRound != nil {
		r := *m.eventRound
		snap.EventRound = &r
	}
	if frozen && m.marketFreezeUntil != nil {
		t := *m.marketFreezeUntil
		snap.MarketFreezeUntil = &t
	}

	for _, id := range m.order {
		view := m.itemViewLocked(m.items[id])
		if view.Type == domain.ItemTypeCommodity {
			snap.Commodities = append(snap.Commodities, view)
		} else {
			snap.Stocks = append(snap.Stocks, view)
		}
	}
	return snap
}

func (m *Market) itemViewLocked(st *itemState) domain.ItemView {
	view := domain.ItemView{
		ID:                 st.item.ID,
		Symbol:             st.item.Symbol,
		Name:               st.item.Name,
		Type:               st.item.Type,
		BasePrice:          st.item.BasePrice,
		CurrentPrice:       st.price,
		ChangePercent:      st.changePercent,
		TotalChangePercent: domain.TotalChangePercent(st.item.BasePrice, st.price),
		IsFrozen:           st.frozen,
		PriceHistory:       append([]decimal.Decimal(nil), st.priceHistory...),
		NewsHistory:        append([]domain.NewsEntry(nil), st.newsHistory...),
	}
	if n := len(st.newsHistory); n > 0 {
		view.CurrentNews = st.newsHistory[n-1].News
	}
	return view
}
