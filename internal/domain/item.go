package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Item types. Commodities trade exactly like stocks; the split only affects
// how the market snapshot groups them.
const (
	ItemTypeStock     = "stock"
	ItemTypeCommodity = "commodity"
)

// RoundChange is one row of an item's news table: the canonical percent
// change applied at that round and the headline shown with it.
type RoundChange struct {
	Percent decimal.Decimal `yaml:"percent" json:"percent"`
	News    string          `yaml:"news" json:"news"`
}

// Item is a static catalog entry for one tradable stock or commodity.
// Immutable after catalog load; Rounds is 1-indexed via RoundChange(r).
type Item struct {
	ID        string          `yaml:"id" json:"id"`
	Symbol    string          `yaml:"symbol" json:"symbol"`
	Name      string          `yaml:"name" json:"name"`
	Type      string          `yaml:"type" json:"type"`
	BasePrice decimal.Decimal `yaml:"base_price" json:"basePrice"`
	Rounds    []RoundChange   `yaml:"rounds" json:"rounds"`
}

// RoundChange returns the canonical change for round r (1-indexed).
func (it *Item) RoundChange(r int) (RoundChange, bool) {
	if r < 1 || r > len(it.Rounds) {
		return RoundChange{}, false
	}
	return it.Rounds[r-1], true
}

// Catalog is the full set of tradable items loaded at startup.
type Catalog struct {
	Items []Item `yaml:"items"`
}

// TotalRounds returns the number of news rounds the catalog defines.
// Valid catalogs have the same round count on every item.
func (c *Catalog) TotalRounds() int {
	if len(c.Items) == 0 {
		return 0
	}
	return len(c.Items[0].Rounds)
}

// Find returns the item with the given id.
func (c *Catalog) Find(id string) (*Item, bool) {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// Validate checks catalog integrity: at least one item, unique ids, known
// types, positive base prices, and a consistent round count across items.
func (c *Catalog) Validate() error {
	if len(c.Items) == 0 {
		return fmt.Errorf("catalog has no items")
	}

	rounds := len(c.Items[0].Rounds)
	if rounds == 0 {
		return fmt.Errorf("catalog item %s has no rounds", c.Items[0].ID)
	}

	seen := make(map[string]bool, len(c.Items))
	for i := range c.Items {
		it := &c.Items[i]
		if it.ID == "" || it.Symbol == "" {
			return fmt.Errorf("catalog item %d missing id or symbol", i)
		}
		if seen[it.ID] {
			return fmt.Errorf("duplicate item id: %s", it.ID)
		}
		seen[it.ID] = true

		if it.Type != ItemTypeStock && it.Type != ItemTypeCommodity {
			return fmt.Errorf("item %s has unknown type %q", it.ID, it.Type)
		}
		if !it.BasePrice.IsPositive() {
			return fmt.Errorf("item %s has non-positive base price", it.ID)
		}
		if len(it.Rounds) != rounds {
			return fmt.Errorf("item %s has %d rounds, expected %d", it.ID, len(it.Rounds), rounds)
		}
	}
	return nil
}

// DefaultCatalog returns the built-in game catalog used when no catalog file
// is configured. Four news rounds per item.
func DefaultCatalog() *Catalog {
	d := func(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }
	return &Catalog{Items: []Item{
		{
			ID: "greenvolt", Symbol: "GRNV", Name: "GreenVolt Energy", Type: ItemTypeStock, BasePrice: d(120),
			Rounds: []RoundChange{
				{Percent: d(12), News: "GreenVolt wins national solar grid contract"},
				{Percent: d(-8), News: "Grid rollout delayed by permit disputes"},
				{Percent: d(15), News: "Quarterly output beats forecasts"},
				{Percent: d(5), News: "New storage facility comes online"},
			},
		},
		{
			ID: "ecotran", Symbol: "ECOT", Name: "EcoTransit Motors", Type: ItemTypeStock, BasePrice: d(85),
			Rounds: []RoundChange{
				{Percent: d(-15), News: "Battery recall hits EcoTransit fleet"},
				{Percent: d(20), News: "Government doubles EV purchase subsidy"},
				{Percent: d(-5), News: "Charging network expansion behind schedule"},
				{Percent: d(10), News: "Record pre-orders for the new model"},
			},
		},
		{
			ID: "aquapure", Symbol: "AQUA", Name: "AquaPure Systems", Type: ItemTypeStock, BasePrice: d(60),
			Rounds: []RoundChange{
				{Percent: d(8), News: "AquaPure filtration adopted by three cities"},
				{Percent: d(6), News: "Desalination pilot exceeds targets"},
				{Percent: d(-12), News: "Contamination lawsuit filed against plant"},
				{Percent: d(9), News: "Lawsuit settled, operations resume"},
			},
		},
		{
			ID: "windward", Symbol: "WIND", Name: "Windward Turbines", Type: ItemTypeStock, BasePrice: d(150),
			Rounds: []RoundChange{
				{Percent: d(-10), News: "Offshore project stalled by storms"},
				{Percent: d(14), News: "Turbine efficiency breakthrough announced"},
				{Percent: d(7), News: "Export deal signed with two countries"},
				{Percent: d(-6), News: "Maintenance costs revised upward"},
			},
		},
		{
			ID: "verdant", Symbol: "VRDT", Name: "Verdant Farms", Type: ItemTypeStock, BasePrice: d(45),
			Rounds: []RoundChange{
				{Percent: d(10), News: "Vertical farm yields double projections"},
				{Percent: d(-7), News: "Energy prices squeeze greenhouse margins"},
				{Percent: d(11), News: "Retail chain signs supply agreement"},
				{Percent: d(4), News: "Organic certification granted"},
			},
		},
		{
			ID: "carbon-credit", Symbol: "CCRD", Name: "Carbon Credits", Type: ItemTypeCommodity, BasePrice: d(100),
			Rounds: []RoundChange{
				{Percent: d(18), News: "Cap tightened: carbon credit demand surges"},
				{Percent: d(-10), News: "Regulator releases extra credit supply"},
				{Percent: d(12), News: "Heavy industry rushes to offset emissions"},
				{Percent: d(8), News: "International registries agree to link"},
			},
		},
		{
			ID: "lithium", Symbol: "LITH", Name: "Lithium", Type: ItemTypeCommodity, BasePrice: d(75),
			Rounds: []RoundChange{
				{Percent: d(15), News: "Battery boom strains lithium supply"},
				{Percent: d(-12), News: "Major new deposit discovered"},
				{Percent: d(6), News: "Refinery capacity lags mining output"},
				{Percent: d(-4), News: "Recycling tech cuts raw demand"},
			},
		},
		{
			ID: "timber", Symbol: "TMBR", Name: "Sustainable Timber", Type: ItemTypeCommodity, BasePrice: d(55),
			Rounds: []RoundChange{
				{Percent: d(-6), News: "Certified timber imports flood market"},
				{Percent: d(9), News: "Construction shifts to mass timber"},
				{Percent: d(-8), News: "Wildfire season disrupts harvests"},
				{Percent: d(13), News: "Replanting subsidies lift certified supply"},
			},
		},
	}}
}
