package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func validCatalog() *Catalog {
	d := decimal.NewFromInt
	return &Catalog{Items: []Item{
		{
			ID: "a", Symbol: "AAA", Name: "Alpha", Type: ItemTypeStock, BasePrice: d(100),
			Rounds: []RoundChange{{Percent: d(5), News: "up"}, {Percent: d(-5), News: "down"}},
		},
		{
			ID: "b", Symbol: "BBB", Name: "Beta", Type: ItemTypeCommodity, BasePrice: d(50),
			Rounds: []RoundChange{{Percent: d(1), News: "x"}, {Percent: d(2), News: "y"}},
		},
	}}
}

func TestCatalogValidate(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		c := validCatalog()
		if err := c.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if c.TotalRounds() != 2 {
			t.Errorf("TotalRounds = %d, want 2", c.TotalRounds())
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		c := &Catalog{}
		if err := c.Validate(); err == nil {
			t.Error("empty catalog should fail validation")
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		c := validCatalog()
		c.Items[1].ID = "a"
		if err := c.Validate(); err == nil {
			t.Error("duplicate id should fail validation")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		c := validCatalog()
		c.Items[0].Type = "bond"
		if err := c.Validate(); err == nil {
			t.Error("unknown type should fail validation")
		}
	})

	t.Run("non-positive base price", func(t *testing.T) {
		c := validCatalog()
		c.Items[0].BasePrice = decimal.Zero
		if err := c.Validate(); err == nil {
			t.Error("zero base price should fail validation")
		}
	})

	t.Run("mismatched round counts", func(t *testing.T) {
		c := validCatalog()
		c.Items[1].Rounds = c.Items[1].Rounds[:1]
		if err := c.Validate(); err == nil {
			t.Error("mismatched round counts should fail validation")
		}
	})
}

func TestItemRoundChange(t *testing.T) {
	c := validCatalog()
	it := &c.Items[0]

	rc, ok := it.RoundChange(1)
	if !ok || rc.News != "up" {
		t.Errorf("RoundChange(1) = %+v, %v", rc, ok)
	}
	if _, ok := it.RoundChange(0); ok {
		t.Error("round 0 must not resolve (rounds are 1-indexed)")
	}
	if _, ok := it.RoundChange(3); ok {
		t.Error("round beyond table must not resolve")
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if err := c.Validate(); err != nil {
		t.Fatalf("built-in catalog must validate: %v", err)
	}
	if c.TotalRounds() != 4 {
		t.Errorf("TotalRounds = %d, want 4", c.TotalRounds())
	}

	stocks, commodities := 0, 0
	for _, it := range c.Items {
		switch it.Type {
		case ItemTypeStock:
			stocks++
		case ItemTypeCommodity:
			commodities++
		}
	}
	if stocks == 0 || commodities == 0 {
		t.Errorf("catalog should mix stocks (%d) and commodities (%d)", stocks, commodities)
	}
}
