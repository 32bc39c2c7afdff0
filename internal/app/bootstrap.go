package app

import (
	"log/slog"
	"sync"

	"carbon_market/internal/engine"
	"carbon_market/internal/infra"
	"carbon_market/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Market  *engine.Market
	Metrics *infra.Metrics

	saveMu sync.Mutex
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{Metrics: &infra.Metrics{}}
}

// Initialize loads config, logging, storage and the market engine, restoring
// any persisted state from a previous run.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	catalog, err := infra.LoadCatalog(cfg.Game.CatalogPath)
	if err != nil {
		return err
	}

	store, err := storage.NewStorage(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("database initialized", slog.String("path", cfg.Storage.DBPath))

	market, err := engine.NewMarket(catalog, engine.Options{
		StartingBalance: cfg.Game.StartingBalance,
		MinimumPrice:    cfg.Game.MinimumPrice,
	})
	if err != nil {
		return err
	}
	b.Market = market

	state, found, err := store.LoadState()
	if err != nil {
		return err
	}
	if found {
		if err := market.RestoreState(state); err != nil {
			return err
		}
		slog.Info("market state restored",
			slog.Int("round", state.CurrentRound),
			slog.Int("teams", len(state.Teams)))
	} else {
		slog.Info("starting fresh market", slog.Int("items", len(catalog.Items)))
	}

	return nil
}

// PersistState saves the engine's current state. Serialized so overlapping
// change notifications cannot interleave partial writes.
func (b *Bootstrap) PersistState() {
	b.saveMu.Lock()
	defer b.saveMu.Unlock()

	if err := b.Storage.SaveState(b.Market.ExportState()); err != nil {
		b.Metrics.RecordError()
		slog.Error("failed to persist state", slog.Any("error", err))
	}
}
