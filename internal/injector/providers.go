package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/mathcraft/internal/cache"
	"github.com/zeusync/mathcraft/internal/config"
	"github.com/zeusync/mathcraft/internal/core/observability/log"
	"github.com/zeusync/mathcraft/internal/server"
)

// ProviderSet builds the collider server from a loaded config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideCache,
	server.NewServer,
	wire.Bind(new(log.Log), new(*log.Logger)),
)

func ProvideLogger(cfg *config.Config) *log.Logger {
	return log.New(cfg.Log.Level)
}

func ProvideCache(cfg *config.Config) *cache.SimulationCache {
	return cache.New(cfg.Cache.Shards, cfg.Cache.EntriesPerShard)
}
