package shared

import (
	"context"
	"fmt"

	"github.com/jsh-team/chunkbroker/internal/config"
	"github.com/jsh-team/chunkbroker/internal/emitter"
	"github.com/jsh-team/chunkbroker/internal/stats"
	"github.com/jsh-team/chunkbroker/internal/utils/fetch"
)

// Fetcher returns an asset fetcher limited to the configured request rate
func Fetcher() fetch.AssetFetcher {
	return fetch.NewAssetFetcher(config.RequestsPerMinute, nil)
}

// LoadStats loads the stats selected by --stats or --bundle
func LoadStats(ctx context.Context, fetcher fetch.AssetFetcher) (*stats.Stats, error) {
	source := config.GetBundleStats()
	if source == "" {
		return nil, fmt.Errorf("no stats source: pass --stats or --bundle")
	}
	return stats.Load(ctx, source, fetcher)
}

// EmitOptions builds emitter options from the config globals
func EmitOptions() (emitter.Options, error) {
	mode, err := emitter.ParseMode(config.ScriptMode)
	if err != nil {
		return emitter.Options{}, err
	}
	return emitter.Options{
		Mode:        mode,
		Preload:     config.Preload,
		Nonce:       config.Nonce,
		CrossOrigin: config.CrossOrigin,
		IslandID:    config.IslandID,
	}, nil
}
