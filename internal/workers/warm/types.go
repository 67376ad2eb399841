package warm

import (
	"context"
	"sync"
	"time"

	"github.com/jsh-team/chunkbroker/internal/broker"
	"github.com/jsh-team/chunkbroker/internal/metrics"
	"github.com/jsh-team/chunkbroker/internal/stats"
	"github.com/jsh-team/chunkbroker/internal/utils/fetch"
)

// WarmJob asks the pool to fetch every file behind one logical chunk name
type WarmJob struct {
	Name string
}

// FileResult is the outcome of fetching one physical file
type FileResult struct {
	URL   string
	Kind  string // "script" or "style"
	Bytes int
	Hash  string // sha256 of the decompressed body
	Path  string // set when the pool saves assets
	Err   error
}

// Summary is the value a warmed name resolves to in the registry
type Summary struct {
	Name   string
	Chunks []stats.ID
	Files  []FileResult
	Bytes  int64
}

// WarmResult is reported once per submitted job
type WarmResult struct {
	Name     string
	Summary  *Summary
	Err      error
	Duration time.Duration
}

// Config wires the pool to the registry it loads through and the bundle it
// warms
type Config struct {
	Registry *broker.Registry
	Stats    *stats.Stats
	Fetcher  fetch.AssetFetcher
	// Origin is used when the public path is not an absolute URL
	Origin  string
	Metrics *metrics.Metrics
	// SaveDir, when set, receives a content-addressed copy of every file
	SaveDir string
}

// WarmWorkerPool fetches chunk files through a registry so each logical name,
// and each physical file, is fetched at most once
type WarmWorkerPool struct {
	workers   int
	jobQueue  chan WarmJob
	results   chan WarmResult
	workerWg  sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	mu        sync.RWMutex

	cfg Config
	// files dedupes physical files shared between names
	files *broker.Registry
}
