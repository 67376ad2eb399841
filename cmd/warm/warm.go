package warm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jsh-team/chunkbroker/cmd/shared"
	"github.com/jsh-team/chunkbroker/internal/broker"
	"github.com/jsh-team/chunkbroker/internal/config"
	"github.com/jsh-team/chunkbroker/internal/metrics"
	"github.com/jsh-team/chunkbroker/internal/stats"
	"github.com/jsh-team/chunkbroker/internal/utils/logger"
	warmpool "github.com/jsh-team/chunkbroker/internal/workers/warm"
)

var (
	namesFile   string
	metricsFile string
	saveDir     string
)

// chunkNames lists every name the bundler gave a chunk, in stats order
func chunkNames(s *stats.Stats) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, chunk := range s.Chunks {
		for _, name := range chunk.Names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

func runWarm(ctx context.Context, args []string) error {
	names, err := shared.ReadNames(args, namesFile)
	if err != nil {
		return err
	}

	fetcher := shared.Fetcher()
	s, err := shared.LoadStats(ctx, fetcher)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = chunkNames(s)
	}
	if len(names) == 0 {
		logger.Info("Nothing to warm")
		return nil
	}

	promRegistry := prometheus.NewRegistry()
	m := metrics.NewMetrics(promRegistry)
	registry := broker.NewRegistry(
		broker.WithObserver(m),
		broker.WithLogger(logger.Get()),
	)

	queueSize := config.WarmQueueSize
	if queueSize < len(names) {
		queueSize = len(names)
	}
	pool := warmpool.NewWarmWorkerPool(config.MaxConcurrentWarm, queueSize, warmpool.Config{
		Registry: registry,
		Stats:    s,
		Fetcher:  fetcher,
		Origin:   config.GetBundleOrigin(),
		Metrics:  m,
		SaveDir:  saveDir,
	})
	if err := pool.Start(); err != nil {
		return err
	}
	defer pool.Stop()

	for _, name := range names {
		if err := pool.SubmitJob(warmpool.WarmJob{Name: name}); err != nil {
			return fmt.Errorf("failed to submit warm job for %s: %w", name, err)
		}
	}

	bar := progressbar.NewOptions(len(names),
		progressbar.OptionSetDescription("Warming chunks"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionFullWidth(),
	)
	bar.RenderBlank()

	start := time.Now()
	results := make([]warmpool.WarmResult, 0, len(names))
	failed := 0
	for range names {
		select {
		case r := <-pool.Results():
			results = append(results, r)
			if r.Err != nil {
				failed++
			}
			bar.Add(1)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	files, bytes := warmpool.Totals(results)
	logger.Info("Warmed %d names (%d failed): %d files, %s in %s",
		len(names), failed, files, humanize.Bytes(uint64(bytes)), time.Since(start).Round(time.Millisecond))

	if metricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(metricsFile), 0755); err != nil {
			return fmt.Errorf("failed to create metrics dir: %w", err)
		}
		if err := metrics.WriteTextfile(metricsFile, promRegistry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d names failed to warm", failed, len(names))
	}
	return nil
}

var WarmCmd = &cobra.Command{
	Use:   "warm [names...]",
	Short: "Fetch the deployed files behind logical chunk names",
	Long: `Fetch every file of the chunks behind the given logical names, once per
file, to prime caches and check a deployment is complete. Without names, every
named chunk in the stats file is warmed.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWarm(cmd.Context(), args); err != nil {
			logger.Error("Warm failed: %v", err)
			os.Exit(1)
		}
	},
}

func init() {
	WarmCmd.Flags().StringVarP(&namesFile, "names-file", "f", "", "File listing one logical name per line")
	WarmCmd.Flags().StringVar(&config.Origin, "origin", "", "Origin for relative public paths, e.g. https://shop.example.com")
	WarmCmd.Flags().IntVarP(&config.MaxConcurrentWarm, "workers", "w", config.MaxConcurrentWarm, "Concurrent warm workers")
	WarmCmd.Flags().IntVar(&config.RequestsPerMinute, "rpm", config.RequestsPerMinute, "Maximum requests per minute")
	WarmCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus textfile metrics here")
	WarmCmd.Flags().StringVar(&saveDir, "save-dir", "", "Keep a content-addressed copy of every fetched file")
}
