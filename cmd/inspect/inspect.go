package inspect

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsh-team/chunkbroker/cmd/shared"
	"github.com/jsh-team/chunkbroker/internal/broker"
	"github.com/jsh-team/chunkbroker/internal/config"
	"github.com/jsh-team/chunkbroker/internal/hydrate"
	"github.com/jsh-team/chunkbroker/internal/utils/fetch"
	"github.com/jsh-team/chunkbroker/internal/utils/logger"
)

var seed bool

// openPage reads a rendered page from a file, a URL or stdin ("-")
func openPage(ctx context.Context, source string) (io.Reader, error) {
	switch {
	case source == "-":
		return os.Stdin, nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		resp, err := shared.Fetcher().RateLimitedGet(ctx, source)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, &fetch.StatusError{URL: source, StatusCode: resp.StatusCode}
		}
		return bytes.NewReader(resp.Body), nil
	default:
		f, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read page: %w", err)
		}
		return bytes.NewReader(f), nil
	}
}

func runInspect(ctx context.Context, source string) error {
	r, err := openPage(ctx, source)
	if err != nil {
		return err
	}

	page, err := hydrate.ReadPage(r, config.IslandID)
	if err != nil {
		return err
	}

	fmt.Printf("%-32s %s\n", "NAME", "MODULE")
	fmt.Println(strings.Repeat("-", 80))
	for _, name := range page.Island.Names() {
		fmt.Printf("%-32s %s\n", name, page.Island[name])
	}

	fmt.Println()
	fmt.Printf("%-8s %-40s %s\n", "MODE", "SRC", "CHUNKS")
	fmt.Println(strings.Repeat("-", 80))
	for _, script := range page.Scripts {
		mode := "defer"
		if script.Async {
			mode = "async"
		}
		fmt.Printf("%-8s %-40s %s\n", mode, script.Src, strings.Join(script.Chunks, ","))
	}

	// Names announced by a script but absent from the island will be
	// fetched again on the client
	announced := make(map[string]bool)
	for _, script := range page.Scripts {
		for _, name := range script.Chunks {
			announced[name] = true
		}
	}
	for name := range announced {
		if _, ok := page.Island[name]; !ok {
			logger.Warn("%s is announced by a script but missing from the island", name)
		}
	}

	if seed {
		registry := broker.NewRegistry(broker.WithLogger(logger.Get()))
		seeded, _ := hydrate.Seed(registry, page.Island, nil)
		logger.Info("Seeded %d chunks as %s", len(seeded), broker.Resolved)
	}
	return nil
}

var InspectCmd = &cobra.Command{
	Use:   "inspect <page.html|url|->",
	Short: "Read the chunk island and scripts of a rendered page",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInspect(cmd.Context(), args[0]); err != nil {
			logger.Error("Inspect failed: %v", err)
			os.Exit(1)
		}
	},
}

func init() {
	InspectCmd.Flags().StringVar(&config.IslandID, "island-id", config.IslandID, "Element id of the JSON island")
	InspectCmd.Flags().BoolVar(&seed, "seed", false, "Seed a registry from the island and report it")
}
