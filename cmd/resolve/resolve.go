package resolve

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsh-team/chunkbroker/cmd/shared"
	"github.com/jsh-team/chunkbroker/internal/resolver"
	"github.com/jsh-team/chunkbroker/internal/utils/logger"
)

var namesFile string

func runResolve(ctx context.Context, args []string) error {
	names, err := shared.ReadNames(args, namesFile)
	if err != nil {
		return err
	}

	s, err := shared.LoadStats(ctx, shared.Fetcher())
	if err != nil {
		return err
	}

	res := resolver.ResolveDetailed(s, names)

	// Print table header
	fmt.Printf("%-12s %-8s %-24s %s\n", "CHUNK", "LOADED", "NAMES", "FILES")
	fmt.Println(strings.Repeat("-", 80))

	for _, chunk := range res.Chunks {
		loaded := "lazy"
		if chunk.Entry {
			loaded = "entry"
		} else if chunk.Initial {
			loaded = "initial"
		}
		fmt.Printf("%-12s %-8s %-24s %s\n", chunk.ID, loaded, strings.Join(chunk.Names, ","), strings.Join(chunk.Files, " "))
	}

	for _, name := range res.Unresolved {
		logger.Warn("No chunk matches %s", name)
	}
	return nil
}

var ResolveCmd = &cobra.Command{
	Use:   "resolve [names...]",
	Short: "Show the chunks a set of logical names resolves to",
	Long: `Resolve logical chunk names against a bundler stats file and print the
chunks in the order their scripts must load, entry chunks first.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runResolve(cmd.Context(), args); err != nil {
			logger.Error("Resolve failed: %v", err)
			os.Exit(1)
		}
	},
}

func init() {
	ResolveCmd.Flags().StringVarP(&namesFile, "names-file", "f", "", "File listing one logical name per line")
}
