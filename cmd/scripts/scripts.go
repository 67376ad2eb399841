package scripts

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsh-team/chunkbroker/cmd/shared"
	"github.com/jsh-team/chunkbroker/internal/config"
	"github.com/jsh-team/chunkbroker/internal/emitter"
	"github.com/jsh-team/chunkbroker/internal/utils/logger"
)

var (
	namesFile string
	outFile   string
)

func runScripts(ctx context.Context, args []string) error {
	names, err := shared.ReadNames(args, namesFile)
	if err != nil {
		return err
	}

	opts, err := shared.EmitOptions()
	if err != nil {
		return err
	}

	s, err := shared.LoadStats(ctx, shared.Fetcher())
	if err != nil {
		return err
	}

	markup, err := emitter.Render(s, names, opts)
	if err != nil {
		return err
	}

	for _, name := range names {
		if _, ok := markup.Modules[name]; !ok {
			logger.Debug("No module satisfies %s, leaving it out of the island", name)
		}
	}

	out := markup.String() + "\n"
	if outFile == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(outFile, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outFile, err)
	}
	logger.Info("Wrote %d scripts to %s", len(markup.Scripts), outFile)
	return nil
}

var ScriptsCmd = &cobra.Command{
	Use:   "scripts [names...]",
	Short: "Emit script tags for a set of logical names",
	Long: `Emit the <script> and <link> tags plus the JSON island a server rendered
page needs to load the chunks behind the given logical names.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runScripts(cmd.Context(), args); err != nil {
			logger.Error("Script emission failed: %v", err)
			os.Exit(1)
		}
	},
}

func init() {
	ScriptsCmd.Flags().StringVarP(&namesFile, "names-file", "f", "", "File listing one logical name per line")
	ScriptsCmd.Flags().StringVarP(&outFile, "out", "o", "", "Write markup to a file instead of stdout")
	ScriptsCmd.Flags().StringVar(&config.ScriptMode, "mode", config.ScriptMode, "Script loading: entry-async, defer or async")
	ScriptsCmd.Flags().BoolVar(&config.Preload, "preload", config.Preload, "Emit preload links ahead of the scripts")
	ScriptsCmd.Flags().StringVar(&config.Nonce, "nonce", "", "CSP nonce for every emitted tag")
	ScriptsCmd.Flags().StringVar(&config.CrossOrigin, "crossorigin", config.CrossOrigin, "crossorigin attribute value")
	ScriptsCmd.Flags().StringVar(&config.IslandID, "island-id", config.IslandID, "Element id of the JSON island")
}
