package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsh-team/chunkbroker/cmd/bundles"
	"github.com/jsh-team/chunkbroker/cmd/inspect"
	"github.com/jsh-team/chunkbroker/cmd/name"
	"github.com/jsh-team/chunkbroker/cmd/resolve"
	"github.com/jsh-team/chunkbroker/cmd/scripts"
	"github.com/jsh-team/chunkbroker/cmd/warm"
	"github.com/jsh-team/chunkbroker/internal/config"
	"github.com/jsh-team/chunkbroker/internal/utils/logger"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"

	logLevel string

	rootCmd = &cobra.Command{
		Use:   "chunkbroker",
		Short: "Map lazy chunk names onto bundler output",
		Long: `chunkbroker resolves the logical chunk names recorded during a server
render onto the chunks of a bundler stats file, and emits the script tags and
hydration data a page needs to load them.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("log-level") {
				return logger.SetLevel(logLevel)
			}
			return nil
		},
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chunkbroker %s\n", version)
			fmt.Printf("Build time: %s\n", buildTime)
			fmt.Printf("Git commit: %s\n", gitCommit)
		},
	}
)

// SetVersion sets the version information
func SetVersion(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
	rootCmd.Version = v
}

// Execute loads the config file, then runs the root command. The config is
// read before flags are parsed so explicit flags win over file values.
func Execute() error {
	config.LoadConfig()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&config.Bundle, "bundle", "b", "", "Configured bundle to use")
	rootCmd.PersistentFlags().StringVarP(&config.StatsPath, "stats", "s", "", "Bundler stats file or URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(resolve.ResolveCmd)
	rootCmd.AddCommand(scripts.ScriptsCmd)
	rootCmd.AddCommand(warm.WarmCmd)
	rootCmd.AddCommand(inspect.InspectCmd)
	rootCmd.AddCommand(name.NameCmd)
	rootCmd.AddCommand(bundles.BundlesCmd)
	rootCmd.AddCommand(versionCmd)
}
