package bundles

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jsh-team/chunkbroker/internal/config"
	"github.com/jsh-team/chunkbroker/internal/stats"
)

type BundleInfo struct {
	Name     string
	Stats    string
	Size     string
	Chunks   string
	LastUsed string
}

// describe reads what can be known about a bundle without fetching it
func describe(name string, b config.BundleConfig) BundleInfo {
	info := BundleInfo{Name: name, Stats: b.Stats, Size: "-", Chunks: "-", LastUsed: "-"}
	if strings.HasPrefix(b.Stats, "http://") || strings.HasPrefix(b.Stats, "https://") {
		info.Size = "remote"
		return info
	}

	fi, err := os.Stat(b.Stats)
	if err != nil {
		info.Stats += " (not found)"
		return info
	}
	info.Size = humanize.Bytes(uint64(fi.Size()))
	info.LastUsed = humanize.Time(fi.ModTime())

	if s, err := stats.LoadFile(b.Stats); err == nil {
		info.Chunks = fmt.Sprintf("%d", len(s.Chunks))
	}
	return info
}

func listBundles() error {
	if len(config.GlobalConfig.Bundles) == 0 {
		fmt.Println("No bundles configured")
		return nil
	}

	names := make([]string, 0, len(config.GlobalConfig.Bundles))
	for name := range config.GlobalConfig.Bundles {
		names = append(names, name)
	}
	sort.Strings(names)

	// Print table header
	fmt.Printf("%-15s %-10s %-8s %-16s %s\n", "BUNDLE", "SIZE", "CHUNKS", "BUILT", "STATS")
	fmt.Println(strings.Repeat("-", 80))

	for _, name := range names {
		info := describe(name, config.GlobalConfig.Bundles[name])
		fmt.Printf("%-15s %-10s %-8s %-16s %s\n", info.Name, info.Size, info.Chunks, info.LastUsed, info.Stats)
	}
	return nil
}

var (
	addStats  string
	addOrigin string
)

var BundlesCmd = &cobra.Command{
	Use:   "bundles",
	Short: "List configured bundles",
	Long:  `List all configured bundles with the size, chunk count and age of their stats file.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := listBundles(); err != nil {
			fmt.Printf("Error listing bundles: %v\n", err)
			os.Exit(1)
		}
	},
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a bundle",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.SetupBundle(args[0], addStats, addOrigin); err != nil {
			fmt.Printf("Failed to setup bundle: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Bundle %s saved\n", args[0])
	},
}

func init() {
	addCmd.Flags().StringVar(&addStats, "stats-file", "", "Stats file or URL of the bundle")
	addCmd.Flags().StringVar(&addOrigin, "origin", "", "Origin serving the bundle's assets")
	BundlesCmd.AddCommand(addCmd)
}
