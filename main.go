package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jsh-team/chunkbroker/cmd"
)

// Version information set during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Set version information in cmd package
	cmd.SetVersion(Version, BuildTime, GitCommit)

	// Set up signal handling for immediate shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalChan
		os.Exit(130)
	}()

	// Execute command
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
