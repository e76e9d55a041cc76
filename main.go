package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brdk/as-help-index/pkg/cmd"
)

// version and appName are injected at build time via -ldflags.
var (
	version = "dev"
	appName = "as-help-index"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh // first signal: trigger graceful shutdown
		cancel()
		<-sigCh // second signal: force exit
		fmt.Fprintln(os.Stderr, "\nForced exit")
		os.Exit(1)
	}()

	rootCmd := cmd.InitCommand(cmd.BuildInfo{
		Version: version,
		AppName: appName,
	})

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
