package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/macropower/reap/internal/cli"
	"github.com/macropower/reap/pkg/telemetry"
	"github.com/macropower/reap/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, "reap", version.GetVersion())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init telemetry: %v\n", err)
	}

	defer func() {
		err := shutdown(context.WithoutCancel(ctx))
		if err != nil {
			fmt.Fprintf(os.Stderr, "shutdown telemetry: %v\n", err)
		}
	}()

	err = fang.Execute(ctx, cli.NewRootCmd(),
		fang.WithVersion(version.String()),
		fang.WithCommit(version.Revision),
		fang.WithErrorHandler(cli.ErrorHandler),
	)
	if err != nil {
		return 1
	}

	return 0
}
