package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"

	"github.com/dirt-rain/code-editor-agent/internal/cli"
	"github.com/dirt-rain/code-editor-agent/pkg/telemetry"
	"github.com/dirt-rain/code-editor-agent/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, "code-editor-agent", version.GetVersion())
	if err != nil {
		slog.Warn("tracing disabled", slog.Any("error", err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()

			err := shutdown(shutdownCtx)
			if err != nil {
				slog.Warn("flush traces", slog.Any("error", err))
			}
		}()
	}

	err = fang.Execute(ctx, cli.NewRootCmd(),
		fang.WithVersion(version.String()),
		fang.WithErrorHandler(cli.ErrorHandler),
	)
	if err != nil {
		return 1
	}

	return 0
}
