// Command worker runs the reconciliation jobs without the bot front end, for deployments
// that split update handling and scheduled sweeps across processes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/channelgate/channelgate/internal/interfaces/cli/app"
	"github.com/channelgate/channelgate/internal/shared/constants"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

func main() {
	env := constants.EnvDevelopment
	if len(os.Args) > 1 {
		env = os.Args[1]
	}

	cfg, log, err := app.Bootstrap(env, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Errorw("failed to build container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	mgr, err := container.StartScheduler()
	if err != nil {
		log.Errorw("failed to start scheduler", "error", err)
		return
	}
	log.Infow("reconciliation worker started", "environment", cfg.Server.Mode)

	<-ctx.Done()
	log.Infow("received signal, shutting down")

	if err := mgr.Stop(); err != nil {
		log.Errorw("scheduler shutdown failed", "error", err)
	}
	log.Infow("reconciliation worker stopped")
}
