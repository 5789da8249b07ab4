package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"brandpulse/internal/bootstrap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, brand monitor and review consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := bootstrap.NewContainer(version)
			container.MustInit()

			if err := container.Start(); err != nil {
				container.Log.Errorw("Startup failed", "error", err)
				container.Shutdown()
				return err
			}

			waitForShutdown(container)
			container.Shutdown()
			return nil
		},
	}
}

// waitForShutdown blocks until a signal arrives or a component cancels the container
func waitForShutdown(c *bootstrap.Container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		c.Log.Infow("Shutdown signal received", "signal", sig.String())
	case <-c.Context.Done():
		c.Log.Warn("Container context cancelled, shutting down")
	}
}
