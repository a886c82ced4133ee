package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/raincoat/internal/api/http"
	"github.com/i474232898/raincoat/internal/scheduler"
	"github.com/i474232898/raincoat/internal/store"
	"github.com/i474232898/raincoat/internal/weather"
)

func newServeCmd(d deps) *cobra.Command {
	var port string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve outfit recommendations over HTTP",
		Long: `Start an HTTP API that answers outfit recommendations for ZIP codes and
explicit temperatures. ZIP codes listed in WATCH_ZIPS are refreshed on a
schedule so their reports are ready before they are asked for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetOutput(cmd.ErrOrStderr())

			cfg, err := d.loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			builder, err := newBuilder(cfg)
			if err != nil {
				return err
			}

			provider, err := d.newProvider(cfg)
			if err != nil {
				return err
			}

			// In-memory store with configured retention.
			memStore := store.NewMemoryStore(builder, cfg.StoreMaxHistory, cfg.StoreMaxAge)
			service := weather.NewService(provider, memStore, cfg.ReportMaxAge)

			// Scheduler that periodically refreshes watched locations.
			sched := scheduler.New(cfg.WatchLocations(), cfg.FetchInterval, service, builder)
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			app := httpapi.NewApp("raincoat")
			httpapi.RegisterRoutes(app, service, memStore, builder, cfg.CountryCode)

			go func() {
				log.Printf("INFO: listening on :%s using %s", cfg.Port, provider.Name())
				if err := app.Listen(":" + cfg.Port); err != nil {
					log.Printf("fiber server stopped: %v", err)
				}
			}()

			// Wait for termination signal
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				log.Printf("error during shutdown: %v", err)
			}
			return nil
		},
	}

	serveCmd.Flags().StringVar(&port, "port", "", "Port to listen on (default: PORT or 8080)")

	return serveCmd
}
