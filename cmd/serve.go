package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/faizanamer123/openassign-call/internal/config"
	"github.com/faizanamer123/openassign-call/internal/logging"
	"github.com/faizanamer123/openassign-call/internal/server"
	"github.com/faizanamer123/openassign-call/internal/signaling"
)

const shutdownTimeout = 5 * time.Second

var (
	flagListen  string
	flagOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	Long: `Run the signaling relay. Peers connect to /ws; /health and /rooms are
available for operators.

Examples:
  assigncall serve
  assigncall serve --listen :9000 --origin https://call.example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{
			File:           flagConfig,
			ListenAddr:     flagListen,
			AllowedOrigins: flagOrigins,
			LogLevel:       flagLogLevel,
		})
		if err != nil {
			return err
		}
		log := logging.Init(cfg.LogLevel, slog.LevelInfo)
		return serve(cmd.Context(), cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	router := signaling.NewRouter(signaling.NewRegistry(signaling.NewRooms()), signaling.RouterOptions{
		MessageRate:  cfg.MessageRate,
		MessageBurst: cfg.MessageBurst,
		Logger:       log,
	})

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: server.NewHandler(router, server.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting signaling server", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down", "connections", router.Connections())

		// Hijacked websockets are not tracked by Shutdown.
		router.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Listen address (default :8080)")
	serveCmd.Flags().StringSliceVar(&flagOrigins, "origin", nil, "Allowed websocket origin (repeatable, * for any)")
}
