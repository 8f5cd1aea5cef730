package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parleybot/parley/adapters/webchat"
	"github.com/parleybot/parley/internal/logutil"
	"github.com/parleybot/parley/internal/metrics"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webchat server with every configured tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			registry := prometheus.NewRegistry()
			metricSet := metrics.New(registry)

			rt, err := newRuntime(logger, metricSet)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			live, err := rt.start(ctx)
			if err != nil {
				return err
			}

			adapter, err := webchat.New(webchat.Options{Sink: rt.bus, Logger: logger})
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/ws", adapter.Handler())
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"ok":       true,
					"tenants":  live,
					"sessions": len(adapter.Sessions()),
					"time":     time.Now().Format(time.RFC3339Nano),
				})
			})

			bind := strings.TrimSpace(viper.GetString("server.bind"))
			port := viper.GetInt("server.port")
			addr := bind + ":" + strconv.Itoa(port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			logger.Info("server_start", "addr", addr, "tenants", live)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
			}

			logger.Info("server_stopping")
			shutdownTimeout := viper.GetDuration("server.shutdown_timeout")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http_shutdown_failed", "error", err.Error())
			}
			rt.shutdown(shutdownTimeout)
			logger.Info("server_stopped")
			return nil
		},
	}

	cmd.Flags().String("server-bind", "127.0.0.1", "Bind address.")
	cmd.Flags().Int("server-port", 8620, "HTTP port to listen on.")
	cmd.Flags().String("profile-dir", "profiles", "Directory of tenant profile YAML files.")
	cmd.Flags().String("history-dir", "data/history", "Directory for conversation transcripts.")

	_ = viper.BindPFlag("server.bind", cmd.Flags().Lookup("server-bind"))
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("server-port"))
	_ = viper.BindPFlag("profile_dir", cmd.Flags().Lookup("profile-dir"))
	_ = viper.BindPFlag("history_dir", cmd.Flags().Lookup("history-dir"))

	return cmd
}
