package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/carepoint/api"
)

var (
	host string
	port int
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the session API for a local UI shell",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = host
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = port
		}

		logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), nil))
		rt, err := openRuntime(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := []api.Option{
			api.WithLogger(logger),
			api.WithProjection(projection(cfg)),
			api.WithActivityWebhook(cfg.Server.ActivityWebhookURL, cfg.Server.ActivityWebhookAuth),
			api.WithAlertFunc(func(ev api.AlertEvent) {
				logger.Warn("failure spike",
					slog.String("alert", string(ev.Type)),
					slog.String("message", ev.Message),
					slog.Int("count", ev.Count),
				)
			}),
		}
		if rt.client != nil {
			opts = append(opts, api.WithDoctors(rt.client))
		}
		a := api.New(rt.state, opts...)
		defer a.Close()

		view := rt.state.LoadSession(cmd.Context())

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(api.SecurityHeaders)
		r.Use(api.CORS(cfg.Server.CORSOrigins))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		out := cmd.OutOrStdout()
		printBanner(out)
		fmt.Fprintf(out, "Listening on http://%s (store: %s)\n", cfg.Server.Addr(), cfg.Store.Driver)
		if view.IsLoggedIn {
			fmt.Fprintf(out, "Restored %s session for %s\n", view.Source, view.Name)
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVar(&host, "host", "127.0.0.1", "Interface to listen on")
	serverCmd.Flags().IntVarP(&port, "port", "p", 8787, "Port to listen on")
}
