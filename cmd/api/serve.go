package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-api-magiclink/internal/application/auth"
	"github.com/go-api-magiclink/internal/config"
	jwtinfra "github.com/go-api-magiclink/internal/infrastructure/jwt"
	"github.com/go-api-magiclink/internal/pkg/secret"
	transporthttp "github.com/go-api-magiclink/internal/transport/http"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireSigningKey(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The provider is the only holder of the signing key from here on.
	jwtProvider, err := jwtinfra.NewProvider(cfg.JWTSecret, cfg.BaseURL)
	if err != nil {
		return err
	}
	cfg.JWTSecret = secret.Value{}

	store, err := newBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	defer store.close()

	notifier, err := newNotifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create %s notifier: %w", cfg.Notifier, err)
	}

	svc := auth.NewService(store.codes, store.users, notifier, jwtProvider, authOptions(cfg))
	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{Auth: svc, Store: store.ping})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"store", cfg.StoreBackend, "notifier", cfg.Notifier)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
