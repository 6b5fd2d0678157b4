package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/go-api-magiclink/internal/config"
	"github.com/go-api-magiclink/internal/infrastructure/postgres"
)

// NewPurgeCodesCmd creates the purge-codes subcommand. Expired codes are
// rejected at redemption regardless; this only reclaims rows.
func NewPurgeCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-codes",
		Short: "Delete expired verification codes (postgres backend)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			if cfg.StoreBackend != config.StorePostgres {
				return oops.Code("CONFIG_INVALID").Errorf("purge-codes needs the postgres backend; dynamo expires codes by TTL")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.StoreTimeout)
			defer cancel()

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := postgres.NewVerificationCodeRepo(pool).DeleteExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			cmd.Printf("purged %d expired codes\n", n)
			return nil
		},
	}
}
