// Command cleardues runs the ClearDues server: a shared-expense ledger
// with settlement minimization for groups.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleardues/cleardues/internal/api"
	"github.com/cleardues/cleardues/internal/auth"
	"github.com/cleardues/cleardues/internal/config"
	"github.com/cleardues/cleardues/internal/storage/sqlite"
	"github.com/cleardues/cleardues/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "cleardues",
		Short:         "ClearDues shared-expense and settlement server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to TOML config file")

	root.AddCommand(newServeCmd(&cfgPath))
	return root
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logging.SetupWithLevel(logging.ParseLevel(cfg.Log.Level))

			store, err := sqlite.New(cfg.Server.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			jwt := auth.NewJWTManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
			server := api.NewServer(store, auth.NewPasswordAuthenticator(store), jwt)

			slog.Info("starting server", "addr", cfg.Server.Addr, "db", cfg.Server.DBPath)
			return http.ListenAndServe(cfg.Server.Addr, server.Handler())
		},
	}
}
