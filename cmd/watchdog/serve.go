// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kaamos-labs/watchdog/internal/store"
	"github.com/kaamos-labs/watchdog/internal/webadmin"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin/status HTTP API",
	Long: `Serve starts the admin server: GET /healthz (public database probe)
plus GET /api/admin/stats and GET /api/admin/sources guarded by the
X-Admin-Token header. With no admin token configured the guarded
endpoints fail closed with 503.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "bind address (overrides admin.listen_addr)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Admin.ListenAddr = listen
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Admin.Token == "" {
		logger.Warn("no admin token configured; /api/admin endpoints will return 503")
	}

	st, err := store.NewStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving admin API on %s\n", cfg.Admin.ListenAddr)
	return webadmin.NewServer(st, cfg.Admin, cfg.LLM.MonthlyBudgetEUR, logger).Run(ctx)
}
