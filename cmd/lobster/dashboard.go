package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/web3guy0/lobster/internal/dashboard"
	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/scheduler"
)

func dashboardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "HTML dashboard of stored reports",
	}
	cmd.AddCommand(dashboardServeCmd(a), dashboardRenderCmd(a))
	return cmd
}

func dashboardServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard, its JSON API and /metrics until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.DashboardAddr
			}
			return dashboard.NewServer(addr, db, a.metrics).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default DASHBOARD_ADDR)")
	return cmd
}

func dashboardRenderCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the dashboard as a static HTML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			view, err := dashboard.Build(cmd.Context(), db)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			tmp := out + ".tmp"
			f, err := os.Create(tmp)
			if err != nil {
				return err
			}
			if err := dashboard.Render(f, view); err != nil {
				f.Close()
				os.Remove(tmp)
				return fmt.Errorf("render dashboard: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			if err := os.Rename(tmp, out); err != nil {
				return err
			}
			log.Info().Str("path", out).Msg("✅ Dashboard written")
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "dashboard/index.html", "output file")
	return cmd
}

func pushCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push scheduler state",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the push mode of every report kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			for _, kind := range []string{database.KindMemeScan, database.KindLaunches, database.KindTweets, database.KindPrices, database.KindNews} {
				sch, err := scheduler.New(kind, db)
				if err != nil {
					return err
				}
				st := sch.State()
				last := "never"
				if st.LastPushAt != nil {
					last = st.LastPushAt.Format("2006-01-02 15:04")
				}
				fmt.Printf("%-10s %s (last push: %s)\n", kind, sch.Status(), last)
			}
			return nil
		},
	})
	return cmd
}
