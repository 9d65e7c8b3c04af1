package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/web3guy0/lobster/internal/clanker"
	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/dexscreener"
	"github.com/web3guy0/lobster/internal/honeypot"
	"github.com/web3guy0/lobster/internal/meme"
)

func memeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meme",
		Short: "Scan DEX pairs and launchpads for meme coins",
	}
	cmd.AddCommand(memeScanCmd(a), memeLaunchesCmd(a), memeStatsCmd(a))
	return cmd
}

func (a *app) scanner(cmd *cobra.Command) (*meme.Scanner, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	hc := a.httpClient()
	dex := dexscreener.NewClient("", hc, a.responseCache(cmd.Context()), a.cfg.CacheTTL)
	return meme.NewScanner(dex, clanker.NewClient("", hc), honeypot.NewClient("", hc), db, a.metrics), nil
}

func memeScanCmd(a *app) *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Search the DEX aggregator with a scanner profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.cfg.Profile(profile)
			if err != nil {
				return err
			}
			s, err := a.scanner(cmd)
			if err != nil {
				return err
			}

			start := time.Now()
			report, err := s.Scan(cmd.Context(), p)
			if err != nil {
				return err
			}
			a.metrics.ReportGeneration.Observe(time.Since(start).Seconds())

			printReport(report.Text)
			return a.push(cmd.Context(), pushRun{
				kind:     database.KindMemeScan,
				title:    report.Title,
				body:     report.Text,
				reportID: report.ID,
				active:   report.Active(),
				fresh:    report.NewCount,
			})
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "scanner profile (built-in: base-ai, base-hot, bsc-meme)")
	return cmd
}

func memeLaunchesCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "launches",
		Short: "Report the newest launchpad tokens with DEX activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.scanner(cmd)
			if err != nil {
				return err
			}

			start := time.Now()
			report, err := s.ScanLaunches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			a.metrics.ReportGeneration.Observe(time.Since(start).Seconds())

			printReport(report.Text)
			return a.push(cmd.Context(), pushRun{
				kind:     database.KindLaunches,
				title:    report.Title,
				body:     report.Text,
				reportID: report.ID,
				active:   report.Active(),
				fresh:    report.NewCount,
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "launches to fetch from the launchpad")
	return cmd
}

func memeStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show token database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			stats, err := db.GetStats()
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "📊 Token database\n")
			fmt.Fprintf(&b, "   Tokens tracked: %d\n", stats.TotalTokens)
			fmt.Fprintf(&b, "   Seen repeatedly: %d\n", stats.RepeatedTokens)
			fmt.Fprintf(&b, "   Honeypots: %d\n", stats.HoneypotCount)
			fmt.Fprintf(&b, "   Tweets stored: %d\n", stats.TotalContents)
			fmt.Fprintf(&b, "   Reports: %d\n", stats.TotalReports)
			if len(stats.HotTokens) > 0 {
				fmt.Fprintf(&b, "🔁 Most sighted:\n")
				for _, t := range stats.HotTokens {
					fmt.Fprintf(&b, "   %s x%d\n", t.Symbol, t.SeenCount)
				}
			}
			printReport(b.String())
			return nil
		},
	}
}
