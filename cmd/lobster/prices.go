package main

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/web3guy0/lobster/internal/binance"
	"github.com/web3guy0/lobster/internal/dashboard"
	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/prices"
	"github.com/web3guy0/lobster/internal/twelvedata"
)

func pricesCmd(a *app) *cobra.Command {
	var crypto, stocks []string
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Price report for crypto (Binance) and US stocks (Twelve Data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}

			w := prices.DefaultWatchlist()
			if cmd.Flags().Changed("crypto") {
				w.Crypto = crypto
			}
			if cmd.Flags().Changed("stocks") {
				w.Stocks = stocks
			}

			hc := a.httpClient()
			var stockSrc prices.StockSource
			if err := a.cfg.RequireTwelveData(); err != nil {
				log.Warn().Err(err).Msg("Skipping stocks")
			} else if len(w.Stocks) > 0 {
				stockSrc = twelvedata.NewClient("", a.cfg.TwelveDataAPIKey, hc)
			}
			tracker := prices.NewTracker(binance.NewClient("", "", hc), stockSrc, db)

			start := time.Now()
			snap, err := tracker.Snapshot(cmd.Context(), w)
			if err != nil {
				return err
			}
			a.metrics.ReportGeneration.Observe(time.Since(start).Seconds())

			printReport(snap.Text)
			active := len(snap.Crypto) + len(snap.Stocks) - snap.Failed()
			return a.push(cmd.Context(), pushRun{
				kind:     database.KindPrices,
				title:    "Price report",
				body:     snap.Text,
				reportID: snap.ID,
				active:   active,
			})
		},
	}
	cmd.Flags().StringSliceVar(&crypto, "crypto", nil, "Binance symbols, e.g. BTCUSDT (default: majors)")
	cmd.Flags().StringSliceVar(&stocks, "stocks", nil, "stock symbols, e.g. NVTS (default: watchlist)")
	cmd.AddCommand(pricesStreamCmd(a))
	return cmd
}

func pricesStreamCmd(a *app) *cobra.Command {
	var symbols []string
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Live Binance mini tickers until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			board := dashboard.NewTickerBoard(os.Stdout)
			board.Start()
			defer board.Stop()

			client := binance.NewClient("", "", a.httpClient())
			return client.Stream(cmd.Context(), symbols, board.Update)
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", prices.DefaultWatchlist().Crypto, "Binance symbols to stream")
	return cmd
}
