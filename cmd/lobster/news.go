package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/news"
)

func newsCmd(a *app) *cobra.Command {
	var sources []string
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Finance headline digest from Sina, CLS, 36Kr and Zhitong",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			feeds, err := pickFeeds(news.DefaultFeeds(a.httpClient()), sources)
			if err != nil {
				return err
			}

			start := time.Now()
			digest, err := news.NewAggregator(feeds, db).Run(cmd.Context())
			if err != nil {
				return err
			}
			a.metrics.ReportGeneration.Observe(time.Since(start).Seconds())

			printReport(digest.Text)
			return a.push(cmd.Context(), pushRun{
				kind:     database.KindNews,
				title:    "Finance news",
				body:     digest.Text,
				reportID: digest.ReportID,
				active:   digest.Fresh(),
				fresh:    digest.Fresh(),
			})
		},
	}
	cmd.Flags().StringSliceVar(&sources, "source", nil, "feeds to read: sina, cls, 36kr, zhitong (default: all)")
	return cmd
}

func pickFeeds(all []news.Feed, names []string) ([]news.Feed, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]news.Feed, len(all))
	for _, f := range all {
		byName[f.Name()] = f
	}
	var picked []news.Feed
	for _, n := range names {
		f, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown news source %q", n)
		}
		picked = append(picked, f)
	}
	return picked, nil
}
