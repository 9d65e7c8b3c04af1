package main

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/twitter"
)

func tweetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tweets",
		Short: "Monitor X accounts for new tweets",
	}
	cmd.AddCommand(tweetsWatchCmd(a))
	return cmd
}

func tweetsWatchCmd(a *app) *cobra.Command {
	var (
		users    []string
		keywords []string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report tweets posted since the last run, scored for market impact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireTwitter(); err != nil {
				return err
			}
			db, err := a.database()
			if err != nil {
				return err
			}
			client := twitter.NewClient("", a.cfg.TwitterAPIKey, a.httpClient())
			mon := twitter.NewMonitor(client, db, a.metrics)

			for _, user := range users {
				fresh, err := mon.Check(cmd.Context(), user)
				if err != nil {
					return err
				}
				if len(fresh) == 0 {
					log.Info().Str("user", user).Msg("No new tweets")
					continue
				}

				analyses := make([]twitter.Analysis, len(fresh))
				for i, t := range fresh {
					analyses[i] = twitter.Analyze(t)
				}
				text := twitter.RenderAlert(user, analyses, keywords, time.Now())

				row := &database.Report{
					Kind:        database.KindTweets,
					Title:       "New tweets from @" + user,
					Body:        text,
					ActiveCount: len(fresh),
				}
				if err := db.SaveReport(row); err != nil {
					return err
				}

				printReport(text)
				if err := a.push(cmd.Context(), pushRun{
					kind:     database.KindTweets,
					title:    row.Title,
					body:     text,
					reportID: row.ID,
					active:   len(fresh),
					fresh:    len(fresh),
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&users, "user", []string{"elonmusk"}, "account to watch (repeatable)")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "keywords to highlight (repeatable)")
	return cmd
}
