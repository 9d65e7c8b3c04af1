package twitter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/metrics"
)

const fetchCount = 10

// Source fetches tweets for an account
type Source interface {
	LatestTweets(ctx context.Context, user string, count int) ([]Tweet, error)
}

// Store remembers which tweets were already reported
type Store interface {
	HasContent(source, externalID string) (bool, error)
	AddContent(in database.ContentInput) (bool, error)
	MarkSeen(source, externalID string) error
}

type Monitor struct {
	src     Source
	store   Store
	metrics *metrics.Metrics
}

// NewMonitor creates a monitor. m may be nil.
func NewMonitor(src Source, store Store, m *metrics.Metrics) *Monitor {
	return &Monitor{src: src, store: store, metrics: m}
}

// Check returns the tweets by user that were not seen on earlier runs and
// records them. Reposts of already stored text count as seen.
func (m *Monitor) Check(ctx context.Context, user string) ([]Tweet, error) {
	tweets, err := m.src.LatestTweets(ctx, user, fetchCount)
	if err != nil {
		return nil, err
	}

	source := "twitter:" + user
	var fresh []Tweet
	for _, t := range tweets {
		if t.ID == "" {
			continue
		}
		seen, err := m.store.HasContent(source, t.ID)
		if err != nil {
			return nil, fmt.Errorf("check tweet %s: %w", t.ID, err)
		}
		if seen {
			continue
		}
		added, err := m.store.AddContent(database.ContentInput{
			Source:     source,
			ExternalID: t.ID,
			Text:       t.Body(),
			Author:     user,
			Likes:      t.LikeCount,
		})
		if err != nil {
			return nil, fmt.Errorf("store tweet %s: %w", t.ID, err)
		}
		if !added {
			log.Debug().Str("user", user).Str("id", t.ID).Msg("Duplicate tweet text, skipping")
			if err := m.store.MarkSeen(source, t.ID); err != nil {
				return nil, err
			}
			continue
		}
		fresh = append(fresh, t)
	}

	log.Info().Str("user", user).Int("fetched", len(tweets)).Int("new", len(fresh)).Msg("🐦 Tweets checked")
	if m.metrics != nil {
		m.metrics.TweetsSeen.WithLabelValues(user).Add(float64(len(fresh)))
	}
	return fresh, nil
}
