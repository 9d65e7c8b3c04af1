package news

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/web3guy0/lobster/internal/database"
)

// ErrNoNews is returned when every feed failed
var ErrNoNews = errors.New("no news fetched")

const (
	DefaultPerFeed = 5
	DefaultMax     = 10

	// headlines sharing their first runes are the same story
	titleKeyRunes = 20
)

// Store dedupes headlines across runs and keeps the digest
type Store interface {
	HasContent(source, externalID string) (bool, error)
	AddContent(in database.ContentInput) (bool, error)
	MarkSeen(source, externalID string) error
	SaveReport(r *database.Report) error
}

// Entry is a headline in the digest. New is set on its first appearance.
type Entry struct {
	Item
	New bool
}

// Digest is one aggregation run
type Digest struct {
	ReportID    string
	GeneratedAt time.Time
	Entries     []Entry
	Failed      map[string]error
	Text        string
}

// Fresh counts headlines not seen on earlier runs
func (d *Digest) Fresh() int {
	n := 0
	for _, e := range d.Entries {
		if e.New {
			n++
		}
	}
	return n
}

type Aggregator struct {
	feeds   []Feed
	store   Store
	perFeed int
	max     int
	now     func() time.Time
}

// NewAggregator creates an aggregator over feeds, in priority order
func NewAggregator(feeds []Feed, store Store) *Aggregator {
	return &Aggregator{feeds: feeds, store: store, perFeed: DefaultPerFeed, max: DefaultMax, now: time.Now}
}

// Run fetches every feed concurrently, merges the results in feed order,
// drops repeated stories and stores the digest as a news report.
func (a *Aggregator) Run(ctx context.Context) (*Digest, error) {
	results := make([][]Item, len(a.feeds))
	errs := make([]error, len(a.feeds))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range a.feeds {
		g.Go(func() error {
			items, err := f.Fetch(gctx)
			if err != nil {
				log.Warn().Err(err).Str("feed", f.Name()).Msg("News feed failed")
				errs[i] = err
				return nil
			}
			results[i] = items
			log.Debug().Str("feed", f.Name()).Int("items", len(items)).Msg("📰 News feed fetched")
			return nil
		})
	}
	g.Wait()

	d := &Digest{GeneratedAt: a.now(), Failed: make(map[string]error)}
	for i, err := range errs {
		if err != nil {
			d.Failed[a.feeds[i].Name()] = err
		}
	}
	if len(a.feeds) > 0 && len(d.Failed) == len(a.feeds) {
		return nil, ErrNoNews
	}

	seen := make(map[string]bool)
	for _, items := range results {
		taken := 0
		for _, it := range items {
			if taken == a.perFeed || len(d.Entries) == a.max {
				break
			}
			key := titleKey(it.Title)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			taken++

			isNew, err := a.remember(it)
			if err != nil {
				return nil, err
			}
			d.Entries = append(d.Entries, Entry{Item: it, New: isNew})
		}
	}

	d.Text = Render(d)
	rec := &database.Report{
		Kind:        database.KindNews,
		Title:       "Finance news",
		Body:        d.Text,
		ActiveCount: d.Fresh(),
	}
	if err := a.store.SaveReport(rec); err != nil {
		return nil, fmt.Errorf("save news report: %w", err)
	}
	d.ReportID = rec.ID

	log.Info().Int("headlines", len(d.Entries)).Int("new", d.Fresh()).Int("failed_feeds", len(d.Failed)).Msg("📰 News aggregated")
	return d, nil
}

// remember stores the headline under news:<feed> and reports whether it is
// new. A story already stored under another ID counts as seen.
func (a *Aggregator) remember(it Item) (bool, error) {
	source := "news:" + it.Source
	seen, err := a.store.HasContent(source, it.ID)
	if err != nil {
		return false, fmt.Errorf("check headline %s: %w", it.ID, err)
	}
	if seen {
		return false, nil
	}
	added, err := a.store.AddContent(database.ContentInput{
		Source:     source,
		ExternalID: it.ID,
		Text:       it.Title,
		Author:     it.Source,
	})
	if err != nil {
		return false, fmt.Errorf("store headline %s: %w", it.ID, err)
	}
	if !added {
		return false, a.store.MarkSeen(source, it.ID)
	}
	return true, nil
}

func titleKey(title string) string {
	r := []rune(strings.TrimSpace(title))
	if len(r) > titleKeyRunes {
		r = r[:titleKeyRunes]
	}
	return string(r)
}

var sourceLabels = map[string]string{
	"sina":    "Sina Finance",
	"cls":     "CLS",
	"36kr":    "36Kr",
	"zhitong": "Zhitong Finance",
}

// Render formats the digest as a text report
func Render(d *Digest) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\n📰 Finance news\n📅 %s\n%s\n", rule, d.GeneratedAt.Format("2006-01-02 15:04"), rule)

	for i, e := range d.Entries {
		marker := ""
		if e.New {
			marker = "🆕 "
		}
		label := sourceLabels[e.Source]
		if label == "" {
			label = e.Source
		}
		fmt.Fprintf(&b, "\n%d. %s%s\n   [%s · %s] %s\n", i+1, marker, e.Title, label, e.Tag, e.URL)
	}
	if len(d.Entries) == 0 {
		b.WriteString("\nNo headlines.\n")
	}
	if len(d.Failed) > 0 {
		names := make([]string, 0, len(d.Failed))
		for name := range d.Failed {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "\n⚠️ Failed feeds: %s\n", strings.Join(names, ", "))
	}
	b.WriteString(rule)
	b.WriteByte('\n')
	return b.String()
}
