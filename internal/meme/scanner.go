package meme

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/web3guy0/lobster/internal/clanker"
	"github.com/web3guy0/lobster/internal/config"
	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/dexscreener"
	"github.com/web3guy0/lobster/internal/honeypot"
	"github.com/web3guy0/lobster/internal/metrics"
)

const (
	maxParallel   = 4
	launchesShown = 10
	launchChain   = "base"
)

// ErrNoData is returned when every upstream query failed
var ErrNoData = errors.New("no data from any query")

// PairSource is the subset of the DexScreener client the scanner uses
type PairSource interface {
	Search(ctx context.Context, query string) ([]dexscreener.Pair, error)
	TokenPairs(ctx context.Context, address string) ([]dexscreener.Pair, error)
}

// LaunchFeed lists freshly deployed tokens
type LaunchFeed interface {
	Latest(ctx context.Context, limit int) ([]clanker.Token, error)
}

// Registry remembers tokens and stores reports
type Registry interface {
	RecordToken(in database.TokenInput) (database.Sighting, error)
	MarkHoneypot(contract string, isHoneypot bool) error
	SaveReport(r *database.Report) error
}

// Report is the outcome of one scan
type Report struct {
	ID            string
	Kind          string
	Title         string
	GeneratedAt   time.Time
	Candidates    []Candidate
	Hotspots      Hotspots
	Queries       int
	FailedQueries int
	NewCount      int
	HoneypotCount int
	Text          string
}

// Active counts candidates that traded in the last 24h
func (r *Report) Active() int {
	n := 0
	for _, c := range r.Candidates {
		if c.Active() {
			n++
		}
	}
	return n
}

// Scanner wires data sources, risk checks and the registry together
type Scanner struct {
	dex      PairSource
	launches LaunchFeed
	checker  honeypot.Checker
	registry Registry
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewScanner creates a scanner. launches, checker and m may be nil.
func NewScanner(dex PairSource, launches LaunchFeed, checker honeypot.Checker, registry Registry, m *metrics.Metrics) *Scanner {
	return &Scanner{
		dex:      dex,
		launches: launches,
		checker:  checker,
		registry: registry,
		metrics:  m,
		now:      time.Now,
	}
}

// Scan runs every query of the profile, filters the merged pairs and
// registers the survivors.
func (s *Scanner) Scan(ctx context.Context, p config.Profile) (*Report, error) {
	report, err := s.scan(ctx, p)
	s.observeScan(database.KindMemeScan, err)
	return report, err
}

func (s *Scanner) scan(ctx context.Context, p config.Profile) (*Report, error) {
	log.Info().Str("profile", p.Name).Int("queries", len(p.Queries)).Msg("🔍 Scanning DEX pairs")

	results := make([][]dexscreener.Pair, len(p.Queries))
	failed := make([]bool, len(p.Queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, q := range p.Queries {
		g.Go(func() error {
			pairs, err := s.dex.Search(gctx, q)
			if err != nil {
				log.Warn().Err(err).Str("query", q).Msg("Search failed, skipping")
				failed[i] = true
				return nil
			}
			results[i] = pairs
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Kind:        database.KindMemeScan,
		Title:       "Meme scan: " + p.Name,
		GeneratedAt: s.now(),
		Queries:     len(p.Queries),
	}
	var candidates []Candidate
	for i, pairs := range results {
		if failed[i] {
			report.FailedQueries++
			continue
		}
		for _, pair := range pairs {
			candidates = append(candidates, FromPair(pair))
		}
	}
	if report.Queries > 0 && report.FailedQueries == report.Queries {
		return nil, fmt.Errorf("scan %s: %w", p.Name, ErrNoData)
	}

	candidates = FilterFromProfile(p).Apply(candidates)
	for i := range candidates {
		c := &candidates[i]
		c.Narrative = ClassifyNarrative(c.Symbol, c.Name, "")
		s.register(c, "dex")
	}
	if p.HoneypotScan {
		candidates = s.screen(ctx, candidates, report)
	}

	report.Candidates = candidates
	report.NewCount = countNew(candidates)
	report.Hotspots = FindHotspots(candidates)
	if err := s.finish(report); err != nil {
		return nil, err
	}
	return report, nil
}

// ScanLaunches reports the newest launchpad tokens with their DEX activity
func (s *Scanner) ScanLaunches(ctx context.Context, limit int) (*Report, error) {
	report, err := s.scanLaunches(ctx, limit)
	s.observeScan(database.KindLaunches, err)
	return report, err
}

func (s *Scanner) scanLaunches(ctx context.Context, limit int) (*Report, error) {
	if s.launches == nil {
		return nil, fmt.Errorf("launch feed not configured")
	}
	log.Info().Int("limit", limit).Msg("🦞 Fetching latest launches")

	tokens, err := s.launches.Latest(ctx, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, t := range tokens {
		g.Go(func() error {
			candidates[i] = s.launchCandidate(gctx, t)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	if len(candidates) > launchesShown {
		candidates = candidates[:launchesShown]
	}

	for i := range candidates {
		s.register(&candidates[i], candidates[i].TokenType)
	}

	report := &Report{
		Kind:        database.KindLaunches,
		Title:       "Clanker/Bankr launches",
		GeneratedAt: s.now(),
		Queries:     1,
	}
	candidates = s.screen(ctx, candidates, report)

	report.Candidates = candidates
	report.NewCount = countNew(candidates)
	report.Hotspots = FindHotspots(candidates)
	if err := s.finish(report); err != nil {
		return nil, err
	}
	return report, nil
}

// launchCandidate merges the feed entry with its first DEX pair, if any
func (s *Scanner) launchCandidate(ctx context.Context, t clanker.Token) Candidate {
	c := Candidate{Chain: launchChain}
	pairs, err := s.dex.TokenPairs(ctx, t.ContractAddress)
	if err != nil {
		log.Debug().Err(err).Str("token", t.Symbol).Msg("No DEX data for launch")
	} else if len(pairs) > 0 {
		c = FromPair(pairs[0])
	}

	c.Symbol = t.Symbol
	c.Name = t.Name
	c.Address = t.ContractAddress
	c.Description = t.Description
	c.CreatedAt = t.LaunchedAt()
	c.Launcher = t.Launcher()
	c.TokenType = t.Type
	if c.TokenType == "" {
		c.TokenType = "unknown"
	}
	c.Narrative = ClassifyNarrative(t.Symbol, t.Name, t.Description)
	return c
}

// register records the sighting; failures only cost the new/seen markers
func (s *Scanner) register(c *Candidate, tokenType string) {
	if s.registry == nil || c.Address == "" {
		return
	}
	sighting, err := s.registry.RecordToken(database.TokenInput{
		Contract:  c.Address,
		Symbol:    c.Symbol,
		Name:      c.Name,
		TokenType: tokenType,
		Chain:     c.Chain,
		Narrative: c.Narrative.Label,
	})
	if err != nil {
		log.Warn().Err(err).Str("token", c.Symbol).Msg("Failed to record token")
		return
	}
	c.IsNew = sighting.IsNew
	c.SeenToday = !sighting.IsNew && sighting.SeenToday(s.now())
	if c.IsNew && s.metrics != nil {
		s.metrics.TokensDiscovered.Inc()
	}
}

// screen runs risk checks and drops honeypots
func (s *Scanner) screen(ctx context.Context, cs []Candidate, report *Report) []Candidate {
	if s.checker == nil || len(cs) == 0 {
		return cs
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i := range cs {
		g.Go(func() error {
			cs[i].Risk = s.checker.Check(gctx, cs[i].Address, cs[i].Chain)
			return nil
		})
	}
	_ = g.Wait()

	kept := cs[:0]
	for _, c := range cs {
		if !c.Risk.IsHoneypot {
			kept = append(kept, c)
			continue
		}
		report.HoneypotCount++
		log.Info().Str("token", c.Symbol).Str("reason", c.Risk.Reason).Msg("🚫 Filtered honeypot")
		if s.metrics != nil {
			s.metrics.HoneypotsFlagged.Inc()
		}
		if s.registry != nil {
			if err := s.registry.MarkHoneypot(c.Address, true); err != nil {
				log.Warn().Err(err).Str("token", c.Symbol).Msg("Failed to mark honeypot")
			}
		}
	}
	return kept
}

// finish renders the report and stores it
func (s *Scanner) finish(r *Report) error {
	r.Text = Render(r)
	log.Info().
		Str("kind", r.Kind).
		Int("tokens", len(r.Candidates)).
		Int("new", r.NewCount).
		Int("honeypots", r.HoneypotCount).
		Msg("📋 Scan complete")

	if s.registry == nil {
		return nil
	}
	row := &database.Report{
		Kind:        r.Kind,
		Title:       r.Title,
		Body:        r.Text,
		ActiveCount: r.Active(),
		CreatedAt:   r.GeneratedAt,
	}
	if err := s.registry.SaveReport(row); err != nil {
		return fmt.Errorf("save %s report: %w", r.Kind, err)
	}
	r.ID = row.ID
	return nil
}

func (s *Scanner) observeScan(kind string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.ScansTotal.WithLabelValues(kind, result).Inc()
}

func countNew(cs []Candidate) int {
	n := 0
	for _, c := range cs {
		if c.IsNew {
			n++
		}
	}
	return n
}

// Tokens whose symbol is only a contract fragment are rendered with the name
func displaySymbol(c Candidate) string {
	if strings.HasPrefix(strings.ToLower(c.Symbol), "0x") && c.Name != "" {
		return c.Name
	}
	return c.Symbol
}
