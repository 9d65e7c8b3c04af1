package meme

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/lobster/internal/clanker"
	"github.com/web3guy0/lobster/internal/config"
	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/dexscreener"
	"github.com/web3guy0/lobster/internal/honeypot"
	"github.com/web3guy0/lobster/internal/metrics"
)

type fakeDex struct {
	search map[string][]dexscreener.Pair
	tokens map[string][]dexscreener.Pair
}

func (f *fakeDex) Search(_ context.Context, q string) ([]dexscreener.Pair, error) {
	pairs, ok := f.search[q]
	if !ok {
		return nil, errors.New("boom")
	}
	return pairs, nil
}

func (f *fakeDex) TokenPairs(_ context.Context, addr string) ([]dexscreener.Pair, error) {
	pairs, ok := f.tokens[addr]
	if !ok {
		return nil, errors.New("not listed")
	}
	return pairs, nil
}

type fakeFeed struct{ tokens []clanker.Token }

func (f *fakeFeed) Latest(context.Context, int) ([]clanker.Token, error) { return f.tokens, nil }

type fakeChecker struct{ honeypots map[string]bool }

func (f *fakeChecker) Check(_ context.Context, addr, _ string) honeypot.Result {
	if f.honeypots[addr] {
		return honeypot.Result{IsHoneypot: true, Risk: honeypot.RiskHigh, Reason: "sell tax too high"}
	}
	return honeypot.Result{Risk: honeypot.RiskLow}
}

type fakeRegistry struct {
	mu        sync.Mutex
	now       time.Time
	tokens    map[string]database.Token
	honeypots []string
	reports   []*database.Report
}

func newFakeRegistry(now time.Time) *fakeRegistry {
	return &fakeRegistry{now: now, tokens: make(map[string]database.Token)}
}

func (f *fakeRegistry) RecordToken(in database.TokenInput) (database.Sighting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[in.Contract]; ok {
		t.SeenCount++
		f.tokens[in.Contract] = t
		return database.Sighting{Token: t}, nil
	}
	t := database.Token{ContractAddress: in.Contract, Symbol: in.Symbol, TokenType: in.TokenType, Narrative: in.Narrative, FirstSeen: f.now, SeenCount: 1}
	f.tokens[in.Contract] = t
	return database.Sighting{Token: t, IsNew: true}, nil
}

func (f *fakeRegistry) MarkHoneypot(contract string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.honeypots = append(f.honeypots, contract)
	return nil
}

func (f *fakeRegistry) SaveReport(r *database.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = "report-1"
	f.reports = append(f.reports, r)
	return nil
}

func TestScan(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.Local)
	dex := &fakeDex{search: map[string][]dexscreener.Pair{
		"a": {
			pair("base", "CLAWBOT", "0x1", 50_000, 100_000, 30),
			pair("base", "AIHONEY", "0x2", 60_000, 10_000, 5),
			pair("base", "NEWAI", "0x3", 20_000, 5_000, -2),
		},
	}}
	reg := newFakeRegistry(now)
	reg.tokens["0x1"] = database.Token{ContractAddress: "0x1", FirstSeen: now.Add(-time.Hour), SeenCount: 1}
	m := metrics.New()

	s := NewScanner(dex, nil, &fakeChecker{honeypots: map[string]bool{"0x2": true}}, reg, m)
	s.now = func() time.Time { return now }

	profile := config.Profile{
		Name:         "test",
		Chain:        "base",
		HoneypotScan: true,
		Queries:      []string{"a", "b"},
		Keywords:     []string{"claw", "ai"},
		SortBy:       SortVolume,
	}
	r, err := s.Scan(context.Background(), profile)
	require.NoError(t, err)

	assert.Equal(t, 2, r.Queries)
	assert.Equal(t, 1, r.FailedQueries)
	assert.Equal(t, 1, r.HoneypotCount)
	require.Len(t, r.Candidates, 2)

	claw := r.Candidates[0]
	assert.Equal(t, "CLAWBOT", claw.Symbol)
	assert.False(t, claw.IsNew)
	assert.True(t, claw.SeenToday)
	assert.Equal(t, honeypot.RiskLow, claw.Risk.Risk)

	fresh := r.Candidates[1]
	assert.Equal(t, "NEWAI", fresh.Symbol)
	assert.True(t, fresh.IsNew)
	assert.Equal(t, "AI", fresh.Narrative.Label)
	assert.Equal(t, 1, r.NewCount)
	assert.Equal(t, 2, r.Active())

	assert.Equal(t, []string{"0x2"}, reg.honeypots)
	require.Len(t, reg.reports, 1)
	assert.Equal(t, database.KindMemeScan, reg.reports[0].Kind)
	assert.Equal(t, 2, reg.reports[0].ActiveCount)
	assert.Equal(t, "report-1", r.ID)

	assert.Contains(t, r.Text, "Filtered 1 honeypot")
	assert.Contains(t, r.Text, "1 of 2 queries failed")
	assert.Contains(t, r.Text, "#1 CLAWBOT 🔁 seen today")
	assert.Contains(t, r.Text, "#2 NEWAI 🆕 NEW")
	assert.Contains(t, r.Text, "📄 Contract: 0x3")
	assert.NotContains(t, r.Text, "📄 Contract: 0x1")

	// the honeypot was registered before it was screened out
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokensDiscovered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HoneypotsFlagged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(database.KindMemeScan, "ok")))
}

func TestScanAllQueriesFailed(t *testing.T) {
	m := metrics.New()
	s := NewScanner(&fakeDex{}, nil, nil, nil, m)
	_, err := s.Scan(context.Background(), config.Profile{Name: "x", Queries: []string{"a"}})
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(database.KindMemeScan, "error")))
}

func TestScanLaunches(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	feed := &fakeFeed{tokens: []clanker.Token{
		{ContractAddress: "0xold", Symbol: "OLD", Name: "Old", Type: "clanker_v4", CreatedAt: "2026-10-15T07:00:00Z"},
		{ContractAddress: "0xnew0b07", Symbol: "CLAWD", Name: "Clawd", Type: "clanker_v4", Description: "via bankrbot", CreatedAt: "2026-10-15T08:30:00Z"},
		{ContractAddress: "0xtrap", Symbol: "TRAP", Name: "Trap", CreatedAt: "2026-10-15T08:00:00Z"},
	}}
	dex := &fakeDex{tokens: map[string][]dexscreener.Pair{
		"0xnew0b07": {pair("base", "CLAWD", "0xnew0b07", 40_000, 80_000, 60)},
	}}
	reg := newFakeRegistry(now)

	s := NewScanner(dex, feed, &fakeChecker{honeypots: map[string]bool{"0xtrap": true}}, reg, nil)
	s.now = func() time.Time { return now }

	r, err := s.ScanLaunches(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, r.Candidates, 2)

	first := r.Candidates[0]
	assert.Equal(t, "CLAWD", first.Symbol)
	assert.Equal(t, "Bankr", first.Launcher)
	assert.Equal(t, "Money", first.Narrative.Label) // "bankrbot" hits the bank keyword first
	assert.True(t, first.Volume24h.Equal(dec(80_000)))
	assert.True(t, first.IsNew)

	second := r.Candidates[1]
	assert.Equal(t, "OLD", second.Symbol)
	assert.Equal(t, "Clanker", second.Launcher)
	assert.False(t, second.Active())

	assert.Equal(t, 1, r.HoneypotCount)
	assert.Equal(t, 1, r.Active())
	assert.Equal(t, "unknown", reg.tokens["0xtrap"].TokenType)
	assert.Equal(t, database.KindLaunches, reg.reports[0].Kind)
	assert.Contains(t, r.Text, "🏭 Bankr (clanker_v4) | ⏰ 30m ago")
	assert.Contains(t, r.Text, "0b07 suffix")
	assert.True(t, strings.HasPrefix(r.Text, rule))
}

func TestScanLaunchesRequiresFeed(t *testing.T) {
	s := NewScanner(&fakeDex{}, nil, nil, nil, nil)
	_, err := s.ScanLaunches(context.Background(), 5)
	assert.Error(t, err)
}
