// Package prices builds the crypto and US stock price report.
package prices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/web3guy0/lobster/internal/binance"
	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/twelvedata"
)

// ErrNoData is returned when every symbol failed
var ErrNoData = errors.New("no prices fetched")

const (
	KindCrypto = "crypto"
	KindStock  = "stock"

	fetchWorkers = 4
)

// Crypto prices come from Binance
type CryptoSource interface {
	Ticker24h(ctx context.Context, symbol string) (binance.Ticker, error)
}

// Stock quotes come from Twelve Data
type StockSource interface {
	Quote(ctx context.Context, symbol string) (twelvedata.Quote, error)
}

// ReportStore persists rendered reports for the dashboard
type ReportStore interface {
	SaveReport(r *database.Report) error
}

// Watchlist is the set of symbols to price
type Watchlist struct {
	Crypto []string
	Stocks []string
}

// DefaultWatchlist covers the majors and the GaN semiconductor names we follow
func DefaultWatchlist() Watchlist {
	return Watchlist{
		Crypto: []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "DOGEUSDT"},
		Stocks: []string{"NVTS", "TXN", "IFNNY", "NVDA", "TSLA"},
	}
}

// Item is one priced symbol. Err is set when the fetch failed.
type Item struct {
	Kind      string
	Symbol    string
	Name      string
	Price     decimal.Decimal
	ChangePct decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    decimal.Decimal
	// AfterHoursPct is the extended-hours move, stocks only
	AfterHoursPct decimal.Decimal
	Err           error
}

var (
	surgePct      = decimal.NewFromInt(5)
	rallyPct      = decimal.NewFromInt(3)
	afterHoursPct = decimal.NewFromInt(2)
)

// Signals flags unusual moves: beyond ±5% is a surge or plunge, beyond ±3%
// a rally or drop, and an after-hours move beyond ±2% is called out.
func Signals(it Item) []string {
	if it.Err != nil {
		return nil
	}
	var out []string
	chg := it.ChangePct
	switch {
	case chg.GreaterThan(surgePct):
		out = append(out, fmt.Sprintf("🔥 Surge %s%%", signed(chg)))
	case chg.GreaterThan(rallyPct):
		out = append(out, fmt.Sprintf("📈 Rally %s%%", signed(chg)))
	case chg.LessThan(surgePct.Neg()):
		out = append(out, fmt.Sprintf("❄️ Plunge %s%%", signed(chg)))
	case chg.LessThan(rallyPct.Neg()):
		out = append(out, fmt.Sprintf("📉 Drop %s%%", signed(chg)))
	}
	if ah := it.AfterHoursPct; ah.Abs().GreaterThan(afterHoursPct) {
		dir := "up"
		if ah.IsNegative() {
			dir = "down"
		}
		out = append(out, fmt.Sprintf("🌙 After hours %s %s%%", dir, signed(ah)))
	}
	return out
}

// Snapshot holds one round of prices, in watchlist order
type Snapshot struct {
	ID          string
	GeneratedAt time.Time
	Crypto      []Item
	Stocks      []Item
	Text        string
}

// Failed counts items that have an error
func (s *Snapshot) Failed() int {
	n := 0
	for _, items := range [][]Item{s.Crypto, s.Stocks} {
		for _, it := range items {
			if it.Err != nil {
				n++
			}
		}
	}
	return n
}

// HotCount counts items with at least one signal
func (s *Snapshot) HotCount() int {
	n := 0
	for _, items := range [][]Item{s.Crypto, s.Stocks} {
		for _, it := range items {
			if len(Signals(it)) > 0 {
				n++
			}
		}
	}
	return n
}

type Tracker struct {
	crypto  CryptoSource
	stocks  StockSource
	reports ReportStore
	now     func() time.Time
}

// NewTracker creates a tracker. Any source may be nil to skip that market;
// reports may be nil to skip persistence.
func NewTracker(crypto CryptoSource, stocks StockSource, reports ReportStore) *Tracker {
	return &Tracker{crypto: crypto, stocks: stocks, reports: reports, now: time.Now}
}

// Snapshot prices the watchlist concurrently. Per-symbol failures are kept
// on the item; only a round where nothing succeeded is an error.
func (t *Tracker) Snapshot(ctx context.Context, w Watchlist) (*Snapshot, error) {
	snap := &Snapshot{GeneratedAt: t.now()}
	if t.crypto != nil {
		snap.Crypto = make([]Item, len(w.Crypto))
	}
	if t.stocks != nil {
		snap.Stocks = make([]Item, len(w.Stocks))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)
	for i := range snap.Crypto {
		g.Go(func() error {
			snap.Crypto[i] = t.fetchCrypto(gctx, w.Crypto[i])
			return nil
		})
	}
	for i := range snap.Stocks {
		g.Go(func() error {
			snap.Stocks[i] = t.fetchStock(gctx, w.Stocks[i])
			return nil
		})
	}
	g.Wait()

	total := len(snap.Crypto) + len(snap.Stocks)
	if total > 0 && snap.Failed() == total {
		return nil, ErrNoData
	}

	snap.Text = Render(snap)
	if t.reports != nil {
		rec := &database.Report{
			Kind:        database.KindPrices,
			Title:       "Price report",
			Body:        snap.Text,
			ActiveCount: total - snap.Failed(),
		}
		if err := t.reports.SaveReport(rec); err != nil {
			return nil, fmt.Errorf("save price report: %w", err)
		}
		snap.ID = rec.ID
	}
	log.Info().Int("symbols", total).Int("failed", snap.Failed()).Msg("💹 Prices fetched")
	return snap, nil
}

func (t *Tracker) fetchCrypto(ctx context.Context, symbol string) Item {
	it := Item{Kind: KindCrypto, Symbol: strings.ToUpper(symbol)}
	tk, err := t.crypto.Ticker24h(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Crypto price failed")
		it.Err = err
		return it
	}
	it.Name = strings.TrimSuffix(it.Symbol, "USDT")
	it.Price = tk.LastPrice
	it.ChangePct = tk.PriceChangePercent
	it.High = tk.HighPrice
	it.Low = tk.LowPrice
	it.Volume = tk.Volume
	return it
}

func (t *Tracker) fetchStock(ctx context.Context, symbol string) Item {
	it := Item{Kind: KindStock, Symbol: strings.ToUpper(symbol)}
	q, err := t.stocks.Quote(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Stock quote failed")
		it.Err = err
		return it
	}
	it.Name = q.Name
	it.Price = q.Close
	it.ChangePct = q.PercentChange
	it.High = q.High
	it.Low = q.Low
	it.Volume = q.Volume
	it.AfterHoursPct = q.ExtendedPercentChange
	return it
}

// Render formats the snapshot as a text report
func Render(s *Snapshot) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("%s", rule)
	line("💹 Price report")
	line("📅 %s", s.GeneratedAt.Format("2006-01-02 15:04:05"))
	line("%s", rule)

	section := func(title string, items []Item) {
		if len(items) == 0 {
			return
		}
		line("")
		line("%s", title)
		for _, it := range items {
			if it.Err != nil {
				line("❌ %s: %v", it.Symbol, it.Err)
				continue
			}
			name := it.Symbol
			if it.Name != "" && it.Name != it.Symbol {
				name = fmt.Sprintf("%s (%s)", it.Name, it.Symbol)
			}
			line("%s %s: $%s %s%%", trend(it.ChangePct), name, it.Price.StringFixed(2), signed(it.ChangePct))
			if !it.High.IsZero() || !it.Low.IsZero() {
				line("   high $%s | low $%s", it.High.StringFixed(2), it.Low.StringFixed(2))
			}
			for _, sig := range Signals(it) {
				line("   %s", sig)
			}
		}
	}
	section("🪙 Crypto (Binance)", s.Crypto)
	section("🇺🇸 US stocks (Twelve Data)", s.Stocks)

	if n := s.HotCount(); n > 0 {
		line("")
		line("🔥 %d symbol(s) with unusual moves", n)
	}
	if n := s.Failed(); n > 0 {
		line("")
		line("⚠️ %d symbol(s) failed", n)
	}
	line("%s", rule)
	return b.String()
}

func trend(change decimal.Decimal) string {
	if change.IsNegative() {
		return "📉"
	}
	return "📈"
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}
