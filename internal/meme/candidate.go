// Package meme turns DEX search results and launchpad feeds into filtered,
// scored and annotated meme-token reports.
package meme

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/lobster/internal/config"
	"github.com/web3guy0/lobster/internal/dexscreener"
	"github.com/web3guy0/lobster/internal/honeypot"
)

// Sort metrics
const (
	SortVolume    = "volume"
	SortChange    = "change"
	SortLiquidity = "liquidity"
	SortMarketCap = "marketcap"
	SortHolders   = "holders"
)

const unknownSymbol = "???"

// Candidate is one token under consideration
type Candidate struct {
	Chain       string
	Symbol      string
	Name        string
	Address     string
	Description string
	PairURL     string
	Price       decimal.Decimal
	Liquidity   decimal.Decimal
	Volume24h   decimal.Decimal
	Change24h   decimal.Decimal
	MarketCap   decimal.Decimal
	TxCount     int
	Holders     int // 0 when the source does not report holders
	CreatedAt   time.Time

	// Filled in by the scanner
	IsNew     bool
	SeenToday bool
	Launcher  string
	TokenType string
	Narrative Narrative
	Risk      honeypot.Result
}

// FromPair builds a candidate from a DexScreener pair. Market cap falls back
// to FDV when the pair does not report one.
func FromPair(p dexscreener.Pair) Candidate {
	mc := p.MarketCap
	if mc.IsZero() {
		mc = p.FDV
	}
	return Candidate{
		Chain:     strings.ToLower(p.ChainID),
		Symbol:    p.BaseToken.Symbol,
		Name:      p.BaseToken.Name,
		Address:   p.BaseToken.Address,
		PairURL:   p.URL,
		Price:     p.PriceUSD,
		Liquidity: p.Liquidity.USD,
		Volume24h: p.Volume.H24,
		Change24h: p.PriceChange.H24,
		MarketCap: mc,
		TxCount:   p.TxCount24h(),
		CreatedAt: p.CreatedAt(),
	}
}

// Turnover is 24h volume over liquidity; zero without liquidity
func (c Candidate) Turnover() decimal.Decimal {
	if !c.Liquidity.IsPositive() {
		return decimal.Zero
	}
	return c.Volume24h.Div(c.Liquidity)
}

// Active reports whether the token traded in the last 24h
func (c Candidate) Active() bool {
	return c.Volume24h.IsPositive()
}

// Filter selects and orders candidates. Zero bounds are unset; liquidity
// bounds are exclusive.
type Filter struct {
	Chain        string
	Keywords     []string
	MinLiquidity decimal.Decimal
	MaxLiquidity decimal.Decimal
	MinVolume    decimal.Decimal
	MinMarketCap decimal.Decimal
	MaxMarketCap decimal.Decimal
	MinHolders   int
	SortBy       string
	TopN         int
}

// FilterFromProfile copies the thresholds of a scanner profile
func FilterFromProfile(p config.Profile) Filter {
	return Filter{
		Chain:        p.Chain,
		Keywords:     p.Keywords,
		MinLiquidity: p.MinLiquidity,
		MaxLiquidity: p.MaxLiquidity,
		MinVolume:    p.MinVolume,
		MinMarketCap: p.MinMarketCap,
		MaxMarketCap: p.MaxMarketCap,
		MinHolders:   p.MinHolders,
		SortBy:       p.SortBy,
		TopN:         p.TopN,
	}
}

// Apply runs the filter. The first pair seen for a symbol claims it, even if
// that pair later fails a threshold.
func (f Filter) Apply(cs []Candidate) []Candidate {
	chain := strings.ToLower(f.Chain)
	seenSymbols := make(map[string]bool)
	seenAddrs := make(map[string]bool)

	var out []Candidate
	for _, c := range cs {
		if chain != "" && c.Chain != chain {
			continue
		}
		if c.Symbol == "" || c.Symbol == unknownSymbol {
			continue
		}
		addr := strings.ToLower(c.Address)
		if seenSymbols[c.Symbol] || (addr != "" && seenAddrs[addr]) {
			continue
		}
		seenSymbols[c.Symbol] = true
		if addr != "" {
			seenAddrs[addr] = true
		}

		if !f.matchesKeywords(c) || !f.withinBounds(c) {
			continue
		}
		out = append(out, c)
	}

	f.sort(out)
	if f.TopN > 0 && len(out) > f.TopN {
		out = out[:f.TopN]
	}
	return out
}

func (f Filter) matchesKeywords(c Candidate) bool {
	if len(f.Keywords) == 0 {
		return true
	}
	symbol := strings.ToLower(c.Symbol)
	name := strings.ToLower(c.Name)
	for _, kw := range f.Keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(symbol, kw) || strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func (f Filter) withinBounds(c Candidate) bool {
	if f.MinLiquidity.IsPositive() && !c.Liquidity.GreaterThan(f.MinLiquidity) {
		return false
	}
	if f.MaxLiquidity.IsPositive() && !c.Liquidity.LessThan(f.MaxLiquidity) {
		return false
	}
	if f.MinVolume.IsPositive() && c.Volume24h.LessThan(f.MinVolume) {
		return false
	}
	if f.MinMarketCap.IsPositive() && c.MarketCap.LessThan(f.MinMarketCap) {
		return false
	}
	if f.MaxMarketCap.IsPositive() && c.MarketCap.GreaterThan(f.MaxMarketCap) {
		return false
	}
	// DEX data carries no holder count; only enforce it when known
	if f.MinHolders > 0 && c.Holders > 0 && c.Holders < f.MinHolders {
		return false
	}
	return true
}

func (f Filter) sort(cs []Candidate) {
	metric := metricFor(f.SortBy)
	sort.SliceStable(cs, func(i, j int) bool {
		return metric(cs[i]).GreaterThan(metric(cs[j]))
	})
}

func metricFor(sortBy string) func(Candidate) decimal.Decimal {
	switch sortBy {
	case SortChange:
		return func(c Candidate) decimal.Decimal { return c.Change24h }
	case SortLiquidity:
		return func(c Candidate) decimal.Decimal { return c.Liquidity }
	case SortMarketCap:
		return func(c Candidate) decimal.Decimal { return c.MarketCap }
	case SortHolders:
		return func(c Candidate) decimal.Decimal { return decimal.NewFromInt(int64(c.Holders)) }
	default:
		return func(c Candidate) decimal.Decimal { return c.Volume24h }
	}
}
