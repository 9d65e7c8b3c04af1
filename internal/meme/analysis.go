package meme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Signal tiers
const (
	TierStrongBuy = "STRONG_BUY"
	TierBuy       = "BUY"
	TierWatch     = "WATCH"
	TierSkip      = "SKIP"
)

// signalThreshold is the minimum score that produces a signal
const signalThreshold = 40

var (
	d100  = decimal.NewFromInt(100)
	d50   = decimal.NewFromInt(50)
	d30   = decimal.NewFromInt(30)
	d20   = decimal.NewFromInt(20)
	d2    = decimal.NewFromInt(2)
	d1    = decimal.NewFromInt(1)
	dHalf = decimal.NewFromFloat(0.5)
	d03   = decimal.NewFromFloat(0.3)

	liq100k = decimal.NewFromInt(100_000)
	liq50k  = decimal.NewFromInt(50_000)
	liq10k  = decimal.NewFromInt(10_000)
)

// Reason explains a token's move from its price change, turnover and
// trade count.
func Reason(c Candidate) string {
	var parts []string

	chg := c.Change24h
	switch {
	case chg.GreaterThan(d100):
		parts = append(parts, "🚀 parabolic (100%+), likely major news or listing")
	case chg.GreaterThan(d50):
		parts = append(parts, "🌙 pumping (50%+), heavy community FOMO")
	case chg.GreaterThan(d20):
		parts = append(parts, "📈 strong rally (20%+), buyers in control")
	case chg.IsPositive():
		parts = append(parts, "💹 steady climb")
	case chg.GreaterThan(d20.Neg()):
		parts = append(parts, "📊 normal pullback")
	default:
		parts = append(parts, "💥 dumping (-20%+), possible rug or panic selling")
	}

	turnover := c.Turnover()
	ratio := turnover.StringFixed(1)
	switch {
	case turnover.GreaterThan(d2):
		parts = append(parts, fmt.Sprintf("🔥 very high turnover (%sx)", ratio))
	case turnover.GreaterThan(dHalf):
		parts = append(parts, fmt.Sprintf("⚡ active trading (%sx turnover)", ratio))
	default:
		parts = append(parts, fmt.Sprintf("💤 thin trading (%sx turnover)", ratio))
	}

	switch {
	case c.TxCount > 300:
		parts = append(parts, fmt.Sprintf("👥 heavy retail flow (%d txns)", c.TxCount))
	case c.TxCount > 100:
		parts = append(parts, fmt.Sprintf("👤 active community (%d txns)", c.TxCount))
	}

	return strings.Join(parts, " | ")
}

// Hotspots summarizes a batch of candidates
type Hotspots struct {
	Sentiment   string
	AvgChange   decimal.Decimal
	TotalVolume decimal.Decimal
	TopGainers  []Candidate
	TopVolume   []Candidate
	Narratives  []string
}

// FindHotspots computes market mood, leaderboards and hot narratives.
// Returns the zero value for an empty batch.
func FindHotspots(cs []Candidate) Hotspots {
	if len(cs) == 0 {
		return Hotspots{}
	}

	sum := decimal.Zero
	vol := decimal.Zero
	for _, c := range cs {
		sum = sum.Add(c.Change24h)
		vol = vol.Add(c.Volume24h)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(cs))))

	h := Hotspots{AvgChange: avg, TotalVolume: vol}

	pct := avg.Abs().StringFixed(0)
	switch {
	case avg.GreaterThan(d50):
		h.Sentiment = "🔥🔥🔥 euphoric: broad meme breakout, avg +" + pct + "%"
	case avg.GreaterThan(d20):
		h.Sentiment = "🔥🔥 hot: memes rallying across the board, avg +" + pct + "%"
	case avg.IsPositive():
		h.Sentiment = "🔥 warm: mild upside, avg +" + pct + "%"
	case avg.GreaterThan(d20.Neg()):
		h.Sentiment = "📊 ranging: neutral mood, avg -" + pct + "%"
	default:
		h.Sentiment = "❄️ cooling: broad pullback, avg -" + pct + "%"
	}

	byChange := sortedBy(cs, func(c Candidate) decimal.Decimal { return c.Change24h })
	byVolume := sortedBy(cs, func(c Candidate) decimal.Decimal { return c.Volume24h })
	h.TopGainers = head(byChange, 3)
	h.TopVolume = head(byVolume, 3)

	var memeCulture, aiTheme, fomo bool
	for _, c := range head(byChange, 5) {
		sym := strings.ToUpper(c.Symbol)
		if strings.Contains(sym, "PEPE") || strings.Contains(sym, "DOGE") {
			memeCulture = true
		}
		if strings.Contains(sym, "AI") || strings.Contains(sym, "GPT") {
			aiTheme = true
		}
	}
	for _, c := range cs {
		if c.Change24h.GreaterThan(d100) {
			fomo = true
			break
		}
	}
	if memeCulture {
		h.Narratives = append(h.Narratives, "🐸 meme culture coins running hot")
	}
	if aiTheme {
		h.Narratives = append(h.Narratives, "🤖 AI tokens in demand")
	}
	if fomo {
		h.Narratives = append(h.Narratives, "🚀 100%+ movers on the board, extreme FOMO")
	}
	return h
}

func sortedBy(cs []Candidate, metric func(Candidate) decimal.Decimal) []Candidate {
	out := make([]Candidate, len(cs))
	copy(out, cs)
	sort.SliceStable(out, func(i, j int) bool {
		return metric(out[i]).GreaterThan(metric(out[j]))
	})
	return out
}

func head(cs []Candidate, n int) []Candidate {
	if len(cs) > n {
		return cs[:n]
	}
	return cs
}

// Signal is a scored entry suggestion
type Signal struct {
	Score   int
	Tier    string
	Reasons []string
}

// Emoji colors the tier for reports
func (s Signal) Emoji() string {
	switch s.Tier {
	case TierStrongBuy:
		return "🟢"
	case TierBuy:
		return "🟡"
	case TierWatch:
		return "🟠"
	default:
		return "⚪"
	}
}

// Score rates liquidity, turnover and trend. The bool is false when the
// score is below the signal threshold.
func Score(c Candidate) (Signal, bool) {
	var s Signal

	switch {
	case c.Liquidity.GreaterThan(liq100k):
		s.Score += 30
		s.Reasons = append(s.Reasons, "💰 deep liquidity")
	case c.Liquidity.GreaterThan(liq50k):
		s.Score += 20
		s.Reasons = append(s.Reasons, "💧 good liquidity")
	case c.Liquidity.GreaterThan(liq10k):
		s.Score += 10
		s.Reasons = append(s.Reasons, "⚠️ fair liquidity")
	}

	turnover := c.Turnover()
	switch {
	case turnover.GreaterThan(d1):
		s.Score += 25
		s.Reasons = append(s.Reasons, "🔥 very active trading")
	case turnover.GreaterThan(d03):
		s.Score += 15
		s.Reasons = append(s.Reasons, "⚡ active trading")
	}

	chg := c.Change24h
	switch {
	case chg.GreaterThan(d20) && chg.LessThan(d100):
		s.Score += 20
		s.Reasons = append(s.Reasons, "📈 healthy uptrend")
	case chg.GreaterThan(d100):
		s.Score += 5
		s.Reasons = append(s.Reasons, "🚀 parabolic (high risk)")
	case chg.LessThan(d30.Neg()):
		s.Score -= 20
		s.Reasons = append(s.Reasons, "📉 deep pullback")
	}

	switch {
	case s.Score >= 60:
		s.Tier = TierStrongBuy
	case s.Score >= 40:
		s.Tier = TierBuy
	case s.Score >= 25:
		s.Tier = TierWatch
	default:
		s.Tier = TierSkip
	}
	return s, s.Score >= signalThreshold
}
