package twitter

import (
	"math"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"
)

// Impact levels
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

// Category is a market theme a tweet touches
type Category struct {
	Name        string
	Impact      string
	TypicalMove string
	terms       []string
	assets      []string
}

// Ordered: the first detected category drives the impact score
var categories = []Category{
	{
		Name: "crypto", Impact: ImpactHigh, TypicalMove: "±10-30%",
		terms:  []string{"doge", "dogecoin", "bitcoin", "btc", "crypto", "cryptocurrency", "blockchain", "token", "$doge", "$btc", "memecoin"},
		assets: []string{"DOGE/USDT", "BTC/USDT", "DOGE/USD"},
	},
	{
		Name: "tesla", Impact: ImpactMedium, TypicalMove: "±3-8%",
		terms:  []string{"tesla", "tsla", "cybertruck", "fsd", "model s", "model 3", "model x", "model y", "ev", "electric vehicle"},
		assets: []string{"TSLA", "Tesla suppliers"},
	},
	{
		Name: "spacex", Impact: ImpactLow, TypicalMove: "thematic only",
		terms:  []string{"spacex", "mars", "rocket", "starship", "falcon", "launch", "landing", "space", "starlink", "satellite"},
		assets: []string{"Aerospace ETF (ITA)", "SpaceX (private)"},
	},
	{
		Name: "ai_tech", Impact: ImpactMedium, TypicalMove: "AI theme stocks",
		terms:  []string{"ai", "artificial intelligence", "neural", "gpt", "neuralink", "tech", "technology", "robot", "optimus"},
		assets: []string{"NVDA", "MSFT", "AI theme stocks"},
	},
}

var (
	sarcasmMarkers = []string{"lol", "haha", "😂", "joke", "jk", "just kidding", "obviously", "definitely", "sure", "totally", "probably"}

	intensityLevels = []struct {
		level string
		words []string
	}{
		{"strong", []string{"massive", "huge", "incredible", "amazing", "revolutionary", "game changer", "breakthrough", "moon", "mars"}},
		{"moderate", []string{"good", "great", "nice", "cool", "interesting"}},
		{"mild", []string{"ok", "fine", "maybe", "perhaps"}},
	}

	positiveWords = []string{"love", "great", "amazing", "awesome", "bullish", "moon", "rocket"}
	negativeWords = []string{"hate", "bad", "terrible", "bearish", "crash", "dump", "scam"}

	mentionRe = regexp.MustCompile(`@(\w+)`)
	cashtagRe = regexp.MustCompile(`\$([A-Za-z]+)`)
	hashtagRe = regexp.MustCompile(`#(\w+)`)
)

const (
	sarcasmLikes  = 100_000
	sarcasmFactor = 0.7
	// sentiment score at which the impact score gets +1
	strongSentiment = 8
	maxAssets       = 5
)

var newYork = loadNewYork()

func loadNewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Analysis is the five-layer read of one tweet
type Analysis struct {
	Tweet Tweet

	// Layer 1: basic
	Engagement float64

	// Layer 2: entities
	Mentions   []string
	Cashtags   []string
	Hashtags   []string
	Categories []Category

	// Layer 3: semantic
	Sentiment      string
	SentimentScore int
	Intensity      string
	SarcasmScore   int
	Sarcastic      bool

	// Layer 4: impact
	TradingHours    bool
	ImpactScore     float64
	ImpactLevel     string
	PredictedAssets []string
	Volatility      string

	// Layer 5: recommendation
	Urgency  string
	Action   string
	Timeline string
	Warning  string
}

// Analyze scores a tweet with fixed keyword heuristics
func Analyze(t Tweet) Analysis {
	text := t.Body()
	lower := strings.ToLower(text)
	a := Analysis{Tweet: t}

	a.Engagement = engagement(t.LikeCount + 2*t.RetweetCount + 3*t.ReplyCount)

	a.Mentions = submatches(mentionRe, text)
	a.Cashtags = submatches(cashtagRe, text)
	a.Hashtags = submatches(hashtagRe, text)
	for _, c := range categories {
		if containsAny(lower, c.terms) {
			a.Categories = append(a.Categories, c)
		}
	}

	for _, m := range sarcasmMarkers {
		if strings.Contains(lower, m) {
			a.SarcasmScore++
		}
	}
	a.Sarcastic = a.SarcasmScore >= 1 && t.LikeCount > sarcasmLikes

	a.Intensity = "neutral"
	for _, lvl := range intensityLevels {
		if containsAny(lower, lvl.words) {
			a.Intensity = lvl.level
			break
		}
	}

	pos, neg := countAny(lower, positiveWords), countAny(lower, negativeWords)
	switch {
	case pos > neg:
		a.Sentiment, a.SentimentScore = "positive", min(pos*2, 10)
	case neg > pos:
		a.Sentiment, a.SentimentScore = "negative", min(neg*2, 10)
	default:
		a.Sentiment, a.SentimentScore = "neutral", 5
	}

	a.scoreImpact()
	a.recommend()
	return a
}

func (a *Analysis) scoreImpact() {
	score := 0.0
	likes := a.Tweet.LikeCount
	switch {
	case likes > 200_000:
		score += 3
	case likes > 100_000:
		score += 2.5
	case likes > 50_000:
		score += 2
	case likes > 10_000:
		score += 1
	}

	if len(a.Categories) > 0 {
		switch a.Categories[0].Impact {
		case ImpactHigh:
			score += 3
		case ImpactMedium:
			score += 2
		default:
			score += 1
		}
	}

	if posted, ok := a.Tweet.Posted(); ok && usTradingHours(posted) {
		a.TradingHours = true
		score += 2
	} else {
		score += 1
	}

	if a.Sarcastic {
		score *= sarcasmFactor
	}
	if a.SentimentScore >= strongSentiment {
		score++
	}
	score = math.Min(score, 10)
	a.ImpactScore = math.Round(score*10) / 10

	switch {
	case a.ImpactScore >= 8:
		a.ImpactLevel = ImpactHigh
	case a.ImpactScore >= 5:
		a.ImpactLevel = ImpactMedium
	default:
		a.ImpactLevel = ImpactLow
	}

	seen := make(map[string]bool)
	for _, c := range a.Categories {
		for _, asset := range c.assets {
			if !seen[asset] && len(a.PredictedAssets) < maxAssets {
				seen[asset] = true
				a.PredictedAssets = append(a.PredictedAssets, asset)
			}
		}
	}

	if len(a.Categories) == 0 {
		a.Volatility = "no significant move expected"
		return
	}
	a.Volatility = a.Categories[0].TypicalMove
	if a.Sarcastic {
		a.Volatility += " (possibly sarcasm, move may fade)"
	}
}

// engagement maps weighted interactions (likes + 2 retweets + 3 replies)
// onto 0-10, flattening above 100k.
func engagement(total int) float64 {
	t := float64(total)
	switch {
	case t > 500_000:
		return 10
	case t > 100_000:
		return 7 + (t-100_000)/400_000*3
	case t > 50_000:
		return 5 + (t-50_000)/50_000*2
	default:
		return t / 50_000 * 5
	}
}

func (a *Analysis) recommend() {
	switch a.ImpactLevel {
	case ImpactHigh:
		a.Urgency, a.Action, a.Timeline = "HIGH", "act now", "check related assets immediately"
	case ImpactMedium:
		a.Urgency, a.Action, a.Timeline = "MEDIUM", "monitor closely", "within 30 minutes"
	default:
		a.Urgency, a.Action, a.Timeline = "LOW", "routine watch", "next check"
	}
	if a.Sarcastic {
		a.Warning = "tweet may be a joke, the market may overreact; avoid chasing"
	}
}

// LevelEmoji marks the impact level in alerts
func (a Analysis) LevelEmoji() string {
	switch a.ImpactLevel {
	case ImpactHigh:
		return "🔴"
	case ImpactMedium:
		return "🟡"
	default:
		return "⚪"
	}
}

// KeywordHits returns the keywords found in text, case-insensitively, in
// the order given.
func KeywordHits(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// usTradingHours is weekdays 09:00-16:59 New York time
func usTradingHours(t time.Time) bool {
	ny := t.In(newYork)
	if wd := ny.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return ny.Hour() >= 9 && ny.Hour() <= 16
}

func submatches(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func countAny(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
