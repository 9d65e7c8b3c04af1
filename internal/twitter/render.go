package twitter

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const tweetLimit = 280

var rule = strings.Repeat("=", 70)

// RenderAlert formats analyses of new tweets by user. keywords, when set,
// are highlighted per tweet.
func RenderAlert(user string, analyses []Analysis, keywords []string, now time.Time) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("🚨 New tweets from @%s", user)
	line("⏰ %s", now.Format("2006-01-02 15:04"))
	line("%s", rule)

	for i, a := range analyses {
		t := a.Tweet
		body := t.Body()

		line("")
		line("%s Tweet #%d | impact: %s", a.LevelEmoji(), i+1, a.ImpactLevel)
		if posted, ok := t.Posted(); ok {
			line("⏰ Posted: %s", posted.Format("2006-01-02 15:04 MST"))
		}
		line("%s", strings.Repeat("-", 70))

		line("📋 Engagement: ❤️%d | 🔄%d | 💬%d | score %.1f/10", t.LikeCount, t.RetweetCount, t.ReplyCount, a.Engagement)
		line("📝 %s", body)
		if truncated(body) && t.ID != "" {
			line("🔗 Full tweet: https://x.com/%s/status/%s", user, t.ID)
		}

		if hits := KeywordHits(body, keywords); len(hits) > 0 {
			line("🔑 Keywords: %s", strings.Join(hits, ", "))
		}
		if len(a.Categories) > 0 {
			names := make([]string, len(a.Categories))
			for j, c := range a.Categories {
				names[j] = fmt.Sprintf("%s (%s)", c.Name, c.Impact)
			}
			line("🏷️ Themes: %s", strings.Join(names, ", "))
		}
		if len(a.Mentions) > 0 {
			line("👥 Mentions: %s", strings.Join(head(a.Mentions, 3), ", "))
		}
		if len(a.Cashtags) > 0 {
			line("💲 Cashtags: %s", strings.Join(a.Cashtags, ", "))
		}

		line("🔍 Sentiment: %s | intensity: %s", a.Sentiment, a.Intensity)
		if a.Sarcastic {
			line("⚠️ Possibly sarcasm or a joke")
		}

		line("💹 Impact: %.1f/10 | expected move: %s", a.ImpactScore, a.Volatility)
		if len(a.PredictedAssets) > 0 {
			line("   Assets: %s", strings.Join(a.PredictedAssets, ", "))
		}

		line("%s Action: %s | %s | %s", a.LevelEmoji(), a.Urgency, a.Action, a.Timeline)
		if a.Warning != "" {
			line("   ⚠️ %s", a.Warning)
		}
		line("%s", rule)
	}
	return b.String()
}

func truncated(text string) bool {
	return strings.Contains(text, "…") || strings.HasSuffix(text, "...") || utf8.RuneCountInString(text) > tweetLimit
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
