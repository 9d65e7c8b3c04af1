package meme

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/lobster/internal/database"
)

var (
	rule     = strings.Repeat("=", 70)
	thinRule = strings.Repeat("-", 70)
	boxRule  = strings.Repeat("─", 70)
)

// Render formats a report as plain text for the terminal and Telegram
func Render(r *Report) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	icon := "🚀"
	if r.Kind == database.KindLaunches {
		icon = "🦞"
	}
	line("%s", rule)
	line("%s %s", icon, r.Title)
	line("📅 %s", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	line("%s", rule)
	line("")

	if r.FailedQueries > 0 {
		line("⚠️ %d of %d queries failed", r.FailedQueries, r.Queries)
		line("")
	}
	if r.HoneypotCount > 0 {
		line("🚫 Filtered %d honeypot(s)", r.HoneypotCount)
		line("")
	}

	if len(r.Candidates) == 0 {
		line("📭 No tokens matched")
		return b.String()
	}

	h := r.Hotspots
	line("🔥 Market hotspots")
	line("%s", thinRule)
	line("%s", h.Sentiment)
	line("")

	if len(h.TopGainers) > 0 {
		line("📈 Top gainers")
		line("%s", thinRule)
		medals := []string{"🥇", "🥈", "🥉"}
		for i, c := range h.TopGainers {
			line("%s %s: %s | 💧%s | 📊%s", medals[i], displaySymbol(c), signedPct(c.Change24h), usd(c.Liquidity), usd(c.Volume24h))
		}
		line("")
	}

	if len(h.TopVolume) > 0 {
		line("💧 Top volume")
		line("%s", thinRule)
		for i, c := range h.TopVolume {
			line("%d. %s: %s | %s", i+1, displaySymbol(c), usd(c.Volume24h), signedPct(c.Change24h))
		}
		line("")
	}

	if len(h.Narratives) > 0 {
		line("🎯 Hot narratives")
		line("%s", thinRule)
		for _, n := range h.Narratives {
			line("  %s", n)
		}
		line("")
	}

	if r.NewCount > 0 {
		line("🚨 New tokens (first sighting)")
		line("%s", thinRule)
		for _, c := range r.Candidates {
			if c.IsNew {
				line("⚠️ %s %s | 📊 %s", displaySymbol(c), price(c.Price), usd(c.Volume24h))
			}
		}
		line("")
	}

	line("%s", rule)
	line("📋 Token detail")
	line("%s", rule)

	for i, c := range r.Candidates {
		mark := ""
		switch {
		case c.IsNew:
			mark = " 🆕 NEW"
		case c.SeenToday:
			mark = " 🔁 seen today"
		}

		line("")
		line("%s", boxRule)
		line("#%d %s%s", i+1, displaySymbol(c), mark)
		line("%s", boxRule)
		line("💰 Price: %s | 24h: %s", price(c.Price), signedPct(c.Change24h))
		line("💧 Liquidity: %s | Volume: %s | MC: %s", usd(c.Liquidity), usd(c.Volume24h), usd(c.MarketCap))
		line("🔄 Txns: %d", c.TxCount)

		if c.Launcher != "" {
			launched := ""
			if !c.CreatedAt.IsZero() {
				launched = " | ⏰ " + age(r.GeneratedAt.Sub(c.CreatedAt)) + " ago"
			}
			line("🏭 %s (%s)%s", c.Launcher, c.TokenType, launched)
		}
		if n := c.Narrative.String(); n != "" {
			line("📖 Narrative: %s", n)
		}
		if f := ContractFeature(c.Address); f != "" {
			line("%s", f)
		}
		if c.IsNew && c.Address != "" {
			line("📄 Contract: %s", c.Address)
		}
		line("💡 Reason: %s", Reason(c))
		if sig, ok := Score(c); ok {
			line("%s %s (score %d): %s", sig.Emoji(), sig.Tier, sig.Score, strings.Join(sig.Reasons, ", "))
		}
		if c.Risk.Risk != "" {
			risk := c.Risk.Risk
			if c.Risk.Reason != "" {
				risk += ", " + c.Risk.Reason
			}
			line("%s Risk: %s", c.Risk.Emoji(), risk)
		}
		if c.PairURL != "" {
			line("🔗 %s", c.PairURL)
		}
	}

	line("")
	line("%s", rule)
	line("⚠️ Meme tokens are extremely risky. Data for reference only, DYOR.")
	line("%s", rule)
	return b.String()
}

func signedPct(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if !d.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}

func price(d decimal.Decimal) string {
	return "$" + d.StringFixed(8)
}

// usd formats a dollar amount with thousands separators and no cents
func usd(d decimal.Decimal) string {
	s := d.Round(0).Abs().StringFixed(0)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if d.Round(0).IsNegative() {
		return "-$" + b.String()
	}
	return "$" + b.String()
}

func age(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
