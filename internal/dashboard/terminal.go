package dashboard

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"github.com/web3guy0/lobster/internal/binance"
)

const (
	// ANSI escape codes
	ClearScreen = "\033[2J"
	CursorHome  = "\033[H"
	HideCursor  = "\033[?25l"
	ShowCursor  = "\033[?25h"

	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	FgRed   = "\033[31m"
	FgGreen = "\033[32m"
	FgCyan  = "\033[36m"

	TopLeft     = "╔"
	TopRight    = "╗"
	BottomLeft  = "╚"
	BottomRight = "╝"
	Horizontal  = "═"
	Vertical    = "║"
)

const (
	defaultWidth = 72
	minWidth     = 60
	maxWidth     = 100
)

// TickerBoard is the live terminal view for `prices stream`. On a terminal
// it redraws a boxed table in place; otherwise it prints one line per update.
type TickerBoard struct {
	mu      sync.Mutex
	out     io.Writer
	tty     bool
	width   int
	started time.Time
	updates int
	tickers map[string]binance.MiniTicker
}

// NewTickerBoard writes to out. When out is a terminal the box width
// follows the terminal size.
func NewTickerBoard(out io.Writer) *TickerBoard {
	b := &TickerBoard{
		out:     out,
		width:   defaultWidth,
		started: time.Now(),
		tickers: make(map[string]binance.MiniTicker),
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			b.width = min(max(w, minWidth), maxWidth)
		}
	}
	return b
}

// Start clears the screen on a terminal
func (b *TickerBoard) Start() {
	if b.tty {
		fmt.Fprint(b.out, HideCursor+ClearScreen)
	}
}

// Stop restores the cursor
func (b *TickerBoard) Stop() {
	if b.tty {
		fmt.Fprint(b.out, ShowCursor+"\n")
	}
}

// Update records a ticker and redraws
func (b *TickerBoard) Update(t binance.MiniTicker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tickers[t.Symbol] = t
	b.updates++

	if !b.tty {
		fmt.Fprintln(b.out, plainLine(t))
		return
	}
	fmt.Fprint(b.out, CursorHome+b.frame(time.Now()))
}

func plainLine(t binance.MiniTicker) string {
	return fmt.Sprintf("%s %s $%s %s%%",
		t.EventTime.Format("15:04:05"), t.Symbol, t.Close.StringFixed(4), signedPct(t.ChangePercent()))
}

// frame renders the whole box. Caller holds mu.
func (b *TickerBoard) frame(now time.Time) string {
	var buf strings.Builder
	inner := b.width - 2

	row := func(text string, visible int) {
		pad := max(inner-visible, 0)
		buf.WriteString(FgCyan + Vertical + Reset + text + strings.Repeat(" ", pad) + FgCyan + Vertical + Reset + "\n")
	}
	rule := func(left, right string) {
		buf.WriteString(FgCyan + left + strings.Repeat(Horizontal, inner) + right + Reset + "\n")
	}

	rule(TopLeft, TopRight)
	header := fmt.Sprintf(" 🦞 LOBSTER LIVE PRICES  ⏱️ %s  📡 %d updates", now.Sub(b.started).Round(time.Second), b.updates)
	row(Bold+header+Reset, displayWidth(header))

	cols := fmt.Sprintf(" %-10s │ %14s │ %9s │ %14s │ %14s", "Symbol", "Last", "24h", "High", "Low")
	row(Dim+cols+Reset, displayWidth(cols))

	symbols := make([]string, 0, len(b.tickers))
	for s := range b.tickers {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		t := b.tickers[s]
		change := t.ChangePercent()
		color := FgGreen
		if change.IsNegative() {
			color = FgRed
		}
		pct := fmt.Sprintf("%8s%%", signedPct(change))
		line := fmt.Sprintf(" %-10s │ %14s │ %s │ %14s │ %14s",
			s, t.Close.StringFixed(4), color+pct+Reset, t.High.StringFixed(4), t.Low.StringFixed(4))
		row(line, displayWidth(line)-len(color)-len(Reset))
	}
	if len(symbols) == 0 {
		row(" connecting...", 14)
	}
	rule(BottomLeft, BottomRight)
	buf.WriteString(Dim + " Press Ctrl+C to exit" + Reset + "\n")
	return buf.String()
}

// displayWidth counts runes; emoji occupy two cells
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r >= 0x1F000 {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func signedPct(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}
