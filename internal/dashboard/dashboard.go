// Package dashboard renders persisted reports as an HTML page, serves it
// over HTTP and draws the live terminal price board.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/scheduler"
)

// Source is the read side of the database
type Source interface {
	GetStats() (*database.Stats, error)
	LatestReport(kind string) (*database.Report, error)
	LatestReports(kind string, limit int) ([]database.Report, error)
	LoadSchedulerState(name string) (*database.SchedulerState, error)
}

// Section is the newest report of one kind
type Section struct {
	Kind   string           `json:"kind"`
	Label  string           `json:"label"`
	Report *database.Report `json:"report,omitempty"`
}

// SchedulerView is a push throttle as shown on the page
type SchedulerView struct {
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Mode       string     `json:"mode"`
	LastPushAt *time.Time `json:"last_push_at,omitempty"`
}

// View is everything the page shows
type View struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Stats       database.Stats  `json:"stats"`
	Sections    []Section       `json:"sections"`
	Schedulers  []SchedulerView `json:"schedulers"`
}

var sections = []struct{ kind, label string }{
	{database.KindMemeScan, "🔥 Meme scan"},
	{database.KindLaunches, "🚀 New launches"},
	{database.KindTweets, "🐦 Tweets"},
	{database.KindPrices, "💹 Prices"},
	{database.KindNews, "📰 Finance news"},
}

// Build assembles the view from the store. Kinds with no report yet are
// kept with a nil Report so the page can say so.
func Build(ctx context.Context, src Source) (*View, error) {
	v := &View{GeneratedAt: time.Now()}

	stats, err := src.GetStats()
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	v.Stats = *stats

	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sec := Section{Kind: s.kind, Label: s.label}
		r, err := src.LatestReport(s.kind)
		switch {
		case err == nil:
			sec.Report = r
		case !errors.Is(err, database.ErrNotFound):
			return nil, fmt.Errorf("latest %s report: %w", s.kind, err)
		}
		v.Sections = append(v.Sections, sec)

		st, err := src.LoadSchedulerState(s.kind)
		switch {
		case err == nil:
			v.Schedulers = append(v.Schedulers, SchedulerView{
				Name:       st.Name,
				Status:     st.MarketStatus,
				Mode:       scheduler.Describe(*st),
				LastPushAt: st.LastPushAt,
			})
		case !errors.Is(err, database.ErrNotFound):
			return nil, fmt.Errorf("scheduler %s: %w", s.kind, err)
		}
	}
	return v, nil
}

var page = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"ts": func(t time.Time) string { return t.Format("01/02 15:04") },
}).Parse(pageHTML))

// Render writes the HTML page
func Render(w io.Writer, v *View) error {
	return page.Execute(w, v)
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Lobster dashboard</title>
<style>
body { background: #0d1117; color: #c9d1d9; font-family: -apple-system, "Segoe UI", sans-serif; margin: 0; padding: 24px; }
h1 { color: #58a6ff; margin: 0 0 4px; }
.last-update { color: #8b949e; font-size: 13px; margin-bottom: 20px; }
.overview { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 12px; margin-bottom: 20px; }
.card { background: #161b22; border: 1px solid #30363d; border-radius: 8px; padding: 14px; }
.overview-label { color: #8b949e; font-size: 12px; }
.overview-value { font-size: 24px; font-weight: 600; }
.panels { display: grid; grid-template-columns: repeat(auto-fit, minmax(420px, 1fr)); gap: 16px; }
.panel h2 { font-size: 16px; margin: 0 0 8px; }
.meta { color: #8b949e; font-size: 12px; margin-bottom: 8px; }
pre { white-space: pre-wrap; font-size: 12px; margin: 0; max-height: 480px; overflow-y: auto; }
.empty { color: #8b949e; font-style: italic; }
table { width: 100%; border-collapse: collapse; font-size: 13px; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #30363d; }
</style>
</head>
<body>
<h1>🦞 Lobster</h1>
<div class="last-update">Last update: {{ts .GeneratedAt}}</div>

<div class="overview">
  <div class="card"><div class="overview-label">Tokens tracked</div><div class="overview-value">{{.Stats.TotalTokens}}</div></div>
  <div class="card"><div class="overview-label">Seen repeatedly</div><div class="overview-value">{{.Stats.RepeatedTokens}}</div></div>
  <div class="card"><div class="overview-label">Honeypots</div><div class="overview-value">{{.Stats.HoneypotCount}}</div></div>
  <div class="card"><div class="overview-label">Tweets stored</div><div class="overview-value">{{.Stats.TotalContents}}</div></div>
  <div class="card"><div class="overview-label">Reports</div><div class="overview-value">{{.Stats.TotalReports}}</div></div>
</div>

{{if .Stats.HotTokens}}
<div class="card" style="margin-bottom:16px">
  <h2>🔁 Most sighted</h2>
  <table>
    <tr><th>Symbol</th><th>Sightings</th></tr>
    {{range .Stats.HotTokens}}<tr><td>{{.Symbol}}</td><td>{{.SeenCount}}</td></tr>{{end}}
  </table>
</div>
{{end}}

{{if .Schedulers}}
<div class="card" style="margin-bottom:16px">
  <h2>⏰ Push scheduler</h2>
  <table>
    {{range .Schedulers}}<tr><td>{{.Name}}</td><td>{{.Mode}}</td><td>{{if .LastPushAt}}last push {{ts .LastPushAt}}{{else}}never pushed{{end}}</td></tr>{{end}}
  </table>
</div>
{{end}}

<div class="panels">
{{range .Sections}}
  <div class="card panel">
    <h2>{{.Label}}</h2>
    {{with .Report}}
    <div class="meta">{{ts .CreatedAt}} · {{.ActiveCount}} active{{if .Pushed}} · pushed{{end}}</div>
    <pre>{{.Body}}</pre>
    {{else}}
    <div class="empty">No report yet</div>
    {{end}}
  </div>
{{end}}
</div>
</body>
</html>
`
