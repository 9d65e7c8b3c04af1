package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/lobster/internal/binance"
	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/metrics"
	"github.com/web3guy0/lobster/internal/scheduler"
)

func seededDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "lobster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.RecordToken(database.TokenInput{Contract: "0xAAA", Symbol: "CLAWD", Chain: "base"})
	require.NoError(t, err)
	_, err = db.RecordToken(database.TokenInput{Contract: "0xaaa", Symbol: "CLAWD", Chain: "base"})
	require.NoError(t, err)

	require.NoError(t, db.SaveReport(&database.Report{
		Kind: database.KindMemeScan, Title: "Meme scan", Body: "#1 CLAWD <b>hot</b>", ActiveCount: 3,
	}))

	sch, err := scheduler.New(database.KindMemeScan, db)
	require.NoError(t, err)
	_, err = sch.ShouldPush(3, 0)
	require.NoError(t, err)
	return db
}

func TestBuild(t *testing.T) {
	v, err := Build(context.Background(), seededDB(t))
	require.NoError(t, err)

	assert.Equal(t, int64(1), v.Stats.TotalTokens)
	assert.Equal(t, int64(1), v.Stats.RepeatedTokens)
	require.Len(t, v.Sections, 5)
	assert.Equal(t, database.KindNews, v.Sections[4].Kind)
	require.NotNil(t, v.Sections[0].Report)
	assert.Equal(t, 3, v.Sections[0].Report.ActiveCount)
	assert.Nil(t, v.Sections[1].Report)

	require.Len(t, v.Schedulers, 1)
	assert.Equal(t, scheduler.StatusHot, v.Schedulers[0].Status)
}

func TestRenderEscapesReportBodies(t *testing.T) {
	v, err := Build(context.Background(), seededDB(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, v))
	html := buf.String()
	assert.Contains(t, html, "#1 CLAWD &lt;b&gt;hot&lt;/b&gt;")
	assert.Contains(t, html, "No report yet")
	assert.Contains(t, html, "never pushed")
	assert.Contains(t, html, "CLAWD</td><td>2</td>")
}

func TestServerRoutes(t *testing.T) {
	srv := NewServer(":0", seededDB(t), metrics.New())
	h := srv.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = get("/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	var v View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, int64(1), v.Stats.TotalTokens)

	rec = get("/api/reports/meme_scan?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Kind    string            `json:"kind"`
		Reports []database.Report `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "meme_scan", body.Kind)
	assert.Len(t, body.Reports, 1)

	assert.Equal(t, http.StatusNotFound, get("/api/reports/bogus").Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/reports/tweets?limit=-1").Code)
	assert.Equal(t, http.StatusOK, get("/api/reports/news").Code)
	assert.Equal(t, http.StatusOK, get("/healthz").Code)

	rec = get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lobster_tokens_discovered_total")
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0", seededDB(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestTickerBoardPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	b := NewTickerBoard(&buf)
	b.Start()
	b.Update(binance.MiniTicker{
		Symbol:    "BTCUSDT",
		Open:      decimal.NewFromInt(100),
		Close:     decimal.NewFromInt(95),
		EventTime: time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local),
	})
	b.Stop()
	assert.Equal(t, "09:30:00 BTCUSDT $95.0000 -5.00%\n", buf.String())
}

func TestTickerBoardFrame(t *testing.T) {
	b := NewTickerBoard(&bytes.Buffer{})
	b.tickers["ETHUSDT"] = binance.MiniTicker{Symbol: "ETHUSDT", Open: decimal.NewFromInt(4000), Close: decimal.NewFromInt(4200)}
	b.tickers["BTCUSDT"] = binance.MiniTicker{Symbol: "BTCUSDT", Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(90)}

	out := b.frame(b.started.Add(90 * time.Second))
	assert.Contains(t, out, "LOBSTER LIVE PRICES")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, FgGreen+"   +5.00%"+Reset)
	assert.Contains(t, out, FgRed+"  -10.00%"+Reset)
	assert.Less(t, bytes.Index([]byte(out), []byte("BTCUSDT")), bytes.Index([]byte(out), []byte("ETHUSDT")))
}
