package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/lobster/internal/binance"
	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/twelvedata"
)

type fakeCrypto map[string]binance.Ticker

func (f fakeCrypto) Ticker24h(_ context.Context, symbol string) (binance.Ticker, error) {
	t, ok := f[symbol]
	if !ok {
		return binance.Ticker{}, errors.New("invalid symbol")
	}
	return t, nil
}

type fakeStocks map[string]twelvedata.Quote

func (f fakeStocks) Quote(_ context.Context, symbol string) (twelvedata.Quote, error) {
	q, ok := f[symbol]
	if !ok {
		return twelvedata.Quote{}, twelvedata.ErrBudgetExhausted
	}
	return q, nil
}

type memReports struct{ saved []*database.Report }

func (m *memReports) SaveReport(r *database.Report) error {
	r.ID = "rep-1"
	m.saved = append(m.saved, r)
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSnapshot(t *testing.T) {
	crypto := fakeCrypto{
		"BTCUSDT": {LastPrice: d("67250.5"), PriceChangePercent: d("-1.2"), HighPrice: d("68000"), LowPrice: d("66000")},
	}
	stocks := fakeStocks{
		"NVTS": {Name: "Navitas Semiconductor", Close: d("7.42"), PercentChange: d("6")},
	}
	reports := &memReports{}
	tr := NewTracker(crypto, stocks, reports)
	tr.now = func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) }

	snap, err := tr.Snapshot(context.Background(), Watchlist{
		Crypto: []string{"BTCUSDT", "NOPEUSDT"},
		Stocks: []string{"NVTS"},
	})
	require.NoError(t, err)

	require.Len(t, snap.Crypto, 2)
	assert.Equal(t, "BTC", snap.Crypto[0].Name)
	assert.Error(t, snap.Crypto[1].Err)
	assert.Equal(t, 1, snap.Failed())
	assert.Equal(t, "rep-1", snap.ID)

	assert.Contains(t, snap.Text, "📉 BTC (BTCUSDT): $67250.50 -1.20%")
	assert.Contains(t, snap.Text, "📈 Navitas Semiconductor (NVTS): $7.42 +6.00%")
	assert.Contains(t, snap.Text, "❌ NOPEUSDT: invalid symbol")
	assert.Contains(t, snap.Text, "⚠️ 1 symbol(s) failed")
	assert.Contains(t, snap.Text, "   🔥 Surge +6.00%")
	assert.Contains(t, snap.Text, "🔥 1 symbol(s) with unusual moves")

	require.Len(t, reports.saved, 1)
	assert.Equal(t, database.KindPrices, reports.saved[0].Kind)
	assert.Equal(t, 2, reports.saved[0].ActiveCount)
}

func TestSnapshotAllFailed(t *testing.T) {
	tr := NewTracker(fakeCrypto{}, fakeStocks{}, nil)
	_, err := tr.Snapshot(context.Background(), DefaultWatchlist())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSnapshotCryptoOnly(t *testing.T) {
	tr := NewTracker(fakeCrypto{"ETHUSDT": {LastPrice: d("4000")}}, nil, nil)
	snap, err := tr.Snapshot(context.Background(), Watchlist{Crypto: []string{"ETHUSDT"}, Stocks: []string{"NVTS"}})
	require.NoError(t, err)
	assert.Empty(t, snap.Stocks)
	assert.NotContains(t, snap.Text, "US stocks")
	assert.Empty(t, snap.ID)
}

func TestSignals(t *testing.T) {
	tests := []struct {
		name   string
		item   Item
		expect []string
	}{
		{"surge", Item{ChangePct: d("5.5")}, []string{"🔥 Surge +5.50%"}},
		{"exactly five is a rally", Item{ChangePct: d("5")}, []string{"📈 Rally +5.00%"}},
		{"rally", Item{ChangePct: d("3.2")}, []string{"📈 Rally +3.20%"}},
		{"quiet", Item{ChangePct: d("3")}, nil},
		{"drop", Item{ChangePct: d("-4")}, []string{"📉 Drop -4.00%"}},
		{"plunge", Item{ChangePct: d("-7.25")}, []string{"❄️ Plunge -7.25%"}},
		{"after hours only", Item{ChangePct: d("1"), AfterHoursPct: d("-2.5")}, []string{"🌙 After hours down -2.50%"}},
		{"both", Item{ChangePct: d("6"), AfterHoursPct: d("3")}, []string{"🔥 Surge +6.00%", "🌙 After hours up +3.00%"}},
		{"failed item", Item{ChangePct: d("9"), Err: errors.New("x")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Signals(tt.item))
		})
	}
}

func TestSnapshotCarriesAfterHours(t *testing.T) {
	stocks := fakeStocks{"TXN": {Close: d("180"), PercentChange: d("0.5"), ExtendedPercentChange: d("2.4")}}
	snap, err := NewTracker(nil, stocks, nil).Snapshot(context.Background(), Watchlist{Stocks: []string{"TXN"}})
	require.NoError(t, err)
	assert.True(t, snap.Stocks[0].AfterHoursPct.Equal(d("2.4")))
	assert.Contains(t, snap.Text, "🌙 After hours up +2.40%")
}
