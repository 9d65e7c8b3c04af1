package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Rough BNB spent per mining round, used for the runway estimate
var costPerRound = decimal.RequireFromString("0.005")

// Status is a balance check of the mining wallet
type Status struct {
	Address   common.Address
	Native    decimal.Decimal
	Threshold decimal.Decimal
	PriceUSD  decimal.Decimal // BNB/USD, zero when unknown
	Token     *TokenBalance
	TokenErr  error
	CheckedAt time.Time
}

// Low reports whether the wallet needs a top-up
func (s Status) Low() bool {
	return s.Native.LessThan(s.Threshold)
}

// Rounds estimates how many mining rounds the balance still covers
func (s Status) Rounds() int64 {
	return s.Native.Div(costPerRound).IntPart()
}

// Status checks the native balance of owner and, when token is set, its
// ERC-20 balance. A token failure is kept on the status, not returned.
func (w *Wallet) Status(ctx context.Context, owner, token common.Address, threshold decimal.Decimal) (Status, error) {
	s := Status{Address: owner, Threshold: threshold, CheckedAt: time.Now()}

	native, err := w.NativeBalance(ctx, owner)
	if err != nil {
		return s, err
	}
	s.Native = native

	if token != (common.Address{}) {
		tb, err := w.TokenBalance(ctx, token, owner)
		if err != nil {
			s.TokenErr = err
		} else {
			s.Token = &tb
		}
	}
	return s, nil
}

func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Mining wallet status ===\n")
	fmt.Fprintf(&b, "📅 Time: %s\n", s.CheckedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "💼 Wallet: %s\n", s.Address.Hex())
	if s.PriceUSD.IsPositive() {
		fmt.Fprintf(&b, "🔷 BNB Balance: %s BNB (≈ $%s)\n", s.Native.StringFixed(6), s.Native.Mul(s.PriceUSD).StringFixed(2))
	} else {
		fmt.Fprintf(&b, "🔷 BNB Balance: %s BNB\n", s.Native.StringFixed(6))
	}
	if s.Low() {
		fmt.Fprintf(&b, "⚠️ ALERT: BNB balance below %s, top up needed\n", s.Threshold)
	} else {
		fmt.Fprintf(&b, "✅ BNB balance sufficient (about %d rounds)\n", s.Rounds())
	}

	switch {
	case s.Token != nil:
		symbol := s.Token.Symbol
		if symbol == "" {
			symbol = "TOKEN"
		}
		fmt.Fprintf(&b, "🪙 %s Balance: %s %s\n", symbol, s.Token.Amount.StringFixed(2), symbol)
	case s.TokenErr != nil:
		fmt.Fprintf(&b, "❌ Token balance unavailable: %v\n", s.TokenErr)
	}
	return b.String()
}
