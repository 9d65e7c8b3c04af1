// Package honeypot estimates sell-side risk of a token through honeypot.is
package honeypot

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/lobster/internal/httpx"
)

const DefaultBaseURL = "https://api.honeypot.is"

// Risk levels
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskUnknown = "unknown"
)

const reasonFlagged = "flagged as honeypot by simulation"

var (
	honeypotSellTax = decimal.NewFromInt(90)
	highSellTax     = decimal.NewFromInt(50)
)

// ChainIDs maps DexScreener chain names to honeypot.is chain IDs
var ChainIDs = map[string]int{
	"ethereum": 1,
	"bsc":      56,
	"base":     8453,
}

// Result is the classified outcome of one check
type Result struct {
	IsHoneypot bool
	Risk       string
	Reason     string
	BuyTax     decimal.Decimal
	SellTax    decimal.Decimal
}

// Emoji is a compact marker for reports
func (r Result) Emoji() string {
	switch r.Risk {
	case RiskHigh:
		return "🚨"
	case RiskMedium:
		return "⚠️"
	case RiskLow:
		return "✅"
	default:
		return "❔"
	}
}

// Classify applies the fixed tax cutoffs. A sell tax above 90% is treated as
// a honeypot even when the API itself did not flag one.
func Classify(apiHoneypot bool, buyTax, sellTax decimal.Decimal) Result {
	r := Result{Risk: RiskLow, BuyTax: buyTax, SellTax: sellTax}

	if apiHoneypot {
		r.IsHoneypot = true
		r.Risk = RiskHigh
		r.Reason = reasonFlagged
	}

	switch {
	case sellTax.GreaterThan(honeypotSellTax):
		r.IsHoneypot = true
		r.Risk = RiskHigh
		r.Reason = fmt.Sprintf("sell tax too high: %s%%", sellTax.StringFixed(1))
	case sellTax.GreaterThan(highSellTax) && !r.IsHoneypot:
		r.Risk = RiskMedium
		r.Reason = fmt.Sprintf("elevated sell tax: %s%%", sellTax.StringFixed(1))
	}
	return r
}

type apiResponse struct {
	HoneypotResult struct {
		IsHoneypot     bool   `json:"isHoneypot"`
		HoneypotReason string `json:"honeypotReason"`
	} `json:"honeypotResult"`
	SimulationSuccess bool `json:"simulationSuccess"`
	SimulationResult  struct {
		BuyTax  decimal.Decimal `json:"buyTax"`
		SellTax decimal.Decimal `json:"sellTax"`
	} `json:"simulationResult"`
}

// Checker is what the scanner depends on
type Checker interface {
	Check(ctx context.Context, address, chain string) Result
}

// Client calls honeypot.is
type Client struct {
	baseURL string
	http    *httpx.Client
}

// NewClient creates a honeypot.is client
func NewClient(baseURL string, http *httpx.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: http}
}

// Check never fails: lookup problems come back as RiskUnknown so a scan
// can keep going.
func (c *Client) Check(ctx context.Context, address, chain string) Result {
	chainID, ok := ChainIDs[strings.ToLower(chain)]
	if !ok {
		return Result{Risk: RiskUnknown, Reason: "unsupported chain " + chain}
	}

	u := fmt.Sprintf("%s/v2/IsHoneypot?address=%s&chainID=%d", c.baseURL, url.QueryEscape(address), chainID)
	var resp apiResponse
	if err := c.http.GetJSON(ctx, u, nil, &resp); err != nil {
		log.Debug().Err(err).Str("address", address).Msg("Honeypot check failed")
		return Result{Risk: RiskUnknown, Reason: "check failed"}
	}

	r := Classify(resp.HoneypotResult.IsHoneypot, resp.SimulationResult.BuyTax, resp.SimulationResult.SellTax)
	if resp.HoneypotResult.IsHoneypot && resp.HoneypotResult.HoneypotReason != "" && r.Reason == reasonFlagged {
		r.Reason = resp.HoneypotResult.HoneypotReason
	}
	if !resp.SimulationSuccess && !r.IsHoneypot {
		r.Risk = RiskUnknown
		r.Reason = "simulation did not complete"
	}
	return r
}
