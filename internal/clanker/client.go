// Package clanker reads the Clanker launchpad feed (Base chain token factory)
package clanker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/web3guy0/lobster/internal/httpx"
)

const DefaultBaseURL = "https://www.clanker.world"

// Token is one launch from the feed
type Token struct {
	ContractAddress string `json:"contract_address"`
	Symbol          string `json:"symbol"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	Description     string `json:"description"`
	CreatedAt       string `json:"created_at"`
}

// LaunchedAt parses CreatedAt; zero when the feed sent something unexpected
func (t Token) LaunchedAt() time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, t.CreatedAt); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Launcher names the platform that deployed the token
func (t Token) Launcher() string {
	desc := strings.ToLower(t.Description)
	if strings.Contains(desc, "bankr") {
		return "Bankr"
	}
	return "Clanker"
}

type tokensResponse struct {
	Data []Token `json:"data"`
}

// Client queries the Clanker API
type Client struct {
	baseURL string
	http    *httpx.Client
}

// NewClient creates a Clanker client
func NewClient(baseURL string, http *httpx.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: http}
}

// Latest returns the most recent launches, newest first as served by the API
func (c *Client) Latest(ctx context.Context, limit int) ([]Token, error) {
	if limit <= 0 {
		limit = 20
	}
	u := fmt.Sprintf("%s/api/tokens?limit=%d", c.baseURL, limit)
	var resp tokensResponse
	if err := c.http.GetJSON(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("clanker latest: %w", err)
	}
	return resp.Data, nil
}
