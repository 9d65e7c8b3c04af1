// Package twitter watches X accounts through the twitterapi.io proxy and
// scores new tweets for market impact.
package twitter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/web3guy0/lobster/internal/httpx"
)

const DefaultBaseURL = "https://api.twitterapi.io"

type Author struct {
	UserName string `json:"userName"`
	Name     string `json:"name"`
}

// Tweet is the subset of the twitterapi.io tweet object we use
type Tweet struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Text         string `json:"text"`
	FullText     string `json:"full_text"`
	CreatedAt    string `json:"createdAt"`
	LikeCount    int    `json:"likeCount"`
	RetweetCount int    `json:"retweetCount"`
	ReplyCount   int    `json:"replyCount"`
	ViewCount    int    `json:"viewCount"`
	Author       Author `json:"author"`
}

// Body prefers the untruncated text when the API sends it
func (t Tweet) Body() string {
	if t.FullText != "" {
		return t.FullText
	}
	return t.Text
}

// Posted parses CreatedAt (Twitter's classic format or RFC 3339)
func (t Tweet) Posted() (time.Time, bool) {
	for _, layout := range []string{time.RubyDate, time.RFC3339} {
		if ts, err := time.Parse(layout, t.CreatedAt); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

type searchResponse struct {
	Tweets []Tweet `json:"tweets"`
	Status string  `json:"status"`
	Msg    string  `json:"msg"`
}

// Client calls twitterapi.io
type Client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
}

func NewClient(baseURL, apiKey string, http *httpx.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: http}
}

// Search runs an advanced search, newest first
func (c *Client) Search(ctx context.Context, query string, count int) ([]Tweet, error) {
	if count <= 0 {
		count = 10
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("queryType", "Latest")
	q.Set("count", fmt.Sprint(count))
	u := c.baseURL + "/twitter/tweet/advanced_search?" + q.Encode()

	var resp searchResponse
	if err := c.http.GetJSON(ctx, u, map[string]string{"X-API-Key": c.apiKey}, &resp); err != nil {
		return nil, fmt.Errorf("twitter search %q: %w", query, err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("twitter search %q: %s", query, resp.Msg)
	}
	return resp.Tweets, nil
}

// LatestTweets returns the newest tweets posted by user
func (c *Client) LatestTweets(ctx context.Context, user string, count int) ([]Tweet, error) {
	return c.Search(ctx, "from:"+user, count)
}
