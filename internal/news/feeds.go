// Package news aggregates Chinese finance headlines from public roll feeds.
package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/web3guy0/lobster/internal/httpx"
)

const (
	SinaURL    = "https://feed.sina.com.cn/api/roll/get?pageid=153&lid=2516&num=15"
	CLSURL     = "https://www.cls.cn/api/roll/get"
	Kr36URL    = "https://36kr.com/api/newsflash/catalog"
	ZhitongURL = "https://www.zhitongcaijing.com/content/recommend.html"

	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Item is one headline
type Item struct {
	Source string
	ID     string
	Title  string
	URL    string
	Tag    string
}

// Feed is one headline source
type Feed interface {
	Name() string
	Fetch(ctx context.Context) ([]Item, error)
}

// DefaultFeeds returns every built-in source
func DefaultFeeds(http *httpx.Client) []Feed {
	return []Feed{
		NewSinaFeed(SinaURL, http),
		NewCLSFeed(CLSURL, http),
		NewKr36Feed(Kr36URL, http),
		NewZhitongFeed(ZhitongURL, http),
	}
}

// SinaFeed reads the Sina Finance roll API
type SinaFeed struct {
	URL  string
	http *httpx.Client
}

func NewSinaFeed(url string, http *httpx.Client) *SinaFeed { return &SinaFeed{URL: url, http: http} }

func (f *SinaFeed) Name() string { return "sina" }

func (f *SinaFeed) Fetch(ctx context.Context) ([]Item, error) {
	var resp struct {
		Result struct {
			Data []struct {
				DocID string `json:"docid"`
				Title string `json:"title"`
				URL   string `json:"url"`
			} `json:"data"`
		} `json:"result"`
	}
	if err := f.http.GetJSON(ctx, f.URL, map[string]string{"User-Agent": browserUA}, &resp); err != nil {
		return nil, fmt.Errorf("sina roll: %w", err)
	}
	var items []Item
	for _, d := range resp.Result.Data {
		id := d.DocID
		if id == "" {
			id = d.URL
		}
		items = append(items, Item{Source: f.Name(), ID: id, Title: d.Title, URL: d.URL, Tag: "finance"})
	}
	return items, nil
}

// CLSFeed reads the Cailian Press telegraph roll
type CLSFeed struct {
	URL  string
	http *httpx.Client
}

func NewCLSFeed(url string, http *httpx.Client) *CLSFeed { return &CLSFeed{URL: url, http: http} }

func (f *CLSFeed) Name() string { return "cls" }

func (f *CLSFeed) Fetch(ctx context.Context) ([]Item, error) {
	var resp struct {
		Code int `json:"code"`
		Data []struct {
			ID    json.Number `json:"id"`
			Title string      `json:"title"`
		} `json:"data"`
	}
	headers := map[string]string{"User-Agent": browserUA, "Referer": "https://www.cls.cn/"}
	if err := f.http.GetJSON(ctx, f.URL, headers, &resp); err != nil {
		return nil, fmt.Errorf("cls roll: %w", err)
	}
	if resp.Code != 200 {
		return nil, fmt.Errorf("cls roll: code %d", resp.Code)
	}
	var items []Item
	for _, d := range resp.Data {
		id := d.ID.String()
		items = append(items, Item{
			Source: f.Name(),
			ID:     id,
			Title:  d.Title,
			URL:    "https://www.cls.cn/detail/" + id,
			Tag:    "flash",
		})
	}
	return items, nil
}

// Terms that tag a 36Kr flash as data-center news
var datacenterTerms = []string{"数据中心", "IDC", "算力", "服务器", "AI", "人工智能", "云计算", "GPU"}

// Kr36Feed reads 36Kr newsflashes
type Kr36Feed struct {
	URL  string
	http *httpx.Client
}

func NewKr36Feed(url string, http *httpx.Client) *Kr36Feed { return &Kr36Feed{URL: url, http: http} }

func (f *Kr36Feed) Name() string { return "36kr" }

func (f *Kr36Feed) Fetch(ctx context.Context) ([]Item, error) {
	var resp struct {
		Data struct {
			NewsflashList []struct {
				ID    json.Number `json:"id"`
				Title string      `json:"title"`
			} `json:"newsflashList"`
		} `json:"data"`
	}
	if err := f.http.GetJSON(ctx, f.URL, map[string]string{"User-Agent": browserUA}, &resp); err != nil {
		return nil, fmt.Errorf("36kr newsflash: %w", err)
	}
	var items []Item
	for _, d := range resp.Data.NewsflashList {
		tag := "tech"
		for _, term := range datacenterTerms {
			if strings.Contains(d.Title, term) {
				tag = "datacenter"
				break
			}
		}
		id := d.ID.String()
		items = append(items, Item{
			Source: f.Name(),
			ID:     id,
			Title:  d.Title,
			URL:    "https://36kr.com/newsflashes/" + id,
			Tag:    tag,
		})
	}
	return items, nil
}

// ZhitongFeed scrapes the Zhitong Finance recommendation page, which has no
// JSON API. Article links point at /detail/ pages.
type ZhitongFeed struct {
	URL  string
	http *httpx.Client
}

func NewZhitongFeed(url string, http *httpx.Client) *ZhitongFeed {
	return &ZhitongFeed{URL: url, http: http}
}

func (f *ZhitongFeed) Name() string { return "zhitong" }

const (
	zhitongBase     = "https://www.zhitongcaijing.com"
	minZhitongTitle = 10
)

func (f *ZhitongFeed) Fetch(ctx context.Context) ([]Item, error) {
	body, err := f.http.Get(ctx, f.URL, map[string]string{"User-Agent": browserUA, "Accept": "text/html"})
	if err != nil {
		return nil, fmt.Errorf("zhitong page: %w", err)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse zhitong page: %w", err)
	}

	var items []Item
	seen := make(map[string]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attr(n, "href")
			title := strings.TrimSpace(text(n))
			if strings.Contains(href, "/detail/") && len([]rune(title)) >= minZhitongTitle && !seen[href] {
				seen[href] = true
				if !strings.Contains(href, "zhitongcaijing.com") {
					href = zhitongBase + href
				}
				items = append(items, Item{Source: f.Name(), ID: href, Title: title, URL: href, Tag: "hk"})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return items, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
