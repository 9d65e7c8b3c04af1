package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultProfile is used by `meme scan` when no --profile is given
const DefaultProfile = "base-ai"

// Profile describes one scanner run: what to search for and how to filter it.
// Zero thresholds are treated as unset.
type Profile struct {
	Name         string          `yaml:"-"`
	Chain        string          `yaml:"chain"`
	HoneypotScan bool            `yaml:"honeypot_scan"`
	Queries      []string        `yaml:"queries"`
	Keywords     []string        `yaml:"keywords"`
	MinLiquidity decimal.Decimal `yaml:"min_liquidity"`
	MaxLiquidity decimal.Decimal `yaml:"max_liquidity"`
	MinVolume    decimal.Decimal `yaml:"min_volume"`
	MinMarketCap decimal.Decimal `yaml:"min_market_cap"`
	MaxMarketCap decimal.Decimal `yaml:"max_market_cap"`
	MinHolders   int             `yaml:"min_holders"`
	SortBy       string          `yaml:"sort_by"`
	TopN         int             `yaml:"top_n"`
}

type profileFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// BuiltinProfiles returns the profiles shipped with the binary
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"base-ai": {
			Name:         "base-ai",
			Chain:        "base",
			HoneypotScan: true,
			Queries:      []string{"base chain"},
			Keywords:     []string{"clanker", "claw", "ai", "agent", "bot", "bankr", "aixbt", "luna", "zerebro"},
			MinLiquidity: decimal.NewFromInt(10_000),
			MaxLiquidity: decimal.NewFromInt(100_000_000),
			SortBy:       "volume",
			TopN:         10,
		},
		"base-hot": {
			Name:      "base-hot",
			Chain:     "base",
			Queries:   []string{"clanker", "bankr", "meme", "ai", "elon", "based"},
			MinVolume: decimal.NewFromInt(10_000),
			SortBy:    "volume",
			TopN:      20,
		},
		"bsc-meme": {
			Name:         "bsc-meme",
			Chain:        "bsc",
			HoneypotScan: true,
			Queries:      []string{"meme", "pepe", "doge", "bnb"},
			MinLiquidity: decimal.NewFromInt(20_000),
			MinVolume:    decimal.NewFromInt(50_000),
			MaxMarketCap: decimal.NewFromInt(50_000_000),
			SortBy:       "change",
			TopN:         10,
		},
	}
}

// LoadProfiles merges the YAML file at path (if any) over the built-ins.
// A profile in the file replaces the built-in of the same name entirely.
func LoadProfiles(path string) (map[string]Profile, error) {
	profiles := BuiltinProfiles()
	if path == "" {
		return profiles, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}

	var file profileFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}

	for name, p := range file.Profiles {
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		profiles[name] = p
	}
	return profiles, nil
}

// Validate checks a profile for obviously broken settings
func (p Profile) Validate() error {
	if len(p.Queries) == 0 {
		return fmt.Errorf("at least one query is required")
	}
	if !p.MaxLiquidity.IsZero() && p.MaxLiquidity.LessThanOrEqual(p.MinLiquidity) {
		return fmt.Errorf("max_liquidity must be greater than min_liquidity")
	}
	if !p.MaxMarketCap.IsZero() && p.MaxMarketCap.LessThanOrEqual(p.MinMarketCap) {
		return fmt.Errorf("max_market_cap must be greater than min_market_cap")
	}
	switch p.SortBy {
	case "", "volume", "change", "liquidity", "marketcap", "holders":
	default:
		return fmt.Errorf("unknown sort_by %q", p.SortBy)
	}
	if p.TopN < 0 {
		return fmt.Errorf("top_n must not be negative")
	}
	return nil
}

// Profile looks up a profile by name
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (have: %v)", name, c.ProfileNames())
	}
	return p, nil
}

// ProfileNames lists the available profiles in a stable order
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
