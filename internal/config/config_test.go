package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	testrequire "github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("DRY_RUN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("MIN_BNB_THRESHOLD", "")
	t.Setenv("MIN_BNB_FLOOR", "")
	t.Setenv("LOBSTER_PROFILES", "")

	cfg, err := Load()
	testrequire.NoError(t, err)

	assert.True(t, cfg.DryRun)
	assert.Equal(t, "data/lobster.db", cfg.DatabasePath)
	assert.True(t, cfg.MinBNBThreshold.Equal(decimal.NewFromFloat(0.01)))
	assert.Equal(t, 60*time.Second, cfg.MiningInterval)
	assert.False(t, cfg.TelegramEnabled())
	assert.Contains(t, cfg.Profiles, DefaultProfile)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DRY_RUN", "false")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
	t.Setenv("MINING_INTERVAL", "90s")
	t.Setenv("GAS_PRICE_GWEI", "3")
	t.Setenv("LOBSTER_PROFILES", "")

	cfg, err := Load()
	testrequire.NoError(t, err)

	assert.False(t, cfg.DryRun)
	assert.Equal(t, int64(12345), cfg.TelegramChatID)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, 90*time.Second, cfg.MiningInterval)
	assert.True(t, cfg.GasPriceGwei.Equal(decimal.NewFromInt(3)))
}

func TestLoadRejectsBadChatID(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err := Load()
	testrequire.Error(t, err)
}

func TestLoadRejectsFloorAboveThreshold(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("MIN_BNB_THRESHOLD", "0.001")
	t.Setenv("MIN_BNB_FLOOR", "0.01")
	_, err := Load()
	testrequire.Error(t, err)
}

func TestRequireReportsMissingVars(t *testing.T) {
	cfg := &Config{BSCRPCURL: "http://rpc"}

	err := cfg.RequireWallet()
	testrequire.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "WALLET_PRIVATE_KEY")

	cfg.WalletPrivateKey = "0xabc"
	assert.NoError(t, cfg.RequireWallet())

	assert.ErrorIs(t, cfg.RequireTwitter(), ErrMissing)
	assert.ErrorIs(t, cfg.RequireTwelveData(), ErrMissing)
}

func TestLoadProfilesOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	body := `
profiles:
  base-ai:
    chain: base
    queries: ["clanker"]
    keywords: ["claw"]
    min_liquidity: 5000
    sort_by: change
    top_n: 3
  sol-pump:
    chain: solana
    queries: ["pump"]
    min_holders: 100
    sort_by: holders
`
	testrequire.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	profiles, err := LoadProfiles(path)
	testrequire.NoError(t, err)

	ai := profiles["base-ai"]
	assert.Equal(t, "base-ai", ai.Name)
	assert.Equal(t, []string{"clanker"}, ai.Queries)
	assert.True(t, ai.MinLiquidity.Equal(decimal.NewFromInt(5000)))
	assert.True(t, ai.MaxLiquidity.IsZero(), "file profile replaces the built-in entirely")
	assert.Equal(t, 3, ai.TopN)

	sol := profiles["sol-pump"]
	assert.Equal(t, 100, sol.MinHolders)
	assert.Equal(t, "holders", sol.SortBy)

	assert.Contains(t, profiles, "bsc-meme", "built-ins not in the file survive")
}

func TestLoadProfilesValidation(t *testing.T) {
	cases := map[string]string{
		"no queries":   "profiles:\n  x:\n    chain: base\n",
		"bad sort":     "profiles:\n  x:\n    queries: [a]\n    sort_by: hype\n",
		"bad liq band": "profiles:\n  x:\n    queries: [a]\n    min_liquidity: 10\n    max_liquidity: 5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "p.yaml")
			testrequire.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadProfiles(path)
			assert.Error(t, err)
		})
	}
}

func TestProfileLookup(t *testing.T) {
	cfg := &Config{Profiles: BuiltinProfiles()}

	p, err := cfg.Profile("")
	testrequire.NoError(t, err)
	assert.Equal(t, DefaultProfile, p.Name)

	_, err = cfg.Profile("nope")
	assert.Error(t, err)

	assert.Equal(t, []string{"base-ai", "base-hot", "bsc-meme"}, cfg.ProfileNames())
}
