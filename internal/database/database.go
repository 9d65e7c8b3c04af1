package database

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned by single-row lookups that match nothing
var ErrNotFound = errors.New("not found")

type Database struct {
	db  *gorm.DB
	now func() time.Time
}

// Models

// Token is one contract the scanners have come across
type Token struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	ContractAddress string `gorm:"uniqueIndex;not null"` // always lower-cased
	Symbol          string
	Name            string
	TokenType       string
	Chain           string `gorm:"index"`
	FirstSeen       time.Time
	LastSeen        time.Time
	SeenCount       int  `gorm:"default:1"`
	IsHoneypot      bool `gorm:"index"`
	Narrative       string
	ContentHash     string `gorm:"index"`
}

// Content is a tweet or other text item seen by a monitor
type Content struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Source      string `gorm:"index:idx_content_source_ext"` // twitter:elonmusk, clanker, ...
	ExternalID  string `gorm:"index:idx_content_source_ext"`
	Text        string `gorm:"column:content;type:text"`
	Author      string
	Likes       int
	CreatedAt   time.Time
	ContentHash string `gorm:"uniqueIndex;not null"`
	Embedding   string // reserved
}

// SeenID records an item ID whose text duplicated stored content, so later
// runs skip it without another hash lookup
type SeenID struct {
	Source     string `gorm:"primaryKey"`
	ExternalID string `gorm:"primaryKey"`
	FirstSeen  time.Time
}

// Report is a rendered run output (scan, alert, price board)
type Report struct {
	ID          string `gorm:"primaryKey"`
	Kind        string `gorm:"index"`
	Title       string
	Body        string `gorm:"type:text"`
	ActiveCount int
	Pushed      bool
	CreatedAt   time.Time `gorm:"index"`
}

// SchedulerState is the persisted push-throttle state, one row per scheduler
type SchedulerState struct {
	Name              string `gorm:"primaryKey"`
	LastPushAt        *time.Time
	ConsecutiveSilent int
	MarketStatus      string
	UpdatedAt         time.Time
}

// Report kinds
const (
	KindMemeScan = "meme_scan"
	KindLaunches = "launches"
	KindTweets   = "tweets"
	KindPrices   = "prices"
	KindNews     = "news"
)

func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	// Check if this is a PostgreSQL connection string
	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connected (PostgreSQL)")
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), cfg)
		if err != nil {
			return nil, err
		}
		// Single writer: sqlite locks the whole file anyway
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
		log.Debug().Str("path", dbPath).Msg("Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&Token{}, &Content{}, &SeenID{}, &Report{}, &SchedulerState{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Database{db: db, now: time.Now}, nil
}

// Close releases the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ContentHash is a cheap near-duplicate fingerprint: MD5 of the first 50
// characters after lower-casing and dropping spaces and newlines.
func ContentHash(text string) string {
	simplified := strings.ToLower(text)
	simplified = strings.ReplaceAll(simplified, " ", "")
	simplified = strings.ReplaceAll(simplified, "\n", "")
	if runes := []rune(simplified); len(runes) > 50 {
		simplified = string(runes[:50])
	}
	sum := md5.Sum([]byte(simplified))
	return hex.EncodeToString(sum[:])
}

// ============ TOKEN OPERATIONS ============

// TokenInput describes a sighting to record
type TokenInput struct {
	Contract   string
	Symbol     string
	Name       string
	TokenType  string
	Chain      string
	IsHoneypot bool
	Narrative  string
}

// Sighting is the stored token after a RecordToken call
type Sighting struct {
	Token Token
	IsNew bool
}

// SeenToday reports whether the token was first recorded on the current day
func (s Sighting) SeenToday(now time.Time) bool {
	y1, m1, d1 := s.Token.FirstSeen.Local().Date()
	y2, m2, d2 := now.Local().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// RecordToken inserts a new token or bumps seen_count/last_seen of a known one
func (d *Database) RecordToken(in TokenInput) (Sighting, error) {
	contract := strings.ToLower(strings.TrimSpace(in.Contract))
	if contract == "" {
		return Sighting{}, fmt.Errorf("record token: empty contract address")
	}
	now := d.now()

	var out Sighting
	err := d.db.Transaction(func(tx *gorm.DB) error {
		var existing Token
		err := tx.Where("contract_address = ?", contract).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).Updates(map[string]any{
				"last_seen":  now,
				"seen_count": gorm.Expr("seen_count + 1"),
			}).Error; err != nil {
				return err
			}
			existing.LastSeen = now
			existing.SeenCount++
			out = Sighting{Token: existing}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			t := Token{
				ContractAddress: contract,
				Symbol:          in.Symbol,
				Name:            in.Name,
				TokenType:       in.TokenType,
				Chain:           in.Chain,
				FirstSeen:       now,
				LastSeen:        now,
				SeenCount:       1,
				IsHoneypot:      in.IsHoneypot,
				Narrative:       in.Narrative,
				ContentHash:     ContentHash(in.Symbol + in.Name + in.Narrative),
			}
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
			out = Sighting{Token: t, IsNew: true}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return Sighting{}, fmt.Errorf("record token %s: %w", contract, err)
	}
	return out, nil
}

// AddToken records a sighting and reports whether the contract was new
func (d *Database) AddToken(in TokenInput) (bool, error) {
	s, err := d.RecordToken(in)
	return s.IsNew, err
}

// IsNewToken reports whether the contract has never been recorded
func (d *Database) IsNewToken(contract string) (bool, error) {
	var count int64
	err := d.db.Model(&Token{}).Where("contract_address = ?", strings.ToLower(contract)).Count(&count).Error
	return count == 0, err
}

// GetToken loads one token by contract address
func (d *Database) GetToken(contract string) (*Token, error) {
	var t Token
	err := d.db.Where("contract_address = ?", strings.ToLower(contract)).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("token %s: %w", contract, ErrNotFound)
	}
	return &t, err
}

// MarkHoneypot stores the outcome of a risk check
func (d *Database) MarkHoneypot(contract string, isHoneypot bool) error {
	return d.db.Model(&Token{}).
		Where("contract_address = ?", strings.ToLower(contract)).
		Update("is_honeypot", isHoneypot).Error
}

// HotToken is a frequently re-sighted token
type HotToken struct {
	Symbol    string
	SeenCount int
}

// Stats aggregates the store for reports and the dashboard
type Stats struct {
	TotalTokens    int64
	RepeatedTokens int64
	HoneypotCount  int64
	TotalContents  int64
	TotalReports   int64
	HotTokens      []HotToken
}

// GetStats gathers counts and the five most re-sighted tokens
func (d *Database) GetStats() (*Stats, error) {
	s := &Stats{}
	if err := d.db.Model(&Token{}).Count(&s.TotalTokens).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&Token{}).Where("seen_count > ?", 1).Count(&s.RepeatedTokens).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&Token{}).Where("is_honeypot = ?", true).Count(&s.HoneypotCount).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&Content{}).Count(&s.TotalContents).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&Report{}).Count(&s.TotalReports).Error; err != nil {
		return nil, err
	}
	if err := d.db.Model(&Token{}).
		Select("symbol, seen_count").
		Order("seen_count DESC").Order("id ASC").
		Limit(5).
		Scan(&s.HotTokens).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ============ CONTENT OPERATIONS ============

// ContentInput describes a text item to store
type ContentInput struct {
	Source     string
	ExternalID string
	Text       string
	Author     string
	Likes      int
}

// AddContent stores the item unless a near-duplicate (same hash) exists
func (d *Database) AddContent(in ContentInput) (bool, error) {
	hash := ContentHash(in.Text)

	var count int64
	if err := d.db.Model(&Content{}).Where("content_hash = ?", hash).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	c := Content{
		Source:      in.Source,
		ExternalID:  in.ExternalID,
		Text:        in.Text,
		Author:      in.Author,
		Likes:       in.Likes,
		CreatedAt:   d.now(),
		ContentHash: hash,
	}
	if err := d.db.Create(&c).Error; err != nil {
		return false, fmt.Errorf("add content: %w", err)
	}
	return true, nil
}

// HasContent reports whether an item with this source and external ID was
// stored or marked seen
func (d *Database) HasContent(source, externalID string) (bool, error) {
	var count int64
	err := d.db.Model(&Content{}).
		Where("source = ? AND external_id = ?", source, externalID).
		Count(&count).Error
	if err != nil || count > 0 {
		return count > 0, err
	}
	err = d.db.Model(&SeenID{}).
		Where("source = ? AND external_id = ?", source, externalID).
		Count(&count).Error
	return count > 0, err
}

// MarkSeen records an item ID without storing its text
func (d *Database) MarkSeen(source, externalID string) error {
	row := SeenID{Source: source, ExternalID: externalID, FirstSeen: d.now()}
	if err := d.db.Where(SeenID{Source: source, ExternalID: externalID}).FirstOrCreate(&row).Error; err != nil {
		return fmt.Errorf("mark seen %s/%s: %w", source, externalID, err)
	}
	return nil
}

// ============ REPORT OPERATIONS ============

// SaveReport assigns an ID and timestamp and stores the report
func (d *Database) SaveReport(r *Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = d.now()
	}
	return d.db.Create(r).Error
}

// MarkReportPushed flags a report as delivered
func (d *Database) MarkReportPushed(id string) error {
	return d.db.Model(&Report{}).Where("id = ?", id).Update("pushed", true).Error
}

// LatestReports returns the newest reports of a kind ("" for any kind)
func (d *Database) LatestReports(kind string, limit int) ([]Report, error) {
	var reports []Report
	q := d.db.Order("created_at DESC")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	err := q.Limit(limit).Find(&reports).Error
	return reports, err
}

// LatestReport returns the newest report of a kind
func (d *Database) LatestReport(kind string) (*Report, error) {
	reports, err := d.LatestReports(kind, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("%s report: %w", kind, ErrNotFound)
	}
	return &reports[0], nil
}

// ============ SCHEDULER STATE ============

// LoadSchedulerState returns the stored state, or ErrNotFound
func (d *Database) LoadSchedulerState(name string) (*SchedulerState, error) {
	var s SchedulerState
	err := d.db.First(&s, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("scheduler %s: %w", name, ErrNotFound)
	}
	return &s, err
}

// SaveSchedulerState upserts the state row
func (d *Database) SaveSchedulerState(s *SchedulerState) error {
	s.UpdatedAt = d.now()
	return d.db.Save(s).Error
}
