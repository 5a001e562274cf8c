package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	_ "github.com/glebarez/go-sqlite"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/domain"
)

// SQLiteStore is the default RateStore backend: a single metadata table of
// key-value pairs in a local sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the sqlite file with WAL mode enabled.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) upsert(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, time.Now().Unix(),
	)
	return err
}

// get returns the stored value, or "" when the key was never written.
func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// LoadRates returns persisted rates, falling back to defaults per field so a
// partially written config still loads.
func (s *SQLiteStore) LoadRates(ctx context.Context) (domain.RateConfig, error) {
	rates := domain.DefaultRateConfig()

	load := func(key string, dst *decimal.Decimal) error {
		raw, err := s.get(ctx, key)
		if err != nil {
			return err
		}
		if raw == "" {
			return nil
		}
		v, err := decimal.NewFromString(raw)
		if err != nil || !v.IsPositive() {
			return nil // ignore corrupt values, keep the default
		}
		*dst = v
		return nil
	}

	if err := load(keyBynPerUsd, &rates.BynPerUsd); err != nil {
		return rates, err
	}
	if err := load(keyRubPerUsd, &rates.RubPerUsd); err != nil {
		return rates, err
	}
	if err := load(keyMarkup, &rates.Markup); err != nil {
		return rates, err
	}
	return rates, nil
}

// SaveRates validates and persists all three values.
func (s *SQLiteStore) SaveRates(ctx context.Context, rates domain.RateConfig) error {
	if err := rates.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rates tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for key, val := range map[string]string{
		keyBynPerUsd: rates.BynPerUsd.String(),
		keyRubPerUsd: rates.RubPerUsd.String(),
		keyMarkup:    rates.Markup.String(),
	} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
			key, val, now,
		); err != nil {
			return fmt.Errorf("save rate %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// LoadCachedPrices returns whichever coin prices were cached; entries that
// are missing or unparseable are simply absent from the snapshot.
func (s *SQLiteStore) LoadCachedPrices(ctx context.Context) (domain.PriceSnapshot, error) {
	snapshot := make(domain.PriceSnapshot)
	for _, sym := range domain.CryptoSymbols {
		raw, err := s.get(ctx, priceKey(sym))
		if err != nil {
			return snapshot, err
		}
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil || !v.IsPositive() {
			continue
		}
		snapshot[sym] = v
	}
	return snapshot, nil
}

// SaveCachedPrices writes the snapshot as the last-known-good cache.
func (s *SQLiteStore) SaveCachedPrices(ctx context.Context, prices domain.PriceSnapshot) error {
	for _, sym := range domain.CryptoSymbols {
		price, ok := prices.Price(sym)
		if !ok {
			continue
		}
		if err := s.upsert(ctx, priceKey(sym), price.String()); err != nil {
			return fmt.Errorf("cache price %s: %w", sym, err)
		}
	}
	return nil
}

// LoadLastSuccess returns the last successful fetch time.
func (s *SQLiteStore) LoadLastSuccess(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.get(ctx, keyLastSuccess)
	if err != nil || raw == "" {
		return time.Time{}, false, err
	}
	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || epoch <= 0 {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(epoch), true, nil
}

// SaveLastSuccess records a successful fetch time.
func (s *SQLiteStore) SaveLastSuccess(ctx context.Context, ts time.Time) error {
	return s.upsert(ctx, keyLastSuccess, strconv.FormatInt(ts.UnixMilli(), 10))
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
