package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/domain"
)

// redisCmdable is the slice of the go-redis client the store actually uses.
// *redis.Client satisfies it.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisStore is an alternative RateStore backend for deployments where the
// state should live in a shared cache instead of a local file.
type RedisStore struct {
	client redisCmdable
	prefix string
}

// NewRedisStore connects to redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client, prefix: "cryptochange:"}, nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// get returns "" for unset keys, mirroring the sqlite backend.
func (s *RedisStore) get(ctx context.Context, k string) (string, error) {
	v, err := s.client.Get(ctx, s.key(k)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisStore) set(ctx context.Context, k, v string) error {
	return s.client.Set(ctx, s.key(k), v, 0).Err()
}

// LoadRates returns persisted rates or defaults for unset keys.
func (s *RedisStore) LoadRates(ctx context.Context) (domain.RateConfig, error) {
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
			return nil
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
func (s *RedisStore) SaveRates(ctx context.Context, rates domain.RateConfig) error {
	if err := rates.Validate(); err != nil {
		return err
	}

	sets := map[string]string{
		keyBynPerUsd: rates.BynPerUsd.String(),
		keyRubPerUsd: rates.RubPerUsd.String(),
		keyMarkup:    rates.Markup.String(),
	}
	for k, v := range sets {
		if err := s.set(ctx, k, v); err != nil {
			return fmt.Errorf("save rates: %w", err)
		}
	}
	return nil
}

// LoadCachedPrices returns whichever coin prices were cached.
func (s *RedisStore) LoadCachedPrices(ctx context.Context) (domain.PriceSnapshot, error) {
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
func (s *RedisStore) SaveCachedPrices(ctx context.Context, prices domain.PriceSnapshot) error {
	for _, sym := range domain.CryptoSymbols {
		price, ok := prices.Price(sym)
		if !ok {
			continue
		}
		if err := s.set(ctx, priceKey(sym), price.String()); err != nil {
			return fmt.Errorf("cache prices: %w", err)
		}
	}
	return nil
}

// LoadLastSuccess returns the last successful fetch time.
func (s *RedisStore) LoadLastSuccess(ctx context.Context) (time.Time, bool, error) {
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
func (s *RedisStore) SaveLastSuccess(ctx context.Context, ts time.Time) error {
	return s.set(ctx, keyLastSuccess, strconv.FormatInt(ts.UnixMilli(), 10))
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
