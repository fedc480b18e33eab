// Package redistore implements the session-scoped tier on redis. Entries
// live exactly as long as the redis instance and their server-side TTL, which
// matches the durability class: ephemeral, shared with the host session.
package redistore

import (
	"context"
	"fmt"
	"time"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/errs"
	"github.com/ashish-admin/go-strata-cache/internal/model"
	"github.com/redis/go-redis/v9"
)

const defaultQueryTimeout = 5 * time.Second

type Store struct {
	client       *redis.Client
	prefix       string
	queryTimeout time.Duration
	ownsClient   bool
}

var _ backend.Backend = (*Store)(nil)

// New dials redis with the configured address. The connection is verified
// eagerly so a dead backend disables the tier at startup instead of on the
// first write.
func New(ctx context.Context, cfg *config.SessionTierCfg) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s := NewWithClient(client, cfg)
	s.ownsClient = true

	pingCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping session tier: %w", err)
	}
	return s, nil
}

// NewWithClient wraps a caller-owned client; Close leaves it open.
func NewWithClient(client *redis.Client, cfg *config.SessionTierCfg) *Store {
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "strata"
	}
	return &Store{client: client, prefix: prefix, queryTimeout: timeout}
}

func (s *Store) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.queryTimeout)
}

func (s *Store) key(key string) string {
	return s.prefix + ":" + key
}

func (s *Store) Get(ctx context.Context, key string) (*model.Entry, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	blob, err := s.client.Get(qctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}

	e, err := model.DecodeRecord(blob)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", errs.ErrCorruptEntry, err)
	}
	return e, true, nil
}

func (s *Store) Set(ctx context.Context, e *model.Entry) error {
	blob, err := e.EncodeRecord()
	if err != nil {
		return err
	}
	ttl := e.RemainingTTL(time.Now())
	if ttl <= 0 {
		// already expired; nothing worth storing
		return nil
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	// server-side TTL doubles as a safety net under the sweeper
	if err = s.client.Set(qctx, s.key(e.Key()), blob, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", e.Key(), err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	n, err := s.client.Del(qctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete %q: %w", key, err)
	}
	return n > 0, nil
}

func (s *Store) Clear(ctx context.Context, category string) (int64, error) {
	var removed int64
	err := s.scan(ctx, func(fullKey string, blob []byte) error {
		if category != "" {
			e, decErr := model.DecodeRecord(blob)
			if decErr == nil && e.Category() != category {
				return nil
			}
		}
		qctx, cancel := s.queryCtx(ctx)
		defer cancel()
		n, dErr := s.client.Del(qctx, fullKey).Result()
		removed += n
		return dErr
	})
	if err != nil {
		return removed, fmt.Errorf("redis clear: %w", err)
	}
	return removed, nil
}

func (s *Store) Walk(ctx context.Context, fn backend.WalkFunc) error {
	stop := false
	err := s.scan(ctx, func(fullKey string, blob []byte) error {
		if stop {
			return nil
		}
		key := fullKey[len(s.prefix)+1:]
		e, decErr := model.DecodeRecord(blob)
		if decErr != nil {
			decErr = fmt.Errorf("%w: %v", errs.ErrCorruptEntry, decErr)
		}
		if !fn(key, e, decErr) {
			stop = true
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis walk: %w", err)
	}
	return nil
}

func (s *Store) Usage(ctx context.Context) (bytes, items int64, err error) {
	err = s.scan(ctx, func(_ string, blob []byte) error {
		bytes += int64(len(blob))
		items++
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("redis usage: %w", err)
	}
	return bytes, items, nil
}

// scan iterates all keys under the tier prefix, fetching each value. Keys
// expired server-side between SCAN and GET are skipped.
func (s *Store) scan(ctx context.Context, fn func(fullKey string, blob []byte) error) error {
	var cursor uint64
	pattern := s.prefix + ":*"
	for {
		qctx, cancel := s.queryCtx(ctx)
		keys, next, err := s.client.Scan(qctx, cursor, pattern, 100).Result()
		cancel()
		if err != nil {
			return err
		}

		for _, fullKey := range keys {
			qctx, cancel = s.queryCtx(ctx)
			blob, gErr := s.client.Get(qctx, fullKey).Bytes()
			cancel()
			if gErr == redis.Nil {
				continue
			}
			if gErr != nil {
				return gErr
			}
			if err = fn(fullKey, blob); err != nil {
				return err
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (s *Store) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}
