// Package boltstore implements the durable-large tier on a bbolt file: a
// single bucket of msgpack entry records, identified by the configured
// db name and version so format bumps abandon stale data cleanly.
package boltstore

import (
	"context"
	"fmt"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/errs"
	"github.com/ashish-admin/go-strata-cache/internal/model"
	bolt "go.etcd.io/bbolt"
)

type Store struct {
	db     *bolt.DB
	bucket []byte
}

var _ backend.Backend = (*Store)(nil)

func New(cfg *config.BoltTierCfg) (*Store, error) {
	db, err := bolt.Open(cfg.Path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt tier: %w", err)
	}

	name := cfg.DBName
	if name == "" {
		name = "strata"
	}
	bucket := []byte(fmt.Sprintf("%s-v%d", name, cfg.DBVersion))

	if err = db.Update(func(tx *bolt.Tx) error {
		_, bErr := tx.CreateBucketIfNotExists(bucket)
		return bErr
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}

	return &Store{db: db, bucket: bucket}, nil
}

func (s *Store) Get(_ context.Context, key string) (*model.Entry, bool, error) {
	var blob []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(s.bucket).Get([]byte(key)); v != nil {
			blob = make([]byte, len(v))
			copy(blob, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bolt get %q: %w", key, err)
	}
	if blob == nil {
		return nil, false, nil
	}

	e, err := model.DecodeRecord(blob)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", errs.ErrCorruptEntry, err)
	}
	return e, true, nil
}

func (s *Store) Set(_ context.Context, e *model.Entry) error {
	blob, err := e.EncodeRecord()
	if err != nil {
		return err
	}
	if err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(e.Key()), blob)
	}); err != nil {
		return fmt.Errorf("bolt set %q: %w", e.Key(), err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	var hit bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b.Get([]byte(key)) == nil {
			return nil
		}
		hit = true
		return b.Delete([]byte(key))
	})
	if err != nil {
		return false, fmt.Errorf("bolt delete %q: %w", key, err)
	}
	return hit, nil
}

func (s *Store) Clear(_ context.Context, category string) (int64, error) {
	var removed int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)

		var victims [][]byte
		cur := b.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if category != "" {
				e, decErr := model.DecodeRecord(v)
				if decErr == nil && e.Category() != category {
					continue
				}
				// corrupt records fall to any scoped clear as well
			}
			victim := make([]byte, len(k))
			copy(victim, k)
			victims = append(victims, victim)
		}
		for _, k := range victims {
			if dErr := b.Delete(k); dErr != nil {
				return dErr
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("bolt clear: %w", err)
	}
	return removed, nil
}

func (s *Store) Walk(ctx context.Context, fn backend.WalkFunc) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket(s.bucket).Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e, decErr := model.DecodeRecord(v)
			if decErr != nil {
				decErr = fmt.Errorf("%w: %v", errs.ErrCorruptEntry, decErr)
			}
			if !fn(string(k), e, decErr) {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt walk: %w", err)
	}
	return nil
}

func (s *Store) Usage(_ context.Context) (bytes, items int64, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		items = int64(b.Stats().KeyN)
		return b.ForEach(func(_, v []byte) error {
			bytes += int64(len(v))
			return nil
		})
	})
	if err != nil {
		return 0, 0, fmt.Errorf("bolt usage: %w", err)
	}
	return bytes, items, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
