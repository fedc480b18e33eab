package stratacache

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ashish-admin/go-strata-cache/internal/errs"
)

// SetAs msgpack-encodes value and stores it under key.
func SetAs[T any](ctx context.Context, c StrataCache, key string, value T, opts ...SetOption) error {
	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %v", errs.ErrSerialization, key, err)
	}
	return c.Set(ctx, key, blob, opts...)
}

// GetAs fetches key and msgpack-decodes it into T. A cache miss returns
// ok=false with a nil error; a record that no longer decodes into T is a
// serialization error, not a miss.
func GetAs[T any](ctx context.Context, c StrataCache, key string) (out T, ok bool, err error) {
	blob, found := c.Get(ctx, key)
	if !found {
		return out, false, nil
	}
	if err = msgpack.Unmarshal(blob, &out); err != nil {
		return out, false, fmt.Errorf("%w: decode %q: %v", errs.ErrSerialization, key, err)
	}
	return out, true, nil
}
