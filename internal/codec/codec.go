// Package codec compresses payloads above a size threshold and restores them
// on read. It has no dependency on any other cache component.
package codec

import (
	"fmt"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/errs"
	"github.com/klauspost/compress/zstd"
)

// Codec wraps a zstd encoder/decoder pair. Both are safe for concurrent use
// via EncodeAll/DecodeAll. A nil Codec is valid and stores everything raw.
type Codec struct {
	threshold int64
	enc       *zstd.Encoder
	dec       *zstd.Decoder
}

// New builds a codec from the compression section. Returns (nil, nil) when
// compression is disabled.
func New(cfg *config.CompressionCfg) (*Codec, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	level := zstd.EncoderLevelFromZstd(cfg.Level)
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("%w: init encoder: %v", errs.ErrCompression, err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("%w: init decoder: %v", errs.ErrCompression, err)
	}

	return &Codec{threshold: cfg.ThresholdBytes, enc: enc, dec: dec}, nil
}

// Encode compresses data when it is large enough and the result actually
// shrinks; otherwise the original bytes pass through untouched. Never fails:
// the worst case is storing raw bytes.
func (c *Codec) Encode(data []byte) (out []byte, compressed bool) {
	if c == nil || int64(len(data)) <= c.threshold {
		return data, false
	}
	packed := c.enc.EncodeAll(data, make([]byte, 0, len(data)))
	if len(packed) >= len(data) {
		// incompressible; keep the original so reads skip the decoder
		return data, false
	}
	return packed, true
}

// Decode dispatches on the stored compressed flag. A failure means the
// stored bytes are corrupt, not that the caller did anything wrong.
func (c *Codec) Decode(data []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return data, nil
	}
	if c == nil {
		return nil, fmt.Errorf("%w: compressed entry but compression disabled", errs.ErrCorruptEntry)
	}
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptEntry, err)
	}
	return out, nil
}

func (c *Codec) Close() {
	if c == nil {
		return
	}
	c.enc.Close()
	c.dec.Close()
}
