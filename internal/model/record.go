package model

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// record is the wire shape of an entry in non-volatile tiers and snapshot
// files. This is an internal cache format, not an interchange format.
type record struct {
	Key          string `msgpack:"k"`
	Category     string `msgpack:"c"`
	Priority     int32  `msgpack:"p"`
	Payload      []byte `msgpack:"v"`
	SizeBytes    int64  `msgpack:"s"`
	OriginalSize int64  `msgpack:"o,omitempty"`
	Compressed   bool   `msgpack:"z"`
	CreatedAt    int64  `msgpack:"ca"`
	ExpiresAt    int64  `msgpack:"ea"`
	TouchedAt    int64  `msgpack:"ta"`
	AccessCount  int64  `msgpack:"ac"`
}

// EncodeRecord serializes the entry for a byte-store tier.
func (e *Entry) EncodeRecord() ([]byte, error) {
	data, err := msgpack.Marshal(record{
		Key:          e.key,
		Category:     e.category,
		Priority:     int32(e.priority),
		Payload:      e.payload,
		SizeBytes:    e.sizeBytes,
		OriginalSize: e.originalSize,
		Compressed:   e.compressed,
		CreatedAt:    e.createdAt,
		ExpiresAt:    e.expiresAt,
		TouchedAt:    e.TouchedAt(),
		AccessCount:  e.AccessCount(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode entry record %q: %w", e.key, err)
	}
	return data, nil
}

// DecodeRecord restores an entry from its serialized form. A malformed blob
// yields an error the caller treats as a corrupt entry.
func DecodeRecord(data []byte) (*Entry, error) {
	var r record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode entry record: %w", err)
	}
	if r.Key == "" || r.ExpiresAt <= r.CreatedAt {
		return nil, fmt.Errorf("decode entry record: malformed metadata")
	}
	return &Entry{
		key:          r.Key,
		category:     r.Category,
		priority:     Priority(r.Priority),
		payload:      r.Payload,
		sizeBytes:    r.SizeBytes,
		originalSize: r.OriginalSize,
		compressed:   r.Compressed,
		createdAt:    r.CreatedAt,
		expiresAt:    r.ExpiresAt,
		touchedAt:    r.TouchedAt,
		accessCount:  r.AccessCount,
	}, nil
}
