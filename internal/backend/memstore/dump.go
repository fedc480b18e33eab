package memstore

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/model"
	"github.com/rs/zerolog/log"
)

const dumpBufSize = 512 * 1024

// Dump writes a best-effort snapshot of the volatile tier so a restart can
// warm it back up. The file holds length+crc32 framed entry records; a
// partial write is detected on load frame by frame, never trusted blindly.
func (s *Store) Dump(ctx context.Context, cfg *config.DumpCfg) error {
	start := time.Now()
	if !cfg.Enabled() {
		return nil
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}

	name := filepath.Join(cfg.Dir, cfg.Name+".dump")
	if cfg.Gzip {
		name += ".gz"
	}
	tmp := name + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}

	var (
		writer io.Writer = f
		gw     *gzip.Writer
	)
	if cfg.Gzip {
		gw = gzip.NewWriter(f)
		writer = gw
	}
	bw := bufio.NewWriterSize(writer, dumpBufSize)

	var written, failures int64
	now := time.Now().UnixNano()
	_ = s.Walk(ctx, func(_ string, e *model.Entry, _ error) bool {
		if e.IsExpired(now) {
			return true
		}
		data, encErr := e.EncodeRecord()
		if encErr != nil {
			failures++
			return true
		}
		var lenBuf [8]byte
		binary.LittleEndian.PutUint32(lenBuf[0:4], uint32(len(data)))
		binary.LittleEndian.PutUint32(lenBuf[4:8], crc32.ChecksumIEEE(data))
		if _, wErr := bw.Write(lenBuf[:]); wErr != nil {
			failures++
			return false
		}
		if _, wErr := bw.Write(data); wErr != nil {
			failures++
			return false
		}
		written++
		return true
	})

	_ = bw.Flush()
	if gw != nil {
		_ = gw.Close()
	}
	_ = f.Close()
	if err = os.Rename(tmp, name); err != nil {
		return fmt.Errorf("finalize dump file: %w", err)
	}

	log.Info().
		Int64("written", written).
		Int64("fails", failures).
		Str("elapsed", time.Since(start).String()).
		Msg("volatile snapshot written")

	if failures > 0 {
		return fmt.Errorf("dump finished with %d errors", failures)
	}
	return nil
}

// Load restores a previously dumped snapshot. Corrupt or expired frames are
// skipped; a missing file is not an error, the tier just starts cold.
func (s *Store) Load(ctx context.Context, cfg *config.DumpCfg) error {
	start := time.Now()
	if !cfg.Enabled() {
		return nil
	}

	name := filepath.Join(cfg.Dir, cfg.Name+".dump")
	if cfg.Gzip {
		name += ".gz"
	}
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open dump file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(name, ".gz") {
		gzr, gzErr := gzip.NewReader(f)
		if gzErr != nil {
			return fmt.Errorf("open gzip dump: %w", gzErr)
		}
		defer gzr.Close()
		reader = gzr
	}

	br := bufio.NewReaderSize(reader, dumpBufSize)
	var restored, skipped int64
	now := time.Now().UnixNano()
	var metaBuf [8]byte
	for {
		if _, err = io.ReadFull(br, metaBuf[:]); err == io.EOF {
			break
		} else if err != nil {
			skipped++
			break
		}

		sz := binary.LittleEndian.Uint32(metaBuf[0:4])
		expCRC := binary.LittleEndian.Uint32(metaBuf[4:8])
		buf := make([]byte, sz)
		if _, err = io.ReadFull(br, buf); err != nil {
			skipped++
			break
		}
		if crc32.ChecksumIEEE(buf) != expCRC {
			skipped++
			continue
		}
		e, decErr := model.DecodeRecord(buf)
		if decErr != nil || e.IsExpired(now) {
			skipped++
			continue
		}
		if setErr := s.Set(ctx, e); setErr != nil {
			skipped++
			continue
		}
		restored++

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	log.Info().
		Int64("restored", restored).
		Int64("skipped", skipped).
		Str("elapsed", time.Since(start).String()).
		Msg("volatile snapshot restored")

	return nil
}
