package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
)

const hourLayout = "2006-01-02-15"

// segment is one open hour file: JSON lines through a zstd frame.
type segment struct {
	hour string
	f    *os.File
	zw   *zstd.Encoder
	buf  *bufio.Writer
}

func openSegment(path, hour string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{hour: hour, f: f, zw: zw, buf: bufio.NewWriterSize(zw, 32<<10)}, nil
}

// appendLine flushes through the encoder so a crash loses at most the
// current zstd block.
func (s *segment) appendLine(line []byte) error {
	if _, err := s.buf.Write(line); err != nil {
		return err
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return err
	}
	return s.buf.Flush()
}

func (s *segment) close() error {
	return errors.Join(s.buf.Flush(), s.zw.Close(), s.f.Close())
}

// SegmentWriter appends JSON lines to one zstd file per UTC hour, named
// <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst. A reopened hour gets a second
// frame appended, which zstd readers decode as one stream.
type SegmentWriter struct {
	dir    string
	prefix string
	clock  func() time.Time

	mu  sync.Mutex
	cur *segment
}

func NewSegmentWriter(dir, prefix string) *SegmentWriter {
	return &SegmentWriter{dir: dir, prefix: prefix, clock: time.Now}
}

// Path is the file that holds lines written at t.
func (w *SegmentWriter) Path(t time.Time) string {
	return filepath.Join(w.dir, w.prefix+"-"+t.UTC().Format(hourLayout)+".jsonl.zst")
}

func (w *SegmentWriter) Append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock()
	if hour := now.UTC().Format(hourLayout); w.cur == nil || w.cur.hour != hour {
		if w.cur != nil {
			err := w.cur.close()
			w.cur = nil
			if err != nil {
				return err
			}
		}
		if w.cur, err = openSegment(w.Path(now), hour); err != nil {
			return err
		}
	}
	return w.cur.appendLine(line)
}

func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil {
		return nil
	}
	err := w.cur.close()
	w.cur = nil
	return err
}

// PlacementLogger keeps the placement journal under <dataDir>/placements.
// cmd/replay reads it back.
type PlacementLogger struct{ w *SegmentWriter }

func NewPlacementLogger(dataDir string) *PlacementLogger {
	return &PlacementLogger{w: NewSegmentWriter(filepath.Join(dataDir, "placements"), "placements")}
}

func (l *PlacementLogger) WritePlacement(ev protocol.PlacementEvent) error { return l.w.Append(ev) }
func (l *PlacementLogger) WriteCleanup(ev protocol.CleanupEvent) error     { return l.w.Append(ev) }
func (l *PlacementLogger) Close() error                                    { return l.w.Close() }
