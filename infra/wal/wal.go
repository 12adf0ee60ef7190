package wal

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config sizes the journal. SegmentSize is a soft cap: the segment rotates
// after the append that crosses it.
type Config struct {
	Dir         string
	SegmentSize int64
}

const defaultSegmentSize = 64 << 20

// WAL appends framed records to numbered segment files in a directory.
// Single writer; no internal locking.
type WAL struct {
	dir      string
	segSize  int64
	file     *os.File
	offset   int64
	segIndex int
}

// Open creates the directory if needed and starts a fresh segment after
// any existing ones.
func Open(cfg Config) (*WAL, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = defaultSegmentSize
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("wal: create dir: %w", err)
	}

	existing, err := segmentFiles(cfg.Dir)
	if err != nil {
		return nil, err
	}

	w := &WAL{dir: cfg.Dir, segSize: cfg.SegmentSize, segIndex: len(existing)}
	if err := w.openSegment(); err != nil {
		return nil, err
	}
	return w, nil
}

func segmentPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("segment-%05d.wal", index))
}

func segmentFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if err != nil {
		return nil, fmt.Errorf("wal: list segments: %w", err)
	}
	return files, nil
}

func (w *WAL) openSegment() error {
	f, err := os.OpenFile(segmentPath(w.dir, w.segIndex), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("wal: open segment: %w", err)
	}
	w.file = f
	w.offset = 0
	return nil
}

// Append journals one record, rotating the segment when it fills.
func (w *WAL) Append(r *Record) error {
	frame := EncodeFrame(r)
	n, err := w.file.Write(frame)
	if err != nil {
		return fmt.Errorf("wal: append: %w", err)
	}
	w.offset += int64(n)
	if w.offset >= w.segSize {
		return w.rotate()
	}
	return nil
}

func (w *WAL) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("wal: close segment: %w", err)
	}
	w.segIndex++
	return w.openSegment()
}

// Sync flushes the current segment to stable storage.
func (w *WAL) Sync() error {
	return w.file.Sync()
}

func (w *WAL) Close() error {
	return w.file.Close()
}
