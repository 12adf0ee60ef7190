package feed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// DumpToFile writes the publisher's record log to path as raw fixed-size
// records, suitable for Replayer.
func (p *Publisher) DumpToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("feed: dump: %w", err)
	}
	w := bufio.NewWriter(f)

	buf := make([]byte, 0, RecordSize)
	for i := range p.log {
		buf = p.log[i].AppendBinary(buf[:0])
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return fmt.Errorf("feed: dump: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("feed: dump: %w", err)
	}
	return f.Close()
}

// Replayer reads binary feed dumps in fixed-size chunks.
type Replayer struct {
	path string
}

func NewReplayer(path string) *Replayer { return &Replayer{path: path} }

// Replay invokes fn for every record in the dump and returns the count.
// A trailing partial record ends the replay cleanly.
func (r *Replayer) Replay(fn func(Record)) (int, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return 0, fmt.Errorf("feed: replay: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	buf := make([]byte, RecordSize)
	count := 0
	for {
		_, err := io.ReadFull(br, buf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("feed: replay: %w", err)
		}
		var rec Record
		if err := rec.UnmarshalBinary(buf); err != nil {
			return count, err
		}
		fn(rec)
		count++
	}
}

// LoadAll reads the full dump into memory.
func (r *Replayer) LoadAll() ([]Record, error) {
	var out []Record
	_, err := r.Replay(func(rec Record) { out = append(out, rec) })
	return out, err
}
