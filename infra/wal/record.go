// Package wal is the append-only event journal for input commands. Every
// place, cancel and amend is framed and journaled before execution so an
// experiment can be replayed bit-for-bit (the engine is deterministic, so
// identical input reproduces identical trades and post-state).
package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

type RecordType uint8

const (
	RecordPlace RecordType = iota + 1
	RecordCancel
	RecordAmend
)

// Record is one journaled command. Data is the command payload, opaque to
// the journal itself.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{Type: t, Seq: seq, Time: time.Now().UnixNano(), Data: data}
}

var ErrCorruptRecord = errors.New("wal: corrupted record")

// Record bodies use protobuf wire format:
//
//	1 type   varint
//	2 seq    varint
//	3 time   varint
//	4 data   bytes
//
// Frame on disk: [len:4 LE][crc32:4 LE][body].

func encodeBody(r *Record) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Type))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, r.Seq)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Time))
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Data)
	return b
}

func decodeBody(b []byte) (*Record, error) {
	rec := &Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, ErrCorruptRecord
		}
		b = b[n:]
		switch num {
		case 1, 2, 3:
			if typ != protowire.VarintType {
				return nil, ErrCorruptRecord
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, ErrCorruptRecord
			}
			b = b[n:]
			switch num {
			case 1:
				rec.Type = RecordType(v)
			case 2:
				rec.Seq = v
			case 3:
				rec.Time = int64(v)
			}
		case 4:
			if typ != protowire.BytesType {
				return nil, ErrCorruptRecord
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, ErrCorruptRecord
			}
			rec.Data = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, ErrCorruptRecord
			}
			b = b[n:]
		}
	}
	return rec, nil
}

// EncodeFrame serializes a record into its on-disk frame.
func EncodeFrame(r *Record) []byte {
	body := encodeBody(r)
	frame := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(len(body)))
	binary.LittleEndian.PutUint32(frame[4:8], crc32.ChecksumIEEE(body))
	copy(frame[8:], body)
	return frame
}

// DecodeFrame reads one frame from r. Returns io.EOF cleanly at end of
// stream and ErrCorruptRecord on a checksum mismatch.
func DecodeFrame(r io.Reader) (*Record, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorruptRecord
		}
		return nil, err
	}
	size := binary.LittleEndian.Uint32(header[0:4])
	want := binary.LittleEndian.Uint32(header[4:8])

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wal: truncated frame: %w", ErrCorruptRecord)
	}
	if crc32.ChecksumIEEE(body) != want {
		return nil, ErrCorruptRecord
	}
	return decodeBody(body)
}
