package broadcaster

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// DeliveryState tracks one feed record through the broadcast pipeline.
type DeliveryState uint8

const (
	StateNew DeliveryState = iota
	StateSent
	StateAcked
	StateFailed
)

func (s DeliveryState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// DeliveryRecord is the per-sequence delivery state.
// Encoding: [state:1][retries:4][lastAttempt:8], big-endian.
type DeliveryRecord struct {
	State       DeliveryState
	Retries     uint32
	LastAttempt int64
}

const deliveryRecordSize = 1 + 4 + 8

func encodeDelivery(r DeliveryRecord) []byte {
	buf := make([]byte, deliveryRecordSize)
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	return buf
}

func decodeDelivery(b []byte) (DeliveryRecord, error) {
	if len(b) != deliveryRecordSize {
		return DeliveryRecord{}, errors.New("broadcaster: invalid delivery record length")
	}
	return DeliveryRecord{
		State:       DeliveryState(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
	}, nil
}

// StateStore persists delivery state in pebble, keyed by feed sequence,
// so a restart does not re-broadcast acknowledged records.
type StateStore struct {
	db *pebble.DB
}

func OpenStateStore(dir string) (*StateStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("broadcaster: open state store: %w", err)
	}
	return &StateStore{db: db}, nil
}

func stateKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// Put writes the delivery state for seq durably.
func (s *StateStore) Put(seq uint64, rec DeliveryRecord) error {
	return s.db.Set(stateKey(seq), encodeDelivery(rec), pebble.Sync)
}

// Get returns the delivery state for seq. ok is false when unseen.
func (s *StateStore) Get(seq uint64) (DeliveryRecord, bool, error) {
	value, closer, err := s.db.Get(stateKey(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return DeliveryRecord{}, false, nil
	}
	if err != nil {
		return DeliveryRecord{}, false, err
	}
	defer closer.Close()

	rec, err := decodeDelivery(value)
	if err != nil {
		return DeliveryRecord{}, false, err
	}
	return rec, true, nil
}

func (s *StateStore) Close() error { return s.db.Close() }
