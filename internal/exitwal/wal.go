// Package exitwal is a durable outbox for trades awaiting broadcast:
// a Pebble-backed key-value store tracking, per trade id, whether it
// still needs publishing, has been sent, or has been acknowledged by
// the downstream broker.
package exitwal

import (
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
)

// State is where a trade sits in the publish lifecycle.
type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
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

// Record is the value stored for one trade id. Payload is the
// already-encoded event body, stored alongside the state so a
// crash-and-restart broadcaster can resend NEW/FAILED entries
// without recomputing them from the book.
type Record struct {
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// binary encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeRecord(r Record) []byte {
	buf := make([]byte, 1+4+8+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[13:], r.Payload)
	return buf
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) < 13 {
		return Record{}, errors.New("exitwal: invalid record length")
	}
	payload := make([]byte, len(b)-13)
	copy(payload, b[13:])
	return Record{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

const keyPrefix = "trade/"

func keyFor(tradeID string) []byte {
	return []byte(keyPrefix + tradeID)
}

func parseKey(b []byte) string {
	return strings.TrimPrefix(string(b), keyPrefix)
}

// Outbox is a durable record of trade publish state.
type Outbox struct {
	db *pebble.DB
}

// Open opens (creating if needed) a Pebble store at dir with its own
// WAL enabled, so an outbox entry survives a crash between the trade
// being recorded and its Kafka publish being acknowledged.
func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false,
	})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// PutNew registers a freshly matched trade awaiting broadcast, along
// with the encoded event body to publish.
func (o *Outbox) PutNew(tradeID string, payload []byte) error {
	return o.db.Set(keyFor(tradeID), encodeRecord(Record{State: StateNew, Payload: payload}), pebble.Sync)
}

// UpdateState transitions a trade's publish state, stamping the
// current time as its last attempt and preserving its stored payload.
func (o *Outbox) UpdateState(tradeID string, state State, retries uint32) error {
	existing, err := o.Get(tradeID)
	if err != nil {
		return err
	}
	rec := Record{State: state, Retries: retries, LastAttempt: time.Now().UnixNano(), Payload: existing.Payload}
	return o.db.Set(keyFor(tradeID), encodeRecord(rec), pebble.Sync)
}

// Delete removes an outbox entry, used once a trade is durably acked
// and no longer needs tracking.
func (o *Outbox) Delete(tradeID string) error {
	return o.db.Delete(keyFor(tradeID), pebble.Sync)
}

// Get returns the current record for a trade id.
func (o *Outbox) Get(tradeID string) (Record, error) {
	val, closer, err := o.db.Get(keyFor(tradeID))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()
	return decodeRecord(val)
}

// ScanByState iterates every outbox entry currently in state, in key
// (i.e. trade id) order; the broadcaster uses this to find trades
// still awaiting a publish attempt.
func (o *Outbox) ScanByState(state State, fn func(tradeID string, rec Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}
		if err := fn(parseKey(iter.Key()), rec); err != nil {
			return err
		}
	}
	return iter.Error()
}
