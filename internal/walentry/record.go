// Package walentry is the command journal: every admitted submit or
// cancel is appended here before it reaches the book, so a crashed
// process can recover by replaying the journal from the last snapshot.
package walentry

import "time"

// RecordType distinguishes the two commands the book accepts.
type RecordType uint8

const (
	RecordSubmit RecordType = iota
	RecordCancel
)

// Record is one journaled command. Data carries the gob-encoded
// SubmitPayload or CancelPayload for Type.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

// NewRecord stamps Time from the wall clock; Append is responsible
// for framing and checksumming it onto disk.
func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}

// SubmitPayload is the gob-encoded body of a RecordSubmit entry.
type SubmitPayload struct {
	OrderID   string
	UserID    string
	Buy       bool
	Price     float64
	Quantity  int64
	Timestamp int64
}

// CancelPayload is the gob-encoded body of a RecordCancel entry.
type CancelPayload struct {
	OrderID string
}
