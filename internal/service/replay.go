package service

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"log"

	"matchcore/internal/book"
	"matchcore/internal/sequence"
	"matchcore/internal/snapshot"
	"matchcore/internal/walentry"
)

// Recover rebuilds b's state from the most recent snapshot in
// snapshotDir (if any), then replays every journal entry after that
// snapshot's sequence number from walDir. It must run before the
// service starts accepting traffic. seqGen is reset to resume
// numbering immediately after the last replayed entry.
func Recover(walDir, snapshotDir string, b *book.Book, seqGen *sequence.Sequencer) error {
	snapSeq, err := snapshot.Load(snapshotDir, b)
	if err != nil {
		return fmt.Errorf("matchcore: loading snapshot: %w", err)
	}

	lastSeq, err := walentry.Replay(walDir, func(rec *walentry.Record) error {
		if rec.Seq <= snapSeq {
			return nil
		}
		return applyRecord(b, rec)
	})
	if err != nil {
		return fmt.Errorf("matchcore: replaying journal: %w", err)
	}

	resumeFrom := lastSeq
	if snapSeq > resumeFrom {
		resumeFrom = snapSeq
	}
	seqGen.Reset(resumeFrom)

	log.Printf("service: recovered from snapshot seq=%d, journal through seq=%d", snapSeq, lastSeq)
	return nil
}

func applyRecord(b *book.Book, rec *walentry.Record) error {
	switch rec.Type {
	case walentry.RecordSubmit:
		var p walentry.SubmitPayload
		if err := gob.NewDecoder(bytes.NewReader(rec.Data)).Decode(&p); err != nil {
			return err
		}
		side := book.Sell
		if p.Buy {
			side = book.Buy
		}
		b.Submit(book.Order{
			OrderID:   p.OrderID,
			UserID:    p.UserID,
			Side:      side,
			Price:     p.Price,
			Quantity:  p.Quantity,
			Timestamp: p.Timestamp,
		})
		return nil

	case walentry.RecordCancel:
		var p walentry.CancelPayload
		if err := gob.NewDecoder(bytes.NewReader(rec.Data)).Decode(&p); err != nil {
			return err
		}
		b.Cancel(p.OrderID)
		return nil

	default:
		return errUnknownRecordType
	}
}
