package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"matchcore/internal/book"
)

// Writer gob-encodes a book's resting orders to Dir/snapshot.bin.
type Writer struct {
	Dir string
}

// Write captures bids and asks — a book's resting orders as of
// sequence seq, obtained by the caller via Book.RestingOrders — to
// disk. The write is atomic from a reader's perspective: it lands in
// a temp file and is renamed into place only once fully flushed.
//
// Write takes the resting orders rather than a *book.Book so it can
// run off the book's owning goroutine: reading bids/asks must happen
// on whatever goroutine already serializes access to the book.
func (w *Writer) Write(seq uint64, bids, asks []book.Order) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}

	s := Snapshot{
		Seq:     seq,
		Created: time.Now(),
		Bids:    toEntries(bids),
		Asks:    toEntries(asks),
	}

	tmp := filepath.Join(w.Dir, "snapshot.bin.tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(&s); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, filepath.Join(w.Dir, "snapshot.bin"))
}

func toEntries(orders []book.Order) []OrderEntry {
	out := make([]OrderEntry, len(orders))
	for i, o := range orders {
		out[i] = OrderEntry{
			OrderID:   o.OrderID,
			UserID:    o.UserID,
			Price:     o.Price,
			Quantity:  o.Quantity,
			Timestamp: o.Timestamp,
		}
	}
	return out
}
