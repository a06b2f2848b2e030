package snapshot

import (
	"encoding/gob"
	"os"

	"matchcore/internal/book"
)

// Load reads Dir/snapshot.bin, if present, and rests its orders
// directly onto b. It returns the snapshot's sequence number so the
// caller can resume its Sequencer and skip replaying journal entries
// at or below it. A missing snapshot file is not an error — it just
// means recovery falls back to a full journal replay.
func Load(dir string, b *book.Book) (uint64, error) {
	path := dir + "/snapshot.bin"
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return 0, err
	}

	b.Restore(fromEntries(s.Bids, true), fromEntries(s.Asks, false))
	return s.Seq, nil
}

func fromEntries(entries []OrderEntry, buy bool) []book.Order {
	side := book.Sell
	if buy {
		side = book.Buy
	}
	out := make([]book.Order, len(entries))
	for i, e := range entries {
		out[i] = book.Order{
			OrderID:   e.OrderID,
			UserID:    e.UserID,
			Side:      side,
			Price:     e.Price,
			Quantity:  e.Quantity,
			Timestamp: e.Timestamp,
		}
	}
	return out
}
