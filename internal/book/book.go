package book

import (
	"fmt"
	"time"
)

// Book owns a bid side, an ask side, and an append-only trade log.
// It is the MatchingEngine of spec.md §4.5, ported from
// original_source/OrderBook.c. A Book is not safe for concurrent use:
// per spec.md §5 it assumes a single caller serializes all access.
type Book struct {
	bids     *BookSide
	asks     *BookSide
	tradeLog []Trade
	tradeSeq int
	clock    func() int64
}

// New creates an empty order book whose trade timestamps come from
// the wall clock.
func New() *Book {
	return NewWithClock(func() int64 { return time.Now().UnixNano() })
}

// NewWithClock creates an empty order book with an injected clock,
// the way realmfikri-Limitless's OrderBook takes a `now func()
// time.Time` field so tests can drive time deterministically.
func NewWithClock(clock func() int64) *Book {
	return &Book{
		bids:  newBookSide(true),
		asks:  newBookSide(false),
		clock: clock,
	}
}

func (b *Book) nextTradeID() string {
	b.tradeSeq++
	return fmt.Sprintf("TRADE-%08d", b.tradeSeq)
}

// Submit admits a new order, crossing it against resting liquidity on
// the opposite side before resting any remainder on its own side. It
// returns the trade ids generated, in the order fills occurred.
// Submit does not validate o — callers admit only orders satisfying
// Order.Valid(); admitting an invalid order, or reusing an order id
// still active in the book, is undefined behavior (spec.md §7.3).
func (b *Book) Submit(o Order) []string {
	in := o

	var fills []Fill
	if in.Side == Buy {
		fills = b.asks.ExecuteAgainst(&in)
	} else {
		fills = b.bids.ExecuteAgainst(&in)
	}

	tradeIDs := make([]string, 0, len(fills))
	for _, f := range fills {
		t := b.synthesizeTrade(in, f, b.clock())
		b.tradeLog = append(b.tradeLog, t)
		tradeIDs = append(tradeIDs, t.TradeID)
	}

	if in.Quantity > 0 {
		if in.Side == Buy {
			b.bids.AddResting(in)
		} else {
			b.asks.AddResting(in)
		}
	}

	return tradeIDs
}

// synthesizeTrade builds a Trade from the (incoming, counterparty,
// fill_size) tuple; the resting counterparty's price is the trade
// price, per spec.md §9's resolution of that Open Question.
func (b *Book) synthesizeTrade(in Order, f Fill, now int64) Trade {
	t := Trade{
		TradeID:   b.nextTradeID(),
		Size:      f.Size,
		Price:     f.Counterparty.Price,
		Timestamp: now,
	}
	if in.Side == Buy {
		t.BuyOrderID, t.BuyUserID = in.OrderID, in.UserID
		t.SellOrderID, t.SellUserID = f.Counterparty.OrderID, f.Counterparty.UserID
	} else {
		t.BuyOrderID, t.BuyUserID = f.Counterparty.OrderID, f.Counterparty.UserID
		t.SellOrderID, t.SellUserID = in.OrderID, in.UserID
	}
	return t
}

// Cancel removes a resting order by id, trying the bid side then the
// ask side. It returns false with no effect if the id is unknown.
func (b *Book) Cancel(orderID string) bool {
	if b.bids.Cancel(orderID) {
		return true
	}
	return b.asks.Cancel(orderID)
}

// BestBid returns the highest resting bid price, or 0 if there are no bids.
func (b *Book) BestBid() float64 { return b.bids.BestPrice() }

// BestAsk returns the lowest resting ask price, or 0 if there are no asks.
func (b *Book) BestAsk() float64 { return b.asks.BestPrice() }

// Depth returns the top k levels of each side; k=0 returns every level.
func (b *Book) Depth(k int) (bids []Level, asks []Level) {
	return b.bids.Depth(k), b.asks.Depth(k)
}

// Trades returns an independent copy of the trade log in append order.
func (b *Book) Trades() []Trade {
	out := make([]Trade, len(b.tradeLog))
	copy(out, b.tradeLog)
	return out
}

// RestingOrders returns a copy of every order currently resting on
// each side, for snapshotting.
func (b *Book) RestingOrders() (bids, asks []Order) {
	return b.bids.AllOrders(), b.asks.AllOrders()
}

// Restore rests bids and asks directly, bypassing matching. It is
// used only to rebuild a Book from a snapshot, where the orders were
// already resting and non-crossing when the snapshot was taken.
func (b *Book) Restore(bids, asks []Order) {
	for _, o := range bids {
		b.bids.AddResting(o)
	}
	for _, o := range asks {
		b.asks.AddResting(o)
	}
}

// TradeByID linearly scans the trade log for trade_id.
func (b *Book) TradeByID(id string) (Trade, bool) {
	for _, t := range b.tradeLog {
		if t.TradeID == id {
			return t, true
		}
	}
	return Trade{}, false
}
