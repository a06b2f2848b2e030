package book

// BookSide is one side (bid or ask) of an order book: an AVL-indexed
// set of price levels plus a hash index for O(1) cancellation,
// ported from original_source/OrderBookSide.c.
type BookSide struct {
	levels    *avlTree
	orders    *orderIndex
	isBuySide bool
}

func newBookSide(isBuySide bool) *BookSide {
	return &BookSide{
		levels:    newAVLTree(),
		orders:    newOrderIndex(),
		isBuySide: isBuySide,
	}
}

// AddResting copies o, locates or creates its price level, appends it
// to that level's FIFO, and registers it in the order-id index.
func (s *BookSide) AddResting(o Order) {
	level, ok := s.levels.get(o.Price)
	if !ok {
		level = newPriceLevel(o.Price)
		s.levels.insert(o.Price, level)
	}
	level.addOrder(o)
	s.orders.add(o.OrderID, level)
}

// Cancel removes the resting order identified by id. It returns false
// with no side effect if id is unknown.
func (s *BookSide) Cancel(id string) bool {
	level, ok := s.orders.get(id)
	if !ok {
		return false
	}
	if !level.deleteByID(id) {
		return false
	}
	s.orders.remove(id)
	if level.isEmpty() {
		s.levels.remove(level.price)
	}
	return true
}

// bestLevel returns the most competitive level for this side: the
// maximum price for the buy side, the minimum for the sell side.
func (s *BookSide) bestLevel() (*priceLevel, bool) {
	if s.isBuySide {
		_, lvl, ok := s.levels.max()
		return lvl, ok
	}
	_, lvl, ok := s.levels.min()
	return lvl, ok
}

// crosses reports whether a resting level at levelPrice satisfies the
// cross predicate against an incoming order limited at incomingPrice.
// The buy side crosses at level price >= incoming price (this side
// holds bids being hit by a sell); the sell side crosses at level
// price <= incoming price (this side holds asks being hit by a buy).
func (s *BookSide) crosses(levelPrice, incomingPrice float64) bool {
	if s.isBuySide {
		return levelPrice >= incomingPrice
	}
	return levelPrice <= incomingPrice
}

// ExecuteAgainst walks this side's most competitive levels, consuming
// resting liquidity against incoming until incoming.Quantity reaches
// zero or this side no longer crosses incoming's limit price.
// incoming.Quantity is decremented in place by the total filled.
func (s *BookSide) ExecuteAgainst(incoming *Order) []Fill {
	var fills []Fill

	for incoming.Quantity > 0 && s.levels.Size() > 0 {
		level, ok := s.bestLevel()
		if !ok {
			break
		}
		if !s.crosses(level.price, incoming.Price) {
			break
		}

		for incoming.Quantity > 0 && !level.isEmpty() {
			counterparty, _ := level.peekHead()
			filled := counterparty.Quantity
			if incoming.Quantity < filled {
				filled = incoming.Quantity
			}

			incoming.Quantity -= filled

			if filled == counterparty.Quantity {
				popped, _ := level.popHead()
				s.orders.remove(popped.OrderID)
				fills = append(fills, Fill{Counterparty: popped, Size: filled})
			} else {
				level.setHeadQuantity(counterparty.Quantity - filled)
				snapshot := counterparty
				snapshot.Quantity = filled
				fills = append(fills, Fill{Counterparty: snapshot, Size: filled})
			}
		}

		if level.isEmpty() {
			s.levels.remove(level.price)
		}
	}

	return fills
}

// AllOrders returns every resting order on this side, level by level
// from the front cursor, in each level's FIFO order. Used only for
// snapshotting; the returned orders are copies.
func (s *BookSide) AllOrders() []Order {
	var out []Order
	cur := s.levels.front()
	for {
		_, lvl, ok := cur.get()
		if !ok {
			break
		}
		for n := lvl.head; n != nil; n = n.next {
			out = append(out, n.order)
		}
		if !cur.next() {
			break
		}
	}
	return out
}

// BestPrice returns this side's best resting price, or 0 if empty.
func (s *BookSide) BestPrice() float64 {
	lvl, ok := s.bestLevel()
	if !ok {
		return 0
	}
	return lvl.price
}

// Depth returns the top k levels in competitiveness order (buy:
// descending price, sell: ascending price); k=0 returns every level.
func (s *BookSide) Depth(k int) []Level {
	var out []Level

	var cur *avlCursor
	if s.isBuySide {
		cur = s.levels.back()
	} else {
		cur = s.levels.front()
	}

	for {
		_, lvl, ok := cur.get()
		if !ok {
			break
		}
		out = append(out, Level{Price: lvl.price, Quantity: lvl.totalQuantity})
		if k > 0 && len(out) >= k {
			break
		}

		var advanced bool
		if s.isBuySide {
			advanced = cur.prev()
		} else {
			advanced = cur.next()
		}
		if !advanced {
			break
		}
	}

	return out
}
