// Package service is the single write entry point into the matching
// engine. It owns a single writer goroutine that serializes every
// submit, cancel, and query against the book, so internal/book itself
// never has to worry about concurrency.
package service

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"log"
	"time"

	"matchcore/internal/book"
	"matchcore/internal/broadcaster"
	"matchcore/internal/sequence"
	"matchcore/internal/snapshot"
	"matchcore/internal/walentry"
)

type requestType int

const (
	requestSubmit requestType = iota
	requestCancel
	requestBestBid
	requestBestAsk
	requestDepth
	requestTrades
	requestTradeByID
	requestSnapshot
	requestStop
)

type request struct {
	typ     requestType
	order   book.Order
	orderID string
	depth   int
	resp    chan response
}

type response struct {
	tradeIDs    []string
	ok          bool
	price       float64
	bids        []book.Level
	asks        []book.Level
	trades      []book.Trade
	trade       book.Trade
	seq         uint64
	restingBids []book.Order
	restingAsks []book.Order
	err         error
}

// OrderService wires the book to its journal, outbox, and broadcaster
// and is the only component permitted to call into the book.
type OrderService struct {
	book    *book.Book
	seqGen  *sequence.Sequencer
	wal     *walentry.WAL
	bc      *broadcaster.Broadcaster // optional, may be nil
	reqCh   chan request
	stopped chan struct{}
}

// New starts the service's writer goroutine. bc may be nil if trade
// broadcasting is not configured.
func New(b *book.Book, seqGen *sequence.Sequencer, wal *walentry.WAL, bc *broadcaster.Broadcaster) *OrderService {
	s := &OrderService{
		book:    b,
		seqGen:  seqGen,
		wal:     wal,
		bc:      bc,
		reqCh:   make(chan request),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

// Submit journals then admits a new order, returning the ids of any
// trades it generated.
func (s *OrderService) Submit(o book.Order) ([]string, error) {
	resp := s.call(request{typ: requestSubmit, order: o})
	return resp.tradeIDs, resp.err
}

// Cancel removes a resting order by id.
func (s *OrderService) Cancel(orderID string) (bool, error) {
	resp := s.call(request{typ: requestCancel, orderID: orderID})
	return resp.ok, resp.err
}

// BestBid returns the current best bid price.
func (s *OrderService) BestBid() float64 {
	return s.call(request{typ: requestBestBid}).price
}

// BestAsk returns the current best ask price.
func (s *OrderService) BestAsk() float64 {
	return s.call(request{typ: requestBestAsk}).price
}

// Depth returns the top k levels of each side; k=0 returns every level.
func (s *OrderService) Depth(k int) (bids, asks []book.Level) {
	resp := s.call(request{typ: requestDepth, depth: k})
	return resp.bids, resp.asks
}

// Trades returns every trade recorded so far.
func (s *OrderService) Trades() []book.Trade {
	return s.call(request{typ: requestTrades}).trades
}

// TradeByID looks up a single trade by id.
func (s *OrderService) TradeByID(id string) (book.Trade, bool) {
	resp := s.call(request{typ: requestTradeByID, orderID: id})
	return resp.trade, resp.ok
}

// Snapshot returns the current sequence number and a copy of every
// resting order, read together on the writer goroutine so seq always
// matches the returned book state exactly.
func (s *OrderService) Snapshot() (seq uint64, bids, asks []book.Order) {
	resp := s.call(request{typ: requestSnapshot})
	return resp.seq, resp.restingBids, resp.restingAsks
}

// Stop drains the writer goroutine and closes the journal.
func (s *OrderService) Stop() error {
	s.call(request{typ: requestStop})
	<-s.stopped
	return s.wal.Close()
}

func (s *OrderService) call(req request) response {
	req.resp = make(chan response, 1)
	s.reqCh <- req
	return <-req.resp
}

func (s *OrderService) run() {
	for req := range s.reqCh {
		switch req.typ {
		case requestSubmit:
			req.resp <- s.handleSubmit(req.order)
		case requestCancel:
			req.resp <- s.handleCancel(req.orderID)
		case requestBestBid:
			req.resp <- response{price: s.book.BestBid()}
		case requestBestAsk:
			req.resp <- response{price: s.book.BestAsk()}
		case requestDepth:
			bids, asks := s.book.Depth(req.depth)
			req.resp <- response{bids: bids, asks: asks}
		case requestTrades:
			req.resp <- response{trades: s.book.Trades()}
		case requestTradeByID:
			trade, ok := s.book.TradeByID(req.orderID)
			req.resp <- response{trade: trade, ok: ok}
		case requestSnapshot:
			bids, asks := s.book.RestingOrders()
			req.resp <- response{seq: s.seqGen.Current(), restingBids: bids, restingAsks: asks}
		case requestStop:
			req.resp <- response{ok: true}
			close(s.stopped)
			return
		}
	}
}

func (s *OrderService) handleSubmit(o book.Order) response {
	if !o.Valid() {
		return response{err: fmt.Errorf("matchcore: invalid order %+v", o)}
	}

	seq := s.seqGen.Next()
	o.Timestamp = int64(seq)
	payload, err := encodeSubmit(o)
	if err != nil {
		return response{err: err}
	}
	if err := s.wal.Append(walentry.NewRecord(walentry.RecordSubmit, seq, payload)); err != nil {
		log.Printf("service: journaling submit %s: %v", o.OrderID, err)
		return response{err: err}
	}

	tradeIDs := s.book.Submit(o)

	if s.bc != nil {
		for _, id := range tradeIDs {
			trade, ok := s.book.TradeByID(id)
			if !ok {
				continue
			}
			evt := broadcaster.Event{
				V:           1,
				TradeID:     trade.TradeID,
				BuyOrderID:  trade.BuyOrderID,
				BuyUserID:   trade.BuyUserID,
				SellOrderID: trade.SellOrderID,
				SellUserID:  trade.SellUserID,
				Size:        trade.Size,
				Price:       trade.Price,
				Timestamp:   trade.Timestamp,
			}
			if err := s.bc.Publish(evt); err != nil {
				log.Printf("service: publishing trade %s: %v", trade.TradeID, err)
			}
		}
	}

	return response{tradeIDs: tradeIDs}
}

func (s *OrderService) handleCancel(orderID string) response {
	seq := s.seqGen.Next()
	payload, err := encodeCancel(orderID)
	if err != nil {
		return response{err: err}
	}
	if err := s.wal.Append(walentry.NewRecord(walentry.RecordCancel, seq, payload)); err != nil {
		log.Printf("service: journaling cancel %s: %v", orderID, err)
		return response{err: err}
	}

	return response{ok: s.book.Cancel(orderID)}
}

func encodeSubmit(o book.Order) ([]byte, error) {
	var buf bytes.Buffer
	payload := walentry.SubmitPayload{
		OrderID:   o.OrderID,
		UserID:    o.UserID,
		Buy:       o.Side == book.Buy,
		Price:     o.Price,
		Quantity:  o.Quantity,
		Timestamp: o.Timestamp,
	}
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCancel(orderID string) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(walentry.CancelPayload{OrderID: orderID}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var errUnknownRecordType = errors.New("matchcore: unknown journal record type")

// StartSnapshotJob periodically snapshots the book and truncates the
// journal up to the snapshotted sequence, so recovery never has to
// replay more than one snapshot interval's worth of history.
func (s *OrderService) StartSnapshotJob(dir string, interval time.Duration) {
	w := &snapshot.Writer{Dir: dir}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			seq, bids, asks := s.Snapshot()
			if err := w.Write(seq, bids, asks); err != nil {
				log.Printf("service: snapshot at seq %d: %v", seq, err)
				continue
			}
			if err := s.wal.TruncateBefore(seq); err != nil {
				log.Printf("service: truncating journal before seq %d: %v", seq, err)
			}
		}
	}()
}
