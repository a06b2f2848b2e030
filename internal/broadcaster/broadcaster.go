// Package broadcaster polls the trade outbox and publishes newly
// matched trades to Kafka, retrying anything left in NEW or FAILED
// state until the broker acknowledges it.
package broadcaster

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"

	"matchcore/internal/exitwal"
)

// Event is the wire shape published for every trade.
type Event struct {
	V           int     `json:"v"`
	TradeID     string  `json:"trade_id"`
	BuyOrderID  string  `json:"buy_order_id"`
	BuyUserID   string  `json:"buy_user_id"`
	SellOrderID string  `json:"sell_order_id"`
	SellUserID  string  `json:"sell_user_id"`
	Size        int64   `json:"size"`
	Price       float64 `json:"price"`
	Timestamp   int64   `json:"timestamp"`
}

// Broadcaster is the periodic outbox-drain loop.
type Broadcaster struct {
	outbox   *exitwal.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
}

// New dials the given Kafka brokers with a synchronous, fully-acked
// producer, matching the delivery guarantees the outbox is designed
// to provide.
func New(outbox *exitwal.Outbox, brokers []string, topic string) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return NewWithProducer(outbox, producer, topic), nil
}

// NewWithProducer wires a Broadcaster to an already-constructed
// producer, letting tests substitute sarama's mocks.SyncProducer for
// a live broker connection.
func NewWithProducer(outbox *exitwal.Outbox, producer sarama.SyncProducer, topic string) *Broadcaster {
	return &Broadcaster{
		outbox:   outbox,
		producer: producer,
		topic:    topic,
		interval: 250 * time.Millisecond,
	}
}

// Publish enqueues a trade for background broadcast; called by the
// service layer for each trade a submit produces.
func (b *Broadcaster) Publish(evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.outbox.PutNew(evt.TradeID, payload)
}

// Start runs the drain loop until ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	log.Println("broadcaster: started")
	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce(ctx)
			}
		}
	}()
}

// drainOnce scans NEW and FAILED entries and attempts to send each
// one once, marking it SENT on a successful publish. The Kafka value is
// the caller-supplied encoded event.
func (b *Broadcaster) drainOnce(ctx context.Context) {
	type pending struct {
		tradeID string
		rec     exitwal.Record
	}
	var batch []pending
	for _, state := range []exitwal.State{exitwal.StateNew, exitwal.StateFailed} {
		_ = b.outbox.ScanByState(state, func(tradeID string, rec exitwal.Record) error {
			batch = append(batch, pending{tradeID: tradeID, rec: rec})
			return nil
		})
	}
	for _, p := range batch {
		_ = b.attempt(p.tradeID, p.rec)
	}
}

func (b *Broadcaster) attempt(tradeID string, rec exitwal.Record) error {
	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(tradeID),
		Value: sarama.ByteEncoder(rec.Payload),
	}

	if _, _, err := b.producer.SendMessage(msg); err != nil {
		_ = b.outbox.UpdateState(tradeID, exitwal.StateFailed, rec.Retries+1)
		return nil
	}

	return b.outbox.UpdateState(tradeID, exitwal.StateSent, rec.Retries)
}

// Ack marks a trade acknowledged by downstream consumers and drops
// it from the outbox.
func (b *Broadcaster) Ack(tradeID string) error {
	if err := b.outbox.UpdateState(tradeID, exitwal.StateAcked, 0); err != nil {
		return err
	}
	return b.outbox.Delete(tradeID)
}

// Close releases the underlying Kafka connection.
func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
