// Command server runs the matching engine behind an HTTP API, with a
// durable command journal, periodic snapshotting, and an optional
// Kafka trade broadcaster.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"matchcore/internal/api"
	"matchcore/internal/book"
	"matchcore/internal/broadcaster"
	"matchcore/internal/exitwal"
	"matchcore/internal/sequence"
	"matchcore/internal/service"
	"matchcore/internal/walentry"
)

type brokerList []string

func (b *brokerList) String() string { return "" }
func (b *brokerList) Set(v string) error {
	*b = append(*b, v)
	return nil
}

func main() {
	var (
		addr        = flag.String("addr", ":8080", "HTTP listen address")
		walDir      = flag.String("wal-dir", "./data/wal", "command journal directory")
		segmentSize = flag.Int64("wal-segment-size", 64<<20, "journal segment rotation size in bytes")
		snapshotDir = flag.String("snapshot-dir", "./data/snapshot", "periodic snapshot directory")
		snapshotInt = flag.Duration("snapshot-interval", time.Minute, "interval between snapshots")
		outboxDir   = flag.String("outbox-dir", "./data/outbox", "trade outbox directory")
		kafkaTopic  = flag.String("kafka-topic", "matchcore.trades", "Kafka topic for trade events")
		brokers     brokerList
	)
	flag.Var(&brokers, "kafka-broker", "Kafka broker address (repeatable); omit to disable broadcasting")
	flag.Parse()

	entryWAL, err := walentry.Open(walentry.Config{Dir: *walDir, SegmentSize: *segmentSize})
	if err != nil {
		log.Fatalf("matchcore: opening journal: %v", err)
	}

	b := book.New()
	seqGen := sequence.New(0)

	if err := service.Recover(*walDir, *snapshotDir, b, seqGen); err != nil {
		log.Fatalf("matchcore: recovery failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var bc *broadcaster.Broadcaster
	if len(brokers) > 0 {
		outbox, err := exitwal.Open(*outboxDir)
		if err != nil {
			log.Fatalf("matchcore: opening outbox: %v", err)
		}
		defer outbox.Close()

		bc, err = broadcaster.New(outbox, brokers, *kafkaTopic)
		if err != nil {
			log.Fatalf("matchcore: connecting to Kafka: %v", err)
		}
		defer bc.Close()
		bc.Start(ctx)
	}

	svc := service.New(b, seqGen, entryWAL, bc)
	defer svc.Stop()

	svc.StartSnapshotJob(*snapshotDir, *snapshotInt)

	srv := api.NewServer(svc)
	log.Printf("matchcore: listening on %s", *addr)
	if err := srv.ListenAndServe(*addr); err != nil {
		log.Fatalf("matchcore: HTTP server exited: %v", err)
	}
}
