// Command csvdriver replays a CSV command file against a single
// in-memory book, printing results the way an interactive operator
// console would. It runs entirely against internal/book directly and
// keeps no durability of its own.
//
// Commands, one per line:
//
//	ADD,order_id,user_id,side,price,quantity
//	REMOVE,order_id
//	SHOW_BEST
//	BEST_BID
//	BEST_ASK
//	SHOW_TOP,k
//	SHOW_ALL_TRADES
//	GET_TRADE,trade_id
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"matchcore/internal/book"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <csv_file1> [csv_file2 ...]\n", os.Args[0])
		os.Exit(1)
	}

	b := book.New()
	for _, path := range os.Args[1:] {
		if err := runFile(b, path); err != nil {
			log.Printf("csvdriver: %s: %v", path, err)
		}
	}
}

func runFile(b *book.Book, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	for {
		fields, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "ignoring malformed line: %v\n", err)
			continue
		}
		if len(fields) == 0 {
			continue
		}
		processLine(b, fields)
	}
}

func processLine(b *book.Book, fields []string) {
	switch strings.ToUpper(fields[0]) {
	case "ADD":
		handleAdd(b, fields[1:])
	case "REMOVE":
		handleRemove(b, fields[1:])
	case "SHOW_BEST":
		fmt.Printf("Best Bid: %.2f, Best Ask: %.2f\n", b.BestBid(), b.BestAsk())
	case "BEST_BID":
		fmt.Printf("Best Bid: %.2f\n", b.BestBid())
	case "BEST_ASK":
		fmt.Printf("Best Ask: %.2f\n", b.BestAsk())
	case "SHOW_TOP":
		handleShowTop(b, fields[1:])
	case "SHOW_ALL_TRADES":
		handleShowAllTrades(b)
	case "GET_TRADE":
		handleGetTrade(b, fields[1:])
	default:
		fmt.Fprintf(os.Stderr, "unrecognized command: %s. Skipping line.\n", fields[0])
	}
}

func handleAdd(b *book.Book, args []string) {
	if len(args) != 5 {
		fmt.Fprintf(os.Stderr, "invalid ADD format, expected order_id,user_id,side,price,quantity: %v\n", args)
		return
	}

	price, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid price %q\n", args[3])
		return
	}
	quantity, err := strconv.ParseInt(args[4], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid quantity %q\n", args[4])
		return
	}

	order := book.Order{
		OrderID:   args[0],
		UserID:    args[1],
		Side:      convertSide(args[2]),
		Price:     price,
		Quantity:  quantity,
		Timestamp: time.Now().UnixNano(),
	}
	if !order.Valid() {
		fmt.Fprintf(os.Stderr, "invalid order, skipping: %+v\n", order)
		return
	}

	tradeIDs := b.Submit(order)
	if len(tradeIDs) == 0 {
		fmt.Printf("No trades executed when adding order %s.\n", order.OrderID)
		return
	}

	fmt.Printf("Executed %d trades when adding order %s:\n", len(tradeIDs), order.OrderID)
	for _, id := range tradeIDs {
		fmt.Printf("  Trade ID: %s\n", id)
	}
}

// convertSide defaults to SELL for anything not recognized as "buy",
// matching the original driver's convert_side.
func convertSide(s string) book.Side {
	if strings.EqualFold(s, "buy") {
		return book.Buy
	}
	return book.Sell
}

func handleRemove(b *book.Book, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "invalid REMOVE format, expected order_id: %v\n", args)
		return
	}
	if b.Cancel(args[0]) {
		fmt.Printf("Successfully removed order %s.\n", args[0])
	} else {
		fmt.Printf("Order %s not found.\n", args[0])
	}
}

func handleShowTop(b *book.Book, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "invalid SHOW_TOP format, expected k: %v\n", args)
		return
	}
	k, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid k %q\n", args[0])
		return
	}

	bids, asks := b.Depth(k)
	label := k
	if k == 0 {
		label = -1
	}
	fmt.Printf("Top %d Bid Levels:\n", label)
	for _, lvl := range bids {
		fmt.Printf("  Price: %.2f, Size: %d\n", lvl.Price, lvl.Quantity)
	}
	fmt.Printf("Top %d Ask Levels:\n", label)
	for _, lvl := range asks {
		fmt.Printf("  Price: %.2f, Size: %d\n", lvl.Price, lvl.Quantity)
	}
}

func handleShowAllTrades(b *book.Book) {
	trades := b.Trades()
	fmt.Printf("All %d trades so far:\n", len(trades))
	for _, t := range trades {
		printTrade(t)
	}
}

func handleGetTrade(b *book.Book, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "invalid GET_TRADE format, expected trade_id: %v\n", args)
		return
	}
	trade, ok := b.TradeByID(args[0])
	if !ok {
		fmt.Printf("No trade found with ID '%s'\n", args[0])
		return
	}
	fmt.Print("Trade found: ")
	printTrade(trade)
}

func printTrade(t book.Trade) {
	fmt.Printf("  Trade ID: %s | Buy Order: %s (User %s) | Sell Order: %s (User %s) | Size: %d | Price: %.2f | Timestamp: %d\n",
		t.TradeID, t.BuyOrderID, t.BuyUserID, t.SellOrderID, t.SellUserID, t.Size, t.Price, t.Timestamp)
}
