package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"matchcore/internal/book"
	"matchcore/internal/sequence"
	"matchcore/internal/service"
	"matchcore/internal/walentry"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	w, err := walentry.Open(walentry.Config{Dir: t.TempDir(), SegmentSize: 1 << 20})
	if err != nil {
		t.Fatalf("walentry.Open: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	svc := service.New(book.New(), sequence.New(0), w, nil)
	return NewServer(svc)
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSubmitOrderCreatesRestingOrder(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/v1/orders", SubmitOrderRequest{
		UserID: "alice", Side: "SELL", Price: 100, Quantity: 10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body = %s", rec.Code, rec.Body.String())
	}

	var resp SubmitOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OrderID == "" {
		t.Error("expected a generated order_id")
	}
	if len(resp.TradeIDs) != 0 {
		t.Errorf("expected no trades, got %v", resp.TradeIDs)
	}
}

func TestSubmitOrderRejectsBadSide(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "POST", "/api/v1/orders", SubmitOrderRequest{Side: "WAT", Price: 1, Quantity: 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitOrderThenMatchReturnsTradeIDs(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/api/v1/orders", SubmitOrderRequest{Side: "SELL", Price: 100, Quantity: 10})

	rec := doJSON(t, srv, "POST", "/api/v1/orders", SubmitOrderRequest{Side: "BUY", Price: 100, Quantity: 10})
	var resp SubmitOrderResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.TradeIDs) != 1 {
		t.Fatalf("expected 1 trade id, got %v", resp.TradeIDs)
	}
}

func TestCancelOrderNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "DELETE", "/api/v1/orders/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCancelOrderSucceeds(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "POST", "/api/v1/orders", SubmitOrderRequest{Side: "BUY", Price: 99, Quantity: 5})
	var resp SubmitOrderResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)

	rec = doJSON(t, srv, "DELETE", "/api/v1/orders/"+resp.OrderID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetBookReturnsDepth(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/api/v1/orders", SubmitOrderRequest{Side: "SELL", Price: 101, Quantity: 10})
	doJSON(t, srv, "POST", "/api/v1/orders", SubmitOrderRequest{Side: "BUY", Price: 99, Quantity: 10})

	rec := doJSON(t, srv, "GET", "/api/v1/book", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var view BookView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Bids) != 1 || len(view.Asks) != 1 {
		t.Errorf("unexpected book view: %+v", view)
	}
}

func TestGetTradeNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "GET", "/api/v1/trades/TRADE-99999999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
