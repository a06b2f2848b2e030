// Package api exposes the order service over HTTP: submitting and
// cancelling orders, reading book depth, and looking up trades.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"matchcore/internal/book"
	"matchcore/internal/service"
)

// Server holds the HTTP router and the order service it fronts.
type Server struct {
	svc       *service.OrderService
	router    *mux.Router
	startTime time.Time

	ordersReceived  atomic.Int64
	ordersCancelled atomic.Int64
	tradesExecuted  atomic.Int64
}

// NewServer builds a Server wired to svc and registers its routes.
func NewServer(svc *service.OrderService) *Server {
	s := &Server{
		svc:       svc,
		router:    mux.NewRouter(),
		startTime: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	v1.HandleFunc("/orders/{order_id}", s.handleCancelOrder).Methods("DELETE")
	v1.HandleFunc("/book", s.handleGetBook).Methods("GET")
	v1.HandleFunc("/trades/{trade_id}", s.handleGetTrade).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
}

// Handler returns the server's http.Handler for use with http.Server
// or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// SubmitOrderRequest is the JSON body of POST /api/v1/orders.
type SubmitOrderRequest struct {
	UserID   string  `json:"user_id"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// SubmitOrderResponse is returned from a successful submit.
type SubmitOrderResponse struct {
	OrderID  string   `json:"order_id"`
	TradeIDs []string `json:"trade_ids"`
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	var side book.Side
	switch req.Side {
	case "BUY":
		side = book.Buy
	case "SELL":
		side = book.Sell
	default:
		respondError(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	order := book.Order{
		OrderID:   uuid.New().String(),
		UserID:    req.UserID,
		Side:      side,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Timestamp: time.Now().UnixNano(),
	}

	tradeIDs, err := s.svc.Submit(order)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.ordersReceived.Add(1)
	s.tradesExecuted.Add(int64(len(tradeIDs)))

	respondJSON(w, http.StatusCreated, SubmitOrderResponse{OrderID: order.OrderID, TradeIDs: tradeIDs})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]

	ok, err := s.svc.Cancel(orderID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}

	s.ordersCancelled.Add(1)
	respondJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": "CANCELLED"})
}

// BookView is the JSON shape returned from GET /api/v1/book.
type BookView struct {
	Bids []book.Level `json:"bids"`
	Asks []book.Level `json:"asks"`
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	depth := 10
	if v := r.URL.Query().Get("depth"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d >= 0 {
			depth = d
		}
	}

	bids, asks := s.svc.Depth(depth)
	respondJSON(w, http.StatusOK, BookView{Bids: bids, Asks: asks})
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := mux.Vars(r)["trade_id"]

	trade, ok := s.svc.TradeByID(tradeID)
	if !ok {
		respondError(w, http.StatusNotFound, "trade not found")
		return
	}
	respondJSON(w, http.StatusOK, trade)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders_received":  s.ordersReceived.Load(),
		"orders_cancelled": s.ordersCancelled.Load(),
		"trades_executed":  s.tradesExecuted.Load(),
	})
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}
