// Package api is the reference HTTP transport mapping the engine's
// transport-neutral command surface onto net/http, with a bare ServeMux
// using Go 1.22+ method+path patterns and no third-party router — the
// transport is an out-of-scope external collaborator, so it is kept thin.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"repello/internal/book"
	"repello/internal/engine"
	"repello/internal/price"
	"repello/internal/types"
)

// TradeRequest is the wire form of a Create or Modify command.
type TradeRequest struct {
	ID              string      `json:"id"`
	OrderType       types.Kind  `json:"order_type"`
	OrderSide       types.Side  `json:"order_side"`
	Price           json.Number `json:"price"`
	Quantity        uint64      `json:"quantity"`
	MinimumQuantity uint64      `json:"minimum_quantity"`
	ExpirationDate  *string     `json:"expiration_date,omitempty"`
}

// TradeResponse is the wire form of a Trade event.
type TradeResponse struct {
	BuyOrderID  string `json:"buy_order_id"`
	SellOrderID string `json:"sell_order_id"`
	Price       string `json:"price"`
	Quantity    uint64 `json:"quantity"`
	Timestamp   int64  `json:"timestamp"`
}

// CreateOrderResponse is the response to a Create command.
type CreateOrderResponse struct {
	OrderID     string          `json:"order_id"`
	Disposition string          `json:"disposition"`
	Trades      []TradeResponse `json:"trades,omitempty"`
}

// ModifyOrderResponse is the response to a Modify command.
type ModifyOrderResponse struct {
	Disposition string          `json:"disposition"`
	Trades      []TradeResponse `json:"trades,omitempty"`
}

// CancelOrderResponse is the response to a Cancel command.
type CancelOrderResponse struct {
	Disposition string `json:"disposition"`
}

// OrderResponse describes one order for GET /api/v1/orders/{id}.
type OrderResponse struct {
	OrderID           string `json:"order_id"`
	Side              string `json:"side"`
	Kind              string `json:"kind"`
	Price             string `json:"price"`
	Quantity          uint64 `json:"quantity"`
	RemainingQuantity uint64 `json:"remaining_quantity"`
	FilledQuantity    uint64 `json:"filled_quantity"`
	MinimumQuantity   uint64 `json:"minimum_quantity"`
	State             string `json:"state"`
}

// DepthResponse is the order-book depth snapshot for GET /api/v1/orderbook.
type DepthResponse struct {
	Timestamp int64            `json:"timestamp"`
	Bids      []PriceLevelJSON `json:"bids"`
	Asks      []PriceLevelJSON `json:"asks"`
}

// PriceLevelJSON is one aggregated depth row.
type PriceLevelJSON struct {
	Price    string `json:"price"`
	Quantity uint64 `json:"quantity"`
}

// HealthResponse is the response to GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Server is the HTTP server fronting one Engine.
type Server struct {
	listenAddr string
	engine     *engine.Engine
	tickSize   decimal.Decimal
	log        zerolog.Logger
	startTime  time.Time
}

// NewServer creates a new Server.
func NewServer(listenAddr string, eng *engine.Engine, tickSize decimal.Decimal, log zerolog.Logger) *Server {
	return &Server{
		listenAddr: listenAddr,
		engine:     eng,
		tickSize:   tickSize,
		log:        log,
		startTime:  time.Now(),
	}
}

// Handler builds the server's http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/orders", s.handleCreateOrder)
	mux.HandleFunc("PUT /api/v1/orders/{id}", s.handleModifyOrder)
	mux.HandleFunc("DELETE /api/v1/orders/{id}", s.handleCancelOrder)
	mux.HandleFunc("GET /api/v1/orders/{id}", s.handleGetOrder)
	mux.HandleFunc("GET /api/v1/orderbook", s.handleGetOrderBook)
	mux.HandleFunc("GET /health", s.handleHealthCheck)
	mux.HandleFunc("GET /metrics", s.handleGetMetrics)
	return mux
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	return http.ListenAndServe(s.listenAddr, s.Handler())
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	spec, err := s.toSpec(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.Create(*spec)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateOrderResponse{
		OrderID:     result.OrderID.String(),
		Disposition: result.Disposition.String(),
		Trades:      s.tradeResponses(result.Trades),
	})
}

func (s *Server) handleModifyOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = id.String()

	spec, err := s.toSpec(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.Modify(*spec)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ModifyOrderResponse{
		Disposition: result.Disposition.String(),
		Trades:      s.tradeResponses(result.Trades),
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	disposition, err := s.engine.Cancel(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CancelOrderResponse{Disposition: disposition.String()})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, state, err := s.engine.GetOrder(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OrderResponse{
		OrderID:           order.ID.String(),
		Side:              order.Side.String(),
		Kind:              order.Kind.String(),
		Price:             price.ToDecimal(order.Price, s.tickSize).String(),
		Quantity:          order.OriginalQuantity,
		RemainingQuantity: order.Remaining,
		FilledQuantity:    order.FilledQuantity(),
		MinimumQuantity:   order.MinimumQuantity,
		State:             state.String(),
	})
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	bids, asks := s.engine.Depth(limit)
	writeJSON(w, http.StatusOK, DepthResponse{
		Timestamp: time.Now().UnixMilli(),
		Bids:      s.levelResponses(bids),
		Asks:      s.levelResponses(asks),
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Metrics())
}

func (s *Server) toSpec(req TradeRequest) (*engine.OrderSpec, error) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, errors.New("id must be a canonical UUID")
	}

	ticks, err := price.ToTicks(req.Price.String(), s.tickSize)
	if err != nil {
		return nil, err
	}

	var expiration *time.Time
	if req.ExpirationDate != nil && *req.ExpirationDate != "" {
		t, err := time.Parse(time.RFC3339, *req.ExpirationDate)
		if err != nil {
			return nil, errors.New("expiration_date must be RFC3339")
		}
		expiration = &t
	}

	return &engine.OrderSpec{
		ID:              id,
		Side:            req.OrderSide,
		Kind:            req.OrderType,
		Price:           ticks,
		Quantity:        req.Quantity,
		MinimumQuantity: req.MinimumQuantity,
		Expiration:      expiration,
	}, nil
}

func (s *Server) tradeResponses(trades []types.Trade) []TradeResponse {
	if len(trades) == 0 {
		return nil
	}
	out := make([]TradeResponse, len(trades))
	for i, t := range trades {
		out[i] = TradeResponse{
			BuyOrderID:  t.BuyOrderID.String(),
			SellOrderID: t.SellOrderID.String(),
			Price:       price.ToDecimal(t.Price, s.tickSize).String(),
			Quantity:    t.Quantity,
			Timestamp:   t.Timestamp.UnixMilli(),
		}
	}
	return out
}

func (s *Server) levelResponses(levels []book.DepthLevel) []PriceLevelJSON {
	out := make([]PriceLevelJSON, len(levels))
	for i, l := range levels {
		out[i] = PriceLevelJSON{Price: price.ToDecimal(l.Price, s.tickSize).String(), Quantity: l.Quantity}
	}
	return out
}

func writeEngineError(w http.ResponseWriter, err error) {
	var ee *types.EngineError
	if errors.As(err, &ee) {
		status := http.StatusBadRequest
		if ee.Kind == types.NotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
