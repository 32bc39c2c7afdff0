package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"carbon_market/internal/domain"
	"carbon_market/internal/engine"
	"carbon_market/internal/infra"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Server exposes the market engine over HTTP and websocket.
type Server struct {
	market    *engine.Market
	hub       *Hub
	log       *slog.Logger
	metrics   *infra.Metrics
	jwtSecret []byte
	upgrader  websocket.Upgrader
}

// NewServer wires the engine to the HTTP boundary and registers the
// websocket broadcast on engine changes.
func NewServer(market *engine.Market, secret []byte, log *slog.Logger, metrics *infra.Metrics) *Server {
	s := &Server{
		market:    market,
		hub:       NewHub(log, metrics),
		log:       log,
		metrics:   metrics,
		jwtSecret: secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	return s
}

// BroadcastSnapshot pushes the current market view to websocket clients.
// Wired as the engine's change callback by the bootstrap.
func (s *Server) BroadcastSnapshot() {
	s.hub.Broadcast(wsOut{Type: "market", Payload: s.market.Snapshot()})
}

type wsOut struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(corsMiddleware)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet, http.MethodOptions)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(mux.MiddlewareFunc(s.authMiddleware))

	api.HandleFunc("/market", s.handleMarketData).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/portfolio", s.handlePortfolio).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/trade/buy", s.handleBuy).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/trade/sell", s.handleSell).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/adjustments", s.handleAdjustment).Methods(http.MethodPost, http.MethodOptions)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/advance", s.requireAdmin(s.handleAdvanceRound)).Methods(http.MethodPost, http.MethodOptions)
	admin.HandleFunc("/reset", s.requireAdmin(s.handleReset)).Methods(http.MethodPost, http.MethodOptions)
	admin.HandleFunc("/event", s.requireAdmin(s.handleEvent)).Methods(http.MethodPost, http.MethodOptions)
	admin.HandleFunc("/freeze", s.requireAdmin(s.handleFreezeMarket)).Methods(http.MethodPost, http.MethodOptions)
	admin.HandleFunc("/items/{id}/freeze", s.requireAdmin(s.handleFreezeItem)).Methods(http.MethodPost, http.MethodOptions)
	admin.HandleFunc("/items/{id}/adjust", s.requireAdmin(s.handleAdjustPrice)).Methods(http.MethodPost, http.MethodOptions)
	admin.HandleFunc("/metrics", s.requireAdmin(s.handleMetrics)).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/ws", s.handleWS)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---- read endpoints ----

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.market.Snapshot())
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	portfolio, err := s.market.Portfolio(claims.TeamID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.market.Leaderboard())
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	acct, err := s.market.Team(claims.TeamID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct.Transactions)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// ---- trade endpoints ----

type tradeRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int64  `json:"quantity"`
}

type tradeResponse struct {
	Message    string          `json:"message"`
	NewBalance decimal.Decimal `json:"newBalance"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	balance, err := s.market.Buy(claims.TeamID, req.ItemID, req.Quantity)
	if err != nil {
		s.metrics.RecordTradeRejected()
		s.writeEngineError(w, err)
		return
	}

	s.metrics.RecordTrade()
	writeJSON(w, http.StatusOK, tradeResponse{
		Message:    fmt.Sprintf("Bought %d x %s", req.Quantity, req.ItemID),
		NewBalance: balance,
	})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	balance, err := s.market.Sell(claims.TeamID, req.ItemID, req.Quantity)
	if err != nil {
		s.metrics.RecordTradeRejected()
		s.writeEngineError(w, err)
		return
	}

	s.metrics.RecordTrade()
	writeJSON(w, http.StatusOK, tradeResponse{
		Message:    fmt.Sprintf("Sold %d x %s", req.Quantity, req.ItemID),
		NewBalance: balance,
	})
}

type adjustmentRequest struct {
	Type   string          `json:"type"` // QUIZ, PENALTY, GAME_WIN
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	RefID  string          `json:"refId"`
}

func (s *Server) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	balance, err := s.market.ApplyAdjustment(claims.TeamID, req.Type, req.Label, req.Amount, req.RefID)
	if errors.Is(err, domain.ErrDuplicateAdjustment) {
		// Replay of an already-applied reward/penalty; idempotent success.
		writeJSON(w, http.StatusOK, tradeResponse{Message: "Already applied", NewBalance: balance})
		return
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.metrics.RecordAdjustment()
	writeJSON(w, http.StatusOK, tradeResponse{Message: "Applied", NewBalance: balance})
}

// ---- admin endpoints ----

type adminResponse struct {
	Message string                `json:"message"`
	Market  domain.MarketSnapshot `json:"market"`
}

func (s *Server) adminOK(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, adminResponse{Message: message, Market: s.market.Snapshot()})
}

func (s *Server) handleAdvanceRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.market.AdvanceRound()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.metrics.RecordRoundAdvanced()
	s.adminOK(w, fmt.Sprintf("Round %d applied", round))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.market.Reset()
	s.adminOK(w, "Market reset: all portfolios and admin overrides cleared")
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Event *string `json:"event"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	event := domain.EventNone
	if req.Event != nil {
		event = domain.MarketEvent(*req.Event)
	}
	if err := s.market.TriggerEvent(event); err != nil {
		s.writeEngineError(w, err)
		return
	}

	if event == domain.EventNone {
		s.adminOK(w, "Event cleared")
	} else {
		s.adminOK(w, fmt.Sprintf("Event %q active: %s%% on every round until cleared",
			event, event.OverlayPercent()))
	}
}

func (s *Server) handleFreezeMarket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DurationMinutes int `json:"durationMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.market.FreezeMarket(req.DurationMinutes); err != nil {
		s.writeEngineError(w, err)
		return
	}

	if req.DurationMinutes == 0 {
		s.adminOK(w, "Market unfrozen")
	} else {
		s.adminOK(w, fmt.Sprintf("Market frozen for %d minutes", req.DurationMinutes))
	}
}

func (s *Server) handleFreezeItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]
	var req struct {
		Frozen bool `json:"frozen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.market.SetItemFrozen(itemID, req.Frozen); err != nil {
		s.writeEngineError(w, err)
		return
	}

	verb := "unfrozen"
	if req.Frozen {
		verb = "frozen"
	}
	s.adminOK(w, fmt.Sprintf("Item %s %s", itemID, verb))
}

func (s *Server) handleAdjustPrice(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]
	var req struct {
		ExtraPercent decimal.Decimal `json:"extraPercent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.market.AdjustPrice(itemID, req.ExtraPercent); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.adminOK(w, fmt.Sprintf("Extra %s%% staged for %s at next round", req.ExtraPercent, itemID))
}

// ---- websocket ----

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	if _, err := s.parseToken(raw); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	s.hub.Add(conn)
	// Send the current view immediately so clients don't wait for a change.
	s.hub.Send(conn, wsOut{Type: "market", Payload: s.market.Snapshot()})
}

// ---- helpers ----

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var conflictErr *domain.StateConflictError
	var notFoundErr *domain.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, conflictErr.Error())
	default:
		s.metrics.RecordError()
		s.log.Error("unexpected engine error", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
