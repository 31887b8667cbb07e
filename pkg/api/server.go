// Package api serves a local preview of order formatting and relays
// exchange market data to browser clients.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/decibel-kit/pkg/formatting"
	"github.com/uhyunpark/decibel-kit/pkg/market"
	"github.com/uhyunpark/decibel-kit/pkg/stream"
)

// Server handles REST API and WebSocket connections
type Server struct {
	ctx      context.Context
	registry *market.Registry
	router   *mux.Router
	hub      *Hub
	logger   *zap.SugaredLogger
}

// NewServer creates the server and starts its WebSocket hub, which stops
// with ctx.
func NewServer(ctx context.Context, registry *market.Registry, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		ctx:      ctx,
		registry: registry,
		router:   mux.NewRouter(),
		hub:      NewHub(logger),
		logger:   logger,
	}
	go s.hub.Run(ctx)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market endpoints
	api.HandleFunc("/markets", s.handleGetMarkets).Methods("GET")
	api.HandleFunc("/markets/{name:.+}", s.handleGetMarket).Methods("GET")

	// Order formatting
	api.HandleFunc("/orders/format", s.handleFormatOrder).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in CORS handling
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves on addr until the server context is cancelled
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-s.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Infow("api_server_starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Relay forwards an exchange message to local subscribers of its channel.
// It has the stream.Handler signature.
func (s *Server) Relay(msg stream.Message) {
	s.hub.BroadcastToChannel(msg.Channel, msg.Data)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.registry.List()

	response := make([]MarketInfo, len(markets))
	for i, m := range markets {
		response[i] = marketInfo(m)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m, err := s.registry.Get(name)
	if err != nil {
		respondError(w, http.StatusNotFound, CodeMarketNotFound, err.Error())
		return
	}
	respondJSON(w, marketInfo(m))
}

func (s *Server) handleFormatOrder(w http.ResponseWriter, r *http.Request) {
	var req FormatOrderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if req.Market == "" {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "missing market")
		return
	}

	m, err := s.registry.Get(req.Market)
	if err != nil {
		respondError(w, http.StatusNotFound, CodeMarketNotFound, err.Error())
		return
	}

	params, err := formatting.FormatOrderParams(req.Price, req.Size, m)
	if err != nil {
		respondError(w, http.StatusBadRequest, errorCode(err), err.Error())
		return
	}
	formatting.PrintOrderParams(s.logger, params, m)

	respondJSON(w, FormatOrderResponse{
		Market:      m.MarketName,
		OrderParams: params,
		Display:     params.Format(m),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	respondJSON(w, HealthResponse{
		Status:  "ok",
		Markets: s.registry.Count(),
		Clients: s.hub.ClientCount(ctx),
	})
}

// ==============================
// Helper Functions
// ==============================

func marketInfo(m *formatting.MarketConfig) MarketInfo {
	return MarketInfo{
		MarketConfig:  *m,
		TickSizeHuman: m.TickSizeHuman(),
		LotSizeHuman:  m.LotSizeHuman(),
		MinSizeHuman:  m.MinSizeHuman(),
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, formatting.ErrOverflow):
		return CodeOverflow
	case errors.Is(err, formatting.ErrInvalidMarketConfig):
		return CodeInvalidMarketConfig
	default:
		return CodeInvalidInput
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   code,
		Message: message,
	})
}
