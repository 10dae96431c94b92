// Package api serves a read-only HTTP view of market state, the stream, and the paper account.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"quotebot-go/internal/exchange"
	"quotebot-go/internal/market"
	"quotebot-go/internal/metrics"
	"quotebot-go/internal/paper"
	"quotebot-go/internal/signal"
)

const defaultBarCount = 50

// MarketView is the read side of the market store.
type MarketView interface {
	LastPrice(instrument string) (signal.Quote, error)
	BarHistory(instrument string, n int) []signal.Bar
	Instruments() []string
}

// StreamView reports connection health.
type StreamView interface {
	State() exchange.State
	Subscribed() []string
}

// AccountView exposes paper trading totals.
type AccountView interface {
	Snapshot() paper.Snapshot
}

// OrderView lists orders still in flight.
type OrderView interface {
	Orders() []paper.Order
}

// Sources bundles the components the server reads from. Nil members disable their routes.
type Sources struct {
	Market  MarketView
	Stream  StreamView
	Account AccountView
	Orders  OrderView
}

// Server handles the status REST routes.
type Server struct {
	src    Sources
	router *mux.Router
	log    zerolog.Logger
}

// NewServer builds the router.
func NewServer(src Sources, log zerolog.Logger) *Server {
	s := &Server{
		src:    src,
		router: mux.NewRouter(),
		log:    log.With().Str("component", "api").Logger(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/prices", s.handlePrices).Methods(http.MethodGet)
	s.router.HandleFunc("/prices/{instrument}", s.handlePrice).Methods(http.MethodGet)
	s.router.HandleFunc("/bars/{instrument}", s.handleBars).Methods(http.MethodGet)
	s.router.HandleFunc("/account", s.handleAccount).Methods(http.MethodGet)
	s.router.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

// Handler returns the router wrapped in CORS middleware.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("status api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// PriceResponse is the last quote for an instrument.
type PriceResponse struct {
	Instrument string  `json:"instrument"`
	Ask        float64 `json:"ask"`
	Bid        float64 `json:"bid"`
	Mid        float64 `json:"mid"`
}

// StreamResponse reports the connection state.
type StreamResponse struct {
	State      string   `json:"state"`
	Subscribed []string `json:"subscribed"`
}

// AccountResponse combines closed-trade totals with open orders.
type AccountResponse struct {
	paper.Snapshot
	WinRate    float64       `json:"win_rate"`
	OpenOrders []paper.Order `json:"open_orders"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePrices(w http.ResponseWriter, _ *http.Request) {
	if s.src.Market == nil {
		respondError(w, http.StatusServiceUnavailable, "market unavailable", "")
		return
	}
	out := make([]PriceResponse, 0)
	for _, inst := range s.src.Market.Instruments() {
		q, err := s.src.Market.LastPrice(inst)
		if err != nil {
			continue
		}
		out = append(out, priceResponse(inst, q))
	}
	respondJSON(w, out)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if s.src.Market == nil {
		respondError(w, http.StatusServiceUnavailable, "market unavailable", "")
		return
	}
	inst := mux.Vars(r)["instrument"]
	q, err := s.src.Market.LastPrice(inst)
	if errors.Is(err, market.ErrNotFound) {
		respondError(w, http.StatusNotFound, "price not found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "price lookup failed", err.Error())
		return
	}
	respondJSON(w, priceResponse(inst, q))
}

func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	if s.src.Market == nil {
		respondError(w, http.StatusServiceUnavailable, "market unavailable", "")
		return
	}
	n := defaultBarCount
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "invalid n", raw)
			return
		}
		n = parsed
	}
	bars := s.src.Market.BarHistory(mux.Vars(r)["instrument"], n)
	if bars == nil {
		bars = []signal.Bar{}
	}
	respondJSON(w, bars)
}

func (s *Server) handleAccount(w http.ResponseWriter, _ *http.Request) {
	if s.src.Account == nil {
		respondError(w, http.StatusServiceUnavailable, "account unavailable", "")
		return
	}
	snap := s.src.Account.Snapshot()
	resp := AccountResponse{Snapshot: snap, WinRate: snap.WinRate(), OpenOrders: []paper.Order{}}
	if s.src.Orders != nil {
		resp.OpenOrders = s.src.Orders.Orders()
	}
	respondJSON(w, resp)
}

func (s *Server) handleStream(w http.ResponseWriter, _ *http.Request) {
	if s.src.Stream == nil {
		respondError(w, http.StatusServiceUnavailable, "stream unavailable", "")
		return
	}
	subscribed := s.src.Stream.Subscribed()
	if subscribed == nil {
		subscribed = []string{}
	}
	respondJSON(w, StreamResponse{State: s.src.Stream.State().String(), Subscribed: subscribed})
}

func priceResponse(inst string, q signal.Quote) PriceResponse {
	return PriceResponse{Instrument: inst, Ask: q.Ask, Bid: q.Bid, Mid: (q.Ask + q.Bid) / 2}
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Message: detail})
}
