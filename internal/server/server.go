// Package server exposes the raffle page, its JSON API and the live view
// stream over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"rafflefront/internal/config"
	"rafflefront/internal/entry"
	"rafflefront/internal/hmacauth"
	"rafflefront/internal/idempotency"
	"rafflefront/internal/metrics"
	"rafflefront/internal/page"
	"rafflefront/internal/raffle"
	"rafflefront/internal/readview"
	"rafflefront/internal/wallet"
)

const idempotencyHeader = "X-Idempotency-Key"

type Wallet interface {
	Session() wallet.Session
	Connect(ctx context.Context, connectorID string) error
	Disconnect()
	Subscribe(fn func(wallet.Session)) func()
}

type View interface {
	Snapshot() readview.Snapshot
	Subscribe(fn func(readview.Snapshot)) func()
}

type Entries interface {
	State() entry.State
	Enter() bool
	Subscribe(fn func(entry.State)) func()
}

// Deps are the components the server drives. Contract is only used for
// health checks and may be nil.
type Deps struct {
	Wallet   Wallet
	View     View
	Entries  Entries
	Contract raffle.HealthChecker
	Store    idempotency.Store
	Metrics  *metrics.Registry
	Logger   *zap.Logger
}

type Server struct {
	cfg      *config.AppConfig
	wallet   Wallet
	view     View
	entries  Entries
	composer *page.Composer
	store    idempotency.Store
	hmac     *hmacauth.Verifier
	// formToken gates the page's form posts; it lives as long as the process.
	formToken string
	metrics   *metrics.Registry
	logger    *zap.Logger
	upgrader  websocket.Upgrader

	rpcHealthFn  func(context.Context) error
	framePeriod  time.Duration
	writeTimeout time.Duration

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	httpServer *http.Server
}

func NewServer(cfg *config.AppConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := deps.Store
	if store == nil {
		store = idempotency.NewMemoryStore()
	}

	formToken := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		wallet:  deps.Wallet,
		view:    deps.View,
		entries: deps.Entries,
		composer: &page.Composer{
			Sessions: deps.Wallet,
			View:     deps.View,
			Entries:  deps.Entries,
			Formatter: readview.Formatter{
				DrawInterval: cfg.Raffle.DrawInterval,
				Symbol:       cfg.Chain.Descriptor.Currency.Symbol,
				Decimals:     cfg.Chain.Descriptor.Currency.Decimals,
			},
			FormToken: formToken,
		},
		formToken: formToken,
		store:     store,
		hmac: &hmacauth.Verifier{
			Secret:  cfg.Service.HMACSecret,
			MaxSkew: cfg.Service.HMACClockSkew,
			Logger:  logger,
		},
		metrics:      deps.Metrics,
		logger:       logger,
		framePeriod:  time.Second,
		writeTimeout: 10 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	if deps.Contract != nil {
		s.rpcHealthFn = deps.Contract.Ping
	}

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Service.HTTPPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

// Handler is the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.Handle("POST /connect", s.formGuard(http.HandlerFunc(s.handleFormConnect)))
	mux.Handle("POST /disconnect", s.formGuard(http.HandlerFunc(s.handleFormDisconnect)))
	mux.Handle("POST /enter", s.formGuard(http.HandlerFunc(s.handleFormEnter)))

	signed := s.hmac.Middleware
	mux.HandleFunc("GET /api/v1/view", s.handleView)
	mux.HandleFunc("GET /api/v1/session", s.handleSession)
	mux.Handle("POST /api/v1/session/connect", signed(http.HandlerFunc(s.handleConnect)))
	mux.Handle("POST /api/v1/session/disconnect", signed(http.HandlerFunc(s.handleDisconnect)))
	mux.Handle("POST /api/v1/raffle/enter", signed(http.HandlerFunc(s.handleEnter)))
	mux.HandleFunc("GET /api/v1/raffle/ws", s.handleLive)
	mux.Handle("GET /api/v1/metrics", s.metrics.Handler())
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Service.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", idempotencyHeader, hmacauth.SignatureHeader, hmacauth.TimestampHeader},
	})
	return requestIDMiddleware(s.loggingMiddleware(c.Handler(mux)))
}

func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and ends open live streams and
// background connects.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	return err
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func expanded(r *http.Request) bool {
	return r.URL.Query().Get("connectors") == "1"
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.allowedOrigin(origin, r.Host, true)
}

// allowedOrigin reports whether origin is the server's own host or one of
// the configured origins. The "*" entry only counts when wildcard is set.
func (s *Server) allowedOrigin(origin, host string, wildcard bool) bool {
	for _, allowed := range s.cfg.Service.AllowedOrigins {
		if allowed == origin || (wildcard && allowed == "*") {
			return true
		}
	}
	return origin == "http://"+host || origin == "https://"+host
}

// requestOrigin is the Origin header, or the scheme and host of the Referer
// when a client leaves Origin out.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Scheme == "" || ref.Host == "" {
		return ""
	}
	return ref.Scheme + "://" + ref.Host
}
