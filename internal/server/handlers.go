package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"rafflefront/internal/entry"
	"rafflefront/internal/idempotency"
	"rafflefront/internal/page"
	"rafflefront/internal/wallet"
)

var (
	errNotConnected = errors.New("wallet not connected")
	errFeeUnknown   = errors.New("entrance fee unknown")
	errNotOpen      = errors.New("raffle is not open")
	errInFlight     = errors.New("an entry is already in progress")
)

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := page.Render(w, s.composer.Compose(expanded(r))); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

// handleFormConnect starts connecting in the background and returns to the
// page, which shows Connecting... until the wallet answers.
func (s *Server) handleFormConnect(w http.ResponseWriter, r *http.Request) {
	id := r.PostFormValue("connectorId")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Failures are kept on the session and shown next to the control.
		_ = s.wallet.Connect(s.ctx, id)
	}()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFormDisconnect(w http.ResponseWriter, r *http.Request) {
	s.wallet.Disconnect()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFormEnter(w http.ResponseWriter, r *http.Request) {
	s.entries.Enter()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.composer.Compose(expanded(r)))
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.wallet.Session())
}

type connectRequest struct {
	ConnectorID string `json:"connectorId"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var payload connectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}
	payload.ConnectorID = strings.TrimSpace(payload.ConnectorID)
	if payload.ConnectorID == "" {
		writeError(w, http.StatusBadRequest, errors.New("connectorId is required"))
		return
	}

	if err := s.wallet.Connect(r.Context(), payload.ConnectorID); err != nil {
		writeError(w, connectStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.wallet.Session())
}

func connectStatus(err error) int {
	switch {
	case errors.Is(err, wallet.ErrUnknownConnector):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, wallet.ErrConnectInProgress),
		errors.Is(err, wallet.ErrAlreadyConnected),
		errors.Is(err, wallet.ErrConnectAborted):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrConnectorUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.wallet.Disconnect()
	writeJSON(w, http.StatusOK, s.wallet.Session())
}

type enterResponse struct {
	Error string      `json:"error,omitempty"`
	Entry entry.State `json:"entry"`
}

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))

	if key != "" {
		if existing, _ := s.store.Get(ctx, key); existing != nil {
			s.metrics.IncReplay()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(existing.StatusCode)
			_, _ = w.Write(existing.Response)
			return
		}
	}

	if !s.entries.Enter() {
		writeJSON(w, http.StatusConflict, enterResponse{
			Error: s.enterBlocker().Error(),
			Entry: s.entries.State(),
		})
		return
	}

	body, _ := json.Marshal(enterResponse{Entry: s.entries.State()})
	if key != "" {
		if err := idempotency.Remember(ctx, s.store, time.Now(), s.cfg.Service.IdempotencyWindow, key, http.StatusAccepted, body); err != nil {
			s.logger.Warn("store idempotency record", zap.String("key", key), zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write(body)
}

// enterBlocker names the first unmet entry precondition.
func (s *Server) enterBlocker() error {
	if s.entries.State().InFlight() {
		return errInFlight
	}
	if !s.wallet.Session().Connected() {
		return errNotConnected
	}
	snap := s.view.Snapshot()
	if _, ok := snap.Fee(); !ok {
		return errFeeUnknown
	}
	if !snap.Open() {
		return errNotOpen
	}
	return errInFlight
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	healthy := true

	rpcInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{Connected: true}

	if s.rpcHealthFn != nil {
		start := time.Now()
		rpcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rpcHealthFn(rpcCtx); err != nil {
			rpcInfo.Connected = false
			rpcInfo.Error = err.Error()
			healthy = false
		} else {
			rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	}

	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	resp := struct {
		Status   string        `json:"status"`
		Chain    string        `json:"chain"`
		ChainID  int64         `json:"chain_id"`
		Contract string        `json:"contract"`
		RPC      any           `json:"rpc"`
		Wallet   wallet.Status `json:"wallet"`
	}{
		Status:   status,
		Chain:    s.cfg.Chain.Descriptor.Name,
		ChainID:  s.cfg.Chain.Descriptor.ChainID,
		Contract: s.cfg.Raffle.Address.Hex(),
		RPC:      rpcInfo,
		Wallet:   s.wallet.Session().Status,
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
