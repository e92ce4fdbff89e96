package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rafflefront/internal/entry"
	"rafflefront/internal/page"
	"rafflefront/internal/readview"
	"rafflefront/internal/wallet"
)

// frame is one live view update: the model and its rendered fragment.
type frame struct {
	Model page.Model `json:"model"`
	HTML  string     `json:"html"`
}

// handleLive streams a frame every framePeriod and after every change of the
// session, the read view or the entry flow, until the client goes away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.metrics.ViewerOpened()
	defer s.metrics.ViewerClosed()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// Inbound messages are ignored; a read error means the peer is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}
	defer s.wallet.Subscribe(func(wallet.Session) { notify() })()
	defer s.view.Subscribe(func(readview.Snapshot) { notify() })()
	defer s.entries.Subscribe(func(entry.State) { notify() })()

	exp := expanded(r)
	err = readview.Watch(ctx, s.framePeriod, changes, func(time.Time) error {
		m := s.composer.Compose(exp)
		html, err := page.Fragment(m)
		if err != nil {
			return err
		}
		if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
		return conn.WriteJSON(frame{Model: m, HTML: html})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("live view closed", zap.Error(err))
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
