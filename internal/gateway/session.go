package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adomitis8/password-alert/internal/engine"
	"github.com/adomitis8/password-alert/internal/wire"
)

// session is one connected tab.
type session struct {
	tabID   string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// write sends one message to the tab. Writes are serialized because
// state pushes and check results come from different goroutines.
func (s *session) write(msg wire.ServerMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		_ = s.conn.Close()
		return err
	}
	defer func() { _ = s.conn.SetWriteDeadline(time.Time{}) }()

	err := s.conn.WriteJSON(msg)
	if err != nil {
		_ = s.conn.Close()
	}
	return err
}

// readLoop dispatches the tab's requests until the connection drops,
// then discards the tab's engine state.
func (g *Gateway) readLoop(sess *session) {
	defer func() {
		_ = sess.conn.Close()
		g.hub.mu.Lock()
		delete(g.hub.sessions, sess.tabID)
		g.hub.mu.Unlock()
		g.engine.DropTab(sess.tabID)
		g.log.Info("tab disconnected", "tab_id", sess.tabID)
	}()

	for {
		var req wire.Request
		if err := sess.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.log.Warn("tab read error", "tab_id", sess.tabID, "error", err)
			}
			return
		}
		g.dispatch(sess, req)
	}
}

// dispatch routes one request to the engine. Unknown actions are
// dropped quietly: in-page scripts of older or newer versions may speak
// a slightly different dialect, and noise must never break detection.
func (g *Gateway) dispatch(sess *session, req wire.Request) {
	// Engine operations outlive the connection on purpose: a save that
	// started must finish even if the tab closes mid-flight.
	ctx := context.Background()
	page := engine.PageContext{Referer: req.Referer, URL: req.URL}

	switch req.Action {
	case wire.ActionStatusRequest:
		g.pushState(sess)

	case wire.ActionSetPossiblePassword:
		g.engine.SetPossiblePassword(sess.tabID, req.Email, req.Password)

	case wire.ActionDeletePossiblePassword:
		g.engine.DeletePossiblePassword(sess.tabID)

	case wire.ActionSavePossiblePassword:
		if err := g.engine.SavePossiblePassword(ctx, sess.tabID); err != nil {
			g.log.Error("failed to save credential", "tab_id", sess.tabID, "error", err)
		}

	case wire.ActionCheckPassword:
		match := g.engine.CheckPassword(ctx, sess.tabID, req.Password, page)
		if err := sess.write(wire.NewResultMessage(req.ID, match)); err != nil {
			g.log.Warn("failed to send check result", "tab_id", sess.tabID, "error", err)
		}

	case wire.ActionOTPAlert:
		g.engine.CheckOTP(ctx, sess.tabID, page)

	case wire.ActionClearOTPMode:
		g.engine.ClearOTPMode(sess.tabID)

	case wire.ActionLooksLikeGoogle:
		g.engine.LooksLikeGoogle(ctx, sess.tabID, page)

	default:
		g.log.Debug("unknown action", "tab_id", sess.tabID, "action", req.Action)
	}
}
