package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/adomitis8/password-alert/internal/config"
	"github.com/adomitis8/password-alert/internal/engine"
	"github.com/adomitis8/password-alert/internal/wire"
)

const (
	// maxRequestBytes caps one websocket message. The largest legitimate
	// request is an action plus a page URL, so anything near the cap is
	// garbage, not traffic worth buffering.
	maxRequestBytes = 64 << 10

	// writeTimeout bounds one state or result write to a tab.
	writeTimeout = 10 * time.Second

	// shutdownTimeout bounds the HTTP listener drain on shutdown.
	shutdownTimeout = 5 * time.Second
)

// wsUpgrader accepts any origin: pages of every domain must be able to
// reach the gateway, and the loopback bind is the actual access control.
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Options configures a Gateway.
type Options struct {
	// Engine handles every request the gateway dispatches.
	Engine *engine.Engine

	// BindAddress is the "host:port" to listen on. Defaults to
	// config.DefaultBindAddress.
	BindAddress string

	// Logger receives gateway diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// Gateway is the websocket server in-page scripts talk to. Each
// connection is one tab: the gateway assigns the tab identifier at
// connect time and tears down the tab's engine state when the
// connection drops, which is also how navigation away discards a staged
// credential.
type Gateway struct {
	engine *engine.Engine
	bind   string
	log    *slog.Logger
	hub    *hub
}

// hub tracks connected tabs.
type hub struct {
	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

// New creates a Gateway for the given engine.
func New(opts Options) *Gateway {
	if opts.BindAddress == "" {
		opts.BindAddress = config.DefaultBindAddress
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Gateway{
		engine: opts.Engine,
		bind:   opts.BindAddress,
		log:    opts.Logger,
		hub:    &hub{sessions: map[string]*session{}},
	}
}

// Run serves until ctx is cancelled, then drains the listener and closes
// every connected tab.
func (g *Gateway) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tabs/connect", g.handleConnect)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              g.bind,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		g.log.Info("gateway listening", "addr", g.bind)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to serve gateway: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		err := shutdownServer(server, shutdownTimeout)
		g.closeSessions()
		g.hub.wg.Wait()
		return err
	case err := <-errCh:
		g.closeSessions()
		g.hub.wg.Wait()
		return err
	}
}

// handleConnect upgrades the connection and starts the tab's read loop.
func (g *Gateway) handleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxRequestBytes)

	sess := &session{tabID: uuid.NewString(), conn: conn}
	g.hub.mu.Lock()
	g.hub.sessions[sess.tabID] = sess
	g.hub.mu.Unlock()
	g.log.Info("tab connected", "tab_id", sess.tabID)

	g.hub.wg.Add(1)
	go func() {
		defer g.hub.wg.Done()
		g.readLoop(sess)
	}()
}

// NotifyTab implements engine.Notifier.
func (g *Gateway) NotifyTab(tabID string) {
	g.hub.mu.Lock()
	sess := g.hub.sessions[tabID]
	g.hub.mu.Unlock()
	if sess == nil {
		return
	}
	g.pushState(sess)
}

// NotifyAll implements engine.Notifier.
func (g *Gateway) NotifyAll() {
	g.hub.mu.Lock()
	sessions := make([]*session, 0, len(g.hub.sessions))
	for _, sess := range g.hub.sessions {
		sessions = append(sessions, sess)
	}
	g.hub.mu.Unlock()

	for _, sess := range sessions {
		g.pushState(sess)
	}
}

func (g *Gateway) pushState(sess *session) {
	state := g.engine.StateFor(sess.tabID)
	if err := sess.write(wire.NewStateMessage(state)); err != nil {
		g.log.Warn("failed to push state", "tab_id", sess.tabID, "error", err)
	}
}

func (g *Gateway) closeSessions() {
	g.hub.mu.Lock()
	sessions := make([]*session, 0, len(g.hub.sessions))
	for _, sess := range g.hub.sessions {
		sessions = append(sessions, sess)
	}
	g.hub.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.conn.Close()
	}
}

func shutdownServer(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down gateway: %w", err)
	}
	return nil
}
