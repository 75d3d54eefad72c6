package fyers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"volume-spike-detector/src/helpers"
	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"

	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval     = 20 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
)

type subscribeRequest struct {
	Type     string   `json:"type"`
	Symbols  []string `json:"symbols"`
	DataType string   `json:"data_type"`
}

// WSFeed is a single websocket connection to the Fyers data socket.
// It does not reconnect; the supervisor replaces the whole session instead.
type WSFeed struct {
	Config       models.MFeedConfig
	Auth         interfaces.IAuthenticator
	Logger       *logger.Logger
	PingInterval time.Duration
	WriteTimeout time.Duration

	connMu  sync.Mutex
	conn    *websocket.Conn
	closed  atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
	handler interfaces.IFeedHandler
}

// -----------------------------------------------------------------------------

func NewWSFeed(cfg models.MFeedConfig, auth interfaces.IAuthenticator, log *logger.Logger) *WSFeed {
	return &WSFeed{
		Config:       cfg,
		Auth:         auth,
		Logger:       log,
		PingInterval: defaultPingInterval,
		WriteTimeout: defaultWriteTimeout,
		done:         make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Connect dials the socket and starts the read and ping loops. Handler
// callbacks run on the read goroutine.
func (f *WSFeed) Connect(ctx context.Context, handler interfaces.IFeedHandler) error {
	if f.closed.Load() {
		return helpers.NewFeedError("connect on closed feed", nil)
	}

	header := http.Header{}
	header.Set("Authorization", fmt.Sprintf("%s:%s", f.Config.ClientID, f.Auth.AccessToken()))

	dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, f.Config.URL, header)
	if err != nil {
		if resp != nil {
			return helpers.NewFeedError(fmt.Sprintf("websocket dial failed with HTTP %d", resp.StatusCode), err)
		}
		return helpers.NewFeedError("websocket dial failed", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.handler = handler
	f.connMu.Unlock()

	f.Logger.Info("Feed connected to %s", f.Config.URL)

	f.wg.Add(2)
	go f.readLoop(conn)
	go f.pingLoop(conn)
	return nil
}

// -----------------------------------------------------------------------------

func (f *WSFeed) Subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return helpers.NewValidationError("no symbols to subscribe")
	}

	f.connMu.Lock()
	defer f.connMu.Unlock()

	if f.conn == nil || f.closed.Load() {
		return helpers.NewFeedError("subscribe on disconnected feed", nil)
	}

	dataType := f.Config.DataType
	if dataType == "" {
		dataType = "SymbolUpdate"
	}

	f.conn.SetWriteDeadline(time.Now().Add(f.WriteTimeout))
	if err := f.conn.WriteJSON(subscribeRequest{Type: "subscribe", Symbols: symbols, DataType: dataType}); err != nil {
		return helpers.NewFeedError("write subscribe", err)
	}

	f.Logger.Info("Subscribed to %d symbols (%s)", len(symbols), dataType)
	return nil
}

// -----------------------------------------------------------------------------

// Close sends a close frame, drops the connection and waits for the loops.
// It must not be called from a handler callback.
func (f *WSFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	close(f.done)

	f.connMu.Lock()
	conn := f.conn
	f.connMu.Unlock()

	if conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := conn.Close()

	f.wg.Wait()
	f.Logger.Info("Feed closed")
	return err
}

// -----------------------------------------------------------------------------

func (f *WSFeed) readLoop(conn *websocket.Conn) {
	defer f.wg.Done()
	defer f.handler.OnClose()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			var netErr *websocket.CloseError
			if errors.As(err, &netErr) {
				f.handler.OnError(helpers.NewFeedError(fmt.Sprintf("feed closed by server (%d)", netErr.Code), err))
				return
			}
			f.handler.OnError(helpers.NewFeedError("feed read failed", err))
			return
		}
		f.handler.OnTick(data)
	}
}

// -----------------------------------------------------------------------------

func (f *WSFeed) pingLoop(conn *websocket.Conn) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(f.WriteTimeout)); err != nil {
				f.Logger.Warning("Feed ping failed: %v", err)
				return
			}
		}
	}
}
