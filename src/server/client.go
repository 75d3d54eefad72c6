package server

import (
	"errors"
	"time"

	"volume-spike-detector/src/models"

	"github.com/gorilla/websocket"
)

const (
	clientWriteTimeout = 2 * time.Second
	clientIdleTimeout  = time.Minute
	clientPingEvery    = 54 * time.Second
	clientReadLimit    = 4096
	clientSendBuffer   = 256
)

// dashboardClient is one browser connected to /ws. The hub owns send and is
// the only goroutine that closes it.
type dashboardClient struct {
	server *FastAPIServer
	conn   *websocket.Conn
	addr   string
	send   chan *models.MAlertMessage
}

func newDashboardClient(s *FastAPIServer, conn *websocket.Conn) *dashboardClient {
	return &dashboardClient{
		server: s,
		conn:   conn,
		addr:   conn.RemoteAddr().String(),
		send:   make(chan *models.MAlertMessage, clientSendBuffer),
	}
}

// -----------------------------------------------------------------------------

// listen reads dashboard commands until the socket dies or goes quiet past
// clientIdleTimeout without answering pings.
func (c *dashboardClient) listen() {
	defer c.leave()

	c.conn.SetReadLimit(clientReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(clientIdleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(clientIdleTimeout))
	})

	for {
		var cmd models.MClientCommand
		err := c.conn.ReadJSON(&cmd)
		if err == nil {
			c.server.handleCommand(c, cmd)
			continue
		}

		var closeErr *websocket.CloseError
		switch {
		case errors.As(err, &closeErr):
			if closeErr.Code != websocket.CloseNormalClosure && closeErr.Code != websocket.CloseGoingAway {
				c.server.Logger.Info("Dashboard %s closed with code %d", c.addr, closeErr.Code)
			}
		default:
			// Bad JSON or deadline; either way the client is gone for us
			c.server.Logger.Debug("Dropping dashboard %s: %v", c.addr, err)
		}
		return
	}
}

func (c *dashboardClient) leave() {
	select {
	case c.server.unregister <- c:
	case <-c.server.done:
	}
	_ = c.conn.Close()
	c.server.Logger.Debug("Dashboard %s disconnected", c.addr)
}

// -----------------------------------------------------------------------------

// deliver writes queued messages and keeps the connection alive with pings.
func (c *dashboardClient) deliver() {
	ping := time.NewTicker(clientPingEvery)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, open := <-c.send:
			deadline := time.Now().Add(clientWriteTimeout)
			if !open {
				bye := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = c.conn.WriteControl(websocket.CloseMessage, bye, deadline)
				return
			}
			_ = c.conn.SetWriteDeadline(deadline)
			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.Logger.Info("Dashboard %s write failed: %v", c.addr, err)
				return
			}

		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(clientWriteTimeout)); err != nil {
				return
			}
		}
	}
}
