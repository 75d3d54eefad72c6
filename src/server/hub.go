package server

import (
	"net/http"
	"time"

	"volume-spike-detector/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Alert Hub
// -----------------------------------------------------------------------------

type historyRequest struct {
	client *dashboardClient
	limit  int
}

// runHub owns the client set. Every write to a client's send channel and
// every close of it happens here.
func (s *FastAPIServer) runHub() {
	defer func() {
		for client := range s.clients {
			s.evict(client)
		}
	}()

	for {
		select {
		case <-s.done:
			return

		case joined := <-s.register:
			s.clients[joined] = struct{}{}
			joined.send <- historyMessage(s.recent.GetAll())
			s.Logger.Debug("Dashboard %s connected, %d online", joined.addr, len(s.clients))

		case left := <-s.unregister:
			if _, known := s.clients[left]; known {
				s.evict(left)
			}

		case req := <-s.history:
			if _, known := s.clients[req.client]; !known {
				continue
			}
			select {
			case req.client.send <- historyMessage(s.recent.GetLatest(req.limit)):
			default:
			}

		case ev := <-s.broadcast:
			alert := &models.MAlertMessage{
				Type:      "ALERT",
				Events:    []models.MSpikeEvent{ev},
				Timestamp: time.Now().UnixMilli(),
			}
			for target := range s.clients {
				select {
				case target.send <- alert:
				default:
					s.Logger.Warning("Dashboard %s is not keeping up, disconnecting", target.addr)
					s.evict(target)
				}
			}
		}
		s.connections.Store(int64(len(s.clients)))
	}
}

func (s *FastAPIServer) evict(client *dashboardClient) {
	delete(s.clients, client)
	close(client.send)
}

// -----------------------------------------------------------------------------
// Broadcasting
// -----------------------------------------------------------------------------

// Broadcast records ev and queues it for connected dashboards. Never blocks.
func (s *FastAPIServer) Broadcast(ev models.MSpikeEvent) {
	s.recent.Append(ev)

	select {
	case s.broadcast <- ev:
	default:
		s.Logger.Warning("Dashboard queue full, dropped live update for %s", ev.Symbol)
	}
}

// Seed loads persisted alerts into the replay buffer without broadcasting them.
func (s *FastAPIServer) Seed(events []models.MSpikeEvent) {
	for _, ev := range events {
		s.recent.Append(ev)
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) connectionCount() int {
	return int(s.connections.Load())
}

// -----------------------------------------------------------------------------
// Dashboard Endpoint
// -----------------------------------------------------------------------------

// Dashboards are served from other local ports, so any origin is accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 10,
	WriteBufferSize: 4 << 10,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) serveDashboard(c *gin.Context) {
	conn, upgradeErr := upgrader.Upgrade(c.Writer, c.Request, nil)
	if upgradeErr != nil {
		s.Logger.Warning("Dashboard upgrade from %s failed: %v", c.ClientIP(), upgradeErr)
		return
	}

	client := newDashboardClient(s, conn)
	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.deliver()
	go client.listen()
}

// -----------------------------------------------------------------------------

// handleCommand serves a dashboard request. Only "history" is understood.
func (s *FastAPIServer) handleCommand(client *dashboardClient, cmd models.MClientCommand) {
	if cmd.Command != "history" {
		s.Logger.Debug("Ignoring dashboard command %q", cmd.Command)
		return
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = s.recent.Capacity()
	}

	// The hub owns client.send; ask it to reply
	select {
	case s.history <- historyRequest{client: client, limit: limit}:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------

func historyMessage(events []models.MSpikeEvent) *models.MAlertMessage {
	return &models.MAlertMessage{
		Type:      "HISTORY",
		Events:    events,
		Timestamp: time.Now().UnixMilli(),
	}
}
