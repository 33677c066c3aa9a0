// Package ws pushes analysis progress events to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ContractScan/internal/domain/models"
	domrepo "ContractScan/internal/domain/repository"
	applogger "ContractScan/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

type message struct {
	contract string
	payload  []byte
}

// Hub fans progress events out to connected clients. A client may subscribe to a
// single contract date with ?contract_date=MM/DD/YYYY; otherwise it receives everything.
type Hub struct {
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan message
	quit       chan struct{}
	done       chan struct{}
	once       sync.Once

	mu      sync.RWMutex
	clients map[*client]struct{}

	l *applogger.Logger
}

var _ domrepo.ProgressNotifier = (*Hub)(nil)

func NewHub(l *applogger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message, 256),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		l:          l.With(applogger.String("component", "ws.hub")),
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/progress", h.Serve)
}

func (h *Hub) Start() error {
	go h.run()
	return nil
}

// Stop closes every client connection and ends the hub loop.
func (h *Hub) Stop(ctx context.Context) error {
	h.once.Do(func() { close(h.quit) })
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify queues ev for broadcast. Events are dropped when the hub is saturated.
func (h *Hub) Notify(_ context.Context, ev models.ProgressEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.l.Warn("progress event encode failed", applogger.Error(err))
		return
	}
	select {
	case h.broadcast <- message{contract: ev.ContractDate, payload: b}:
	default:
		h.l.Warn("progress event dropped", applogger.String("stage", ev.Stage))
	}
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.l.Info("progress hub stopped")
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.l.Info("progress subscriber connected",
				applogger.String("client_id", c.id),
				applogger.String("remote", c.remote),
				applogger.Int("clients", n))
		case c := <-h.unregister:
			h.drop(c)
		case m := <-h.broadcast:
			h.mu.RLock()
			var slow []*client
			for c := range h.clients {
				if c.contract != "" && c.contract != m.contract {
					continue
				}
				select {
				case c.send <- m.payload:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.l.Warn("progress subscriber too slow, disconnecting", applogger.String("client_id", c.id))
				h.drop(c)
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Serve upgrades the request and attaches the connection to the hub.
func (h *Hub) Serve(c echo.Context) error {
	contract := c.QueryParam("contract_date")
	if contract != "" {
		d, err := models.ParseContractDate(contract)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		contract = d.Format("2006-01-02")
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	cl := &client{
		id:       uuid.NewString(),
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		contract: contract,
		remote:   c.RealIP(),
	}
	select {
	case h.register <- cl:
	case <-h.quit:
		_ = conn.Close()
		return nil
	}
	go cl.writePump()
	go cl.readPump()
	return nil
}

type client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	contract string
	remote   string
}

// readPump only services control frames; subscribers never send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.l.Debug("progress subscriber read error", applogger.String("client_id", c.id), applogger.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
