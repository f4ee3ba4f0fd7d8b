package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/domain/port"
)

const (
	writeWait     = 5 * time.Second
	broadcastSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn      *websocket.Conn
	sessionID string
}

// Hub рассылает события обработки по websocket-подписчикам сессии
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan entity.ScanEvent
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan entity.ScanEvent, broadcastSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run обслуживает подписки до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for c := range h.clients {
				c.conn.Close()
				delete(h.clients, c)
			}
			h.mutex.Unlock()
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug("events client connected", "session", c.sessionID, "total", total)

		case c := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.conn.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug("events client disconnected", "session", c.sessionID, "total", total)

		case event := <-h.broadcast:
			h.send(event)
		}
	}
}

func (h *Hub) send(event entity.ScanEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		if c.sessionID != event.SessionID {
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warn("error sending event", "session", c.sessionID, "error", err)
			delete(h.clients, c)
			c.conn.Close()
		}
	}
}

// Publish ставит событие в очередь, при переполнении событие отбрасывается
func (h *Hub) Publish(event entity.ScanEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("events queue is full, event dropped", "type", event.Type, "session", event.SessionID)
	}
}

// ServeWS подключает websocket-клиента к событиям сессии и держит соединение до закрытия
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "error", err)
		return
	}

	c := &client{conn: conn, sessionID: sessionID}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
			conn.Close()
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("events client read error", "session", sessionID, "error", err)
			}
			return
		}
	}
}

// ClientCount число подключённых клиентов
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

var _ port.EventPublisher = (*Hub)(nil)
