package booking

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"servicedesk/metrics"
	"servicedesk/utils"
)

const (
	liveSendBuffer   = 256
	liveWriteTimeout = 10 * time.Second
)

type liveClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// LiveHub pushes booking events to connected dashboard websockets. Each
// client has its own buffered queue drained by a write pump, so a slow
// reader never blocks Broadcast; a client whose queue is full is dropped.
type LiveHub struct {
	upgrader websocket.Upgrader
	log      *logrus.Logger

	mu      sync.Mutex
	clients map[string]*liveClient
}

// NewLiveHub accepts upgrades whose Origin passes checkOrigin; nil allows all.
func NewLiveHub(log *logrus.Logger, checkOrigin func(r *http.Request) bool) *LiveHub {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &LiveHub{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		log:      log,
		clients:  make(map[string]*liveClient),
	}
}

// GET /api/live/bookings
func (h *LiveHub) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("[live] websocket upgrade failed")
		return
	}

	c := &liveClient{
		id:   utils.GetUUID(),
		conn: conn,
		send: make(chan []byte, liveSendBuffer),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	metrics.LiveClients.Inc()
	h.log.WithField("client", c.id).Debug("[live] client connected")

	go h.writePump(c)
	h.readPump(c)
}

func (h *LiveHub) writePump(c *liveClient) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.WithError(err).WithField("client", c.id).Debug("[live] write failed")
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(time.Second))
}

// readPump keeps the connection open until the client goes away.
func (h *LiveHub) readPump(c *liveClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
	c.conn.Close()
}

// dropLocked unregisters c and closes its queue, which stops its write pump.
// h.mu must be held.
func (h *LiveHub) dropLocked(c *liveClient) {
	if h.clients[c.id] != c {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	metrics.LiveClients.Dec()
	h.log.WithField("client", c.id).Debug("[live] client disconnected")
}

// Broadcast queues msg for every client without waiting on the network.
func (h *LiveHub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.WithField("client", c.id).Warn("[live] client too slow; dropping")
			h.dropLocked(c)
		}
	}
}

func (h *LiveHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *LiveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		h.dropLocked(c)
	}
}
