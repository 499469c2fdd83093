// Package ws pushes refreshed signals to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/logger"
	"SignalDesk/pkg/util"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 1024
	sendBuffer = 16
)

var (
	wsClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signaldesk_ws_clients",
		Help: "Connected websocket clients",
	})
	wsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "signaldesk_ws_dropped_clients_total",
		Help: "Clients disconnected because their send buffer was full",
	})
	metricsOnce sync.Once
)

// Envelope is the frame written to subscribers.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Signals   []models.Signal `json:"signals"`
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	symbols []string
}

func (c *client) wants(symbol string) bool {
	return len(c.symbols) == 0 || slices.Contains(c.symbols, symbol)
}

// SignalHub fans every published batch out to the connected clients.
// New clients receive the last batch right after connecting.
type SignalHub struct {
	log      *logger.Logger
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  []models.Signal
	closed  bool
}

var _ repository.SignalPublisher = (*SignalHub)(nil)

type Option func(*SignalHub)

// WithAllowedOrigins restricts upgrades to the listed origins. Empty allows all.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *SignalHub) {
		if len(origins) == 0 {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(origins, r.Header.Get("Origin"))
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *SignalHub) { h.now = now }
}

func NewSignalHub(l *logger.Logger, opts ...Option) *SignalHub {
	metricsOnce.Do(func() { prometheus.MustRegister(wsClients, wsDropped) })
	if l == nil {
		l = logger.Nop()
	}
	h := &SignalHub{
		log: l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *SignalHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/signals", h.Serve)
}

// Serve upgrades the request. ?symbols=QQQ,NVDA limits the stream to those symbols.
func (h *SignalHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", logger.Error(err))
		return nil
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	for _, s := range util.SplitList(c.QueryParam("symbols")) {
		cl.symbols = append(cl.symbols, strings.ToUpper(s))
	}
	if !h.add(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return nil
	}
	h.log.Debug("ws client connected", logger.Strings("symbols", cl.symbols), logger.Int("clients", h.Clients()))

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

func (h *SignalHub) add(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	wsClients.Inc()
	if len(h.latest) > 0 {
		if frame, ok := h.frame(cl, h.latest); ok {
			cl.send <- frame
		}
	}
	return true
}

// remove is safe to call more than once per client.
func (h *SignalHub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
	wsClients.Dec()
}

// Clients returns the number of connected clients.
func (h *SignalHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// frame encodes the signals cl subscribed to. ok is false when none match.
func (h *SignalHub) frame(cl *client, signals []models.Signal) ([]byte, bool) {
	out := signals
	if len(cl.symbols) > 0 {
		out = nil
		for _, s := range signals {
			if cl.wants(s.Symbol) {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
	}
	b, err := json.Marshal(Envelope{Type: "signals", Timestamp: h.now(), Signals: out})
	if err != nil {
		h.log.Error("ws encode", logger.Error(err))
		return nil, false
	}
	return b, true
}

// PublishSignals broadcasts signals. Clients that cannot keep up are dropped.
func (h *SignalHub) PublishSignals(_ context.Context, signals []models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = append([]models.Signal(nil), signals...)

	for cl := range h.clients {
		frame, ok := h.frame(cl, signals)
		if !ok {
			continue
		}
		select {
		case cl.send <- frame:
		default:
			delete(h.clients, cl)
			close(cl.send)
			wsClients.Dec()
			wsDropped.Inc()
			h.log.Warn("ws client too slow, dropped")
		}
	}
	return nil
}

// Close disconnects every client and rejects new ones.
func (h *SignalHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
		wsClients.Dec()
	}
	return nil
}

func (h *SignalHub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("ws write", logger.Error(err))
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames; client messages are ignored.
func (h *SignalHub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		_ = cl.conn.Close()
		h.log.Debug("ws client disconnected")
	}()

	cl.conn.SetReadLimit(readLimit)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
