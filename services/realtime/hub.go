package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/meryambn/mimiScaleUp-sub005/core"
)

var errHubClosed = errors.New("realtime hub closed")

// Handler processes the events a connected user sends.
type Handler interface {
	HandleEvent(ctx context.Context, from core.Identity, event string, data json.RawMessage) error
}

// Frame is the envelope of every websocket message, in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub keeps the live connections of every identity and pushes events to them.
// A user may hold several connections; each gets its own bounded send buffer.
type Hub struct {
	conf    core.RealtimeConfig
	logger  core.Logger
	metrics *hubMetrics

	mu      sync.RWMutex
	clients map[core.Identity]map[uuid.UUID]*client
	closed  bool
	wg      sync.WaitGroup
}

var _ core.Pusher = (*Hub)(nil) // interface compliance check

// NewHub creates a hub. Metrics are only collected when `registry` is not nil.
func NewHub(conf core.RealtimeConfig, registry prometheus.Registerer, logger core.Logger) *Hub {
	if conf.SendBufferSize <= 0 {
		conf.SendBufferSize = 1
	}
	h := &Hub{
		conf:    conf,
		logger:  logger,
		clients: make(map[core.Identity]map[uuid.UUID]*client),
	}
	if registry != nil {
		h.initMetrics(registry)
	}
	return h
}

func (h *Hub) register(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHubClosed
	}
	set, ok := h.clients[c.identity]
	if !ok {
		set = make(map[uuid.UUID]*client)
		h.clients[c.identity] = set
	}
	set[c.id] = c
	h.wg.Add(1)
	if h.metrics != nil {
		h.metrics.connections.Inc()
	}
	return nil
}

// unregister removes `c` from the hub and stops its writer. It is safe to call more than once.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.identity]; ok {
		if _, ok = set[c.id]; ok {
			delete(set, c.id)
			if len(set) == 0 {
				delete(h.clients, c.identity)
			}
			if h.metrics != nil {
				h.metrics.connections.Dec()
			}
		}
	}
	h.mu.Unlock()
	c.close()
}

// IsOnline reports whether `id` holds at least one live connection.
func (h *Hub) IsOnline(id core.Identity) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[id]) > 0
}

// Push queues `event` on every connection of `to`. It never blocks: a connection
// whose buffer is full is dropped. Returns whether at least one connection took the event.
func (h *Hub) Push(to core.Identity, event string, payload interface{}) bool {
	msg, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error("encoding realtime frame", errors.Wrap(err, event))
		return false
	}

	// copy the client list so that delivery happens outside the lock
	h.mu.RLock()
	set := h.clients[to]
	targets := make([]*client, 0, len(set))
	for _, c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var delivered bool
	for _, c := range targets {
		if c.deliver(msg) {
			delivered = true
			if h.metrics != nil {
				h.metrics.delivered.WithLabelValues(event).Inc()
			}
			continue
		}
		h.unregister(c)
		if h.metrics != nil {
			h.metrics.dropped.WithLabelValues(event).Inc()
		}
		h.logger.Debug("realtime client dropped", map[string]interface{}{"client": c.id.String(), "event": event}, to)
	}
	return delivered
}

// ServeConn attaches an upgraded websocket connection to `id` and serves it until it closes.
// Inbound frames are handed over to `handler`; its failures are answered with an error frame.
func (h *Hub) ServeConn(ctx context.Context, conn *websocket.Conn, id core.Identity, handler Handler) error {
	c := newClient(conn, id, h.conf.SendBufferSize)
	if err := h.register(c); err != nil {
		_ = conn.Close()
		return err
	}
	defer h.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(h.conf)
	}()

	h.logger.Debug("realtime client connected", map[string]interface{}{"client": c.id.String()}, id)
	c.readPump(ctx, h, handler)

	h.unregister(c)
	<-writerDone
	_ = conn.Close()
	h.logger.Debug("realtime client disconnected", map[string]interface{}{"client": c.id.String()}, id)
	return nil
}

// replyError sends an error frame to a single connection.
func (h *Hub) replyError(c *client, err error) {
	msg := "internal server error"
	switch {
	case core.IsValidation(err), core.IsNotFound(err), core.IsConflict(err):
		msg = errors.Cause(err).Error()
	default:
		h.logger.Error("handling realtime event", err, c.identity)
	}
	frame, encErr := encodeFrame(core.EventError, map[string]string{"error": msg})
	if encErr != nil {
		return
	}
	if !c.deliver(frame) {
		h.unregister(c)
	}
}

// Shutdown closes every connection and waits for them to be released, or for ctx to be done.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, set := range h.clients {
		for _, c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for realtime clients")
	}
}

func encodeFrame(event string, payload interface{}) ([]byte, error) {
	f := Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		f.Data = data
	}
	return json.Marshal(f)
}
