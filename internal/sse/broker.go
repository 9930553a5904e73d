// Package sse implements a Server-Sent Events broker that pushes surface
// events to the surface host.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeRedraw        = "surface.redraw"
	TypeRemoved       = "surface.removed"
	TypePinRequested  = "surface.pin_requested"
	TypeForeground    = "service.foreground"
	defaultKeepAlive  = 15 * time.Second
	clientBufferSize  = 64
	publishBufferSize = 256
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type redrawReq struct {
	surfaceID   int
	fingerprint string
	data        interface{}
}

// op is one queued broker operation. Exactly one field is set. A single
// queue keeps operations from one caller in order, so a client subscribed
// after a publish sees it through replay, never twice.
type op struct {
	event       *Event
	redraw      *redrawReq
	removed     []int
	subscribe   chan []byte
	unsubscribe chan []byte
	count       chan int
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + last redraw per surface). Public methods communicate with this loop
// through channels, so no mutexes are required. A new client first receives the
// last redraw of every live surface.
type Broker struct {
	keepAlive time.Duration

	opCh chan op

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. Idle streams get a comment line every
// keepAlive.
func NewBroker(keepAlive time.Duration) *Broker {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	b := &Broker{
		keepAlive: keepAlive,
		opCh:      make(chan op, publishBufferSize),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	go b.run()
	return b
}

// lastRedraw is the most recent redraw sent for one surface.
type lastRedraw struct {
	fingerprint string
	msg         []byte
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	latest := make(map[int]lastRedraw)

	send := func(raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	broadcast := func(event Event) []byte {
		raw, err := encode(event)
		if err != nil {
			return nil
		}
		send(raw)
		return raw
	}

	// replay hands a new client the current redraw of every surface, in
	// surface id order.
	replay := func(ch chan []byte) {
		ids := make([]int, 0, len(latest))
		for id := range latest {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			select {
			case ch <- latest[id].msg:
			default:
				return
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			// Subscriptions still queued get a closed channel too.
			for {
				select {
				case o := <-b.opCh:
					if o.subscribe != nil {
						close(o.subscribe)
					}
				default:
					return
				}
			}

		case o := <-b.opCh:
			switch {
			case o.subscribe != nil:
				clients[o.subscribe] = struct{}{}
				replay(o.subscribe)

			case o.unsubscribe != nil:
				if _, ok := clients[o.unsubscribe]; ok {
					delete(clients, o.unsubscribe)
					close(o.unsubscribe)
				}

			case o.count != nil:
				o.count <- len(clients)

			case o.event != nil:
				broadcast(*o.event)

			case o.redraw != nil:
				req := o.redraw
				prev, seen := latest[req.surfaceID]
				if seen && req.fingerprint != "" && prev.fingerprint == req.fingerprint {
					continue
				}
				if raw := broadcast(Event{Type: TypeRedraw, Data: req.data}); raw != nil {
					latest[req.surfaceID] = lastRedraw{fingerprint: req.fingerprint, msg: raw}
				}

			default:
				for _, id := range o.removed {
					delete(latest, id)
				}
				broadcast(Event{Type: TypeRemoved, Data: map[string][]int{"surface_ids": o.removed}})
			}
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBufferSize)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.opCh <- op{subscribe: ch}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.opCh <- op{unsubscribe: ch}:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.opCh <- op{count: resp}:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.opCh <- op{event: &event}:
	case <-b.stopped:
	}
}

// PublishRedraw broadcasts a surface.redraw event unless the previous redraw
// of the same surface carried the same fingerprint.
func (b *Broker) PublishRedraw(surfaceID int, fingerprint string, data interface{}) {
	if b.closed.Load() {
		return
	}
	select {
	case b.opCh <- op{redraw: &redrawReq{surfaceID: surfaceID, fingerprint: fingerprint, data: data}}:
	case <-b.stopped:
	}
}

// PublishRemoved broadcasts a surface.removed event and forgets the redraw
// history of those surfaces.
func (b *Broker) PublishRemoved(ids []int) {
	if b.closed.Load() || len(ids) == 0 {
		return
	}
	select {
	case b.opCh <- op{removed: append([]int(nil), ids...)}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/host/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
