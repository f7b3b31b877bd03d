// Package sse implements a Server-Sent Events broker that streams link index
// changes to HTTP clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/starlinks/internal/engine"
)

// EventSlugsChanged tells clients to refetch the slug list. It follows index
// changes and is throttled.
const EventSlugsChanged = "slugs.changed"

const clientBuffer = 64

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame renders e in the text/event-stream wire format.
func (e Event) frame() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", e.Type, payload), nil
}

// Broker fans events out to SSE clients.
//
// One goroutine owns the client set, the slugs.changed throttle and the last
// index.ready frame. Every public method talks to it over channels. Clients
// that subscribe after the index is built receive the index.ready frame
// first.
type Broker struct {
	throttle time.Duration

	subscribe   chan chan []byte
	unsubscribe chan chan []byte
	events      chan Event
	index       chan engine.Event
	count       chan chan int

	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that sends at most one slugs.changed event per
// throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		throttle:    throttle,
		subscribe:   make(chan chan []byte),
		unsubscribe: make(chan chan []byte),
		events:      make(chan Event, 256),
		index:       make(chan engine.Event, 256),
		count:       make(chan chan int),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastSlugs time.Time
		ready     []byte
	)

	send := func(ch chan []byte, msg []byte) {
		select {
		case ch <- msg:
		default:
			// Slow client; drop rather than stall the loop.
		}
	}
	broadcast := func(ev Event) []byte {
		msg, err := ev.frame()
		if err != nil {
			return nil
		}
		for ch := range clients {
			send(ch, msg)
		}
		return msg
	}

	for {
		select {
		case <-b.stop:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribe:
			clients[ch] = struct{}{}
			if ready != nil {
				send(ch, ready)
			}

		case ch := <-b.unsubscribe:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.events:
			broadcast(ev)

		case ev := <-b.index:
			msg := broadcast(Event{Type: ev.Kind, Data: ev})
			if ev.Kind == engine.EventReady && msg != nil {
				ready = msg
			}

			if now := time.Now(); now.Sub(lastSlugs) >= b.throttle {
				lastSlugs = now
				broadcast(Event{Type: EventSlugsChanged, Data: struct{}{}})
			}

		case resp := <-b.count:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed by
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribe <- ch:
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
	case b.unsubscribe <- ch:
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
	case b.count <- resp:
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
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.stopped:
	}
}

// PublishIndexEvent forwards an engine event and a throttled slugs.changed
// event. It has the shape of engine.Listener.
func (b *Broker) PublishIndexEvent(ev engine.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.index <- ev:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects or the broker
// closes (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
