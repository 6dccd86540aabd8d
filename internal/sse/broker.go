// Package sse streams post change notifications to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypePostCreated    = "post.created"
	TypePostUpdated    = "post.updated"
	TypePostDeleted    = "post.deleted"
	TypeListingUpdated = "listing.updated"
)

const (
	defaultThrottle  = 2 * time.Second
	defaultKeepAlive = 25 * time.Second
	clientBuffer     = 64
)

// Event is one message broadcast to every client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type postChange struct {
	kind string
	path string
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets how often idle streams receive a comment line.
// Zero disables keep-alives.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		b.keepAlive = d
	}
}

// Broker fans events out to connected clients.
//
// The client set, the event sequence and the listing throttle belong to a
// single loop goroutine; every public method talks to it over channels.
type Broker struct {
	listingEvery time.Duration
	keepAlive    time.Duration

	join    chan chan []byte
	leave   chan chan []byte
	events  chan Event
	changes chan postChange
	counts  chan chan int

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker starts a broker that emits listing.updated at most once per
// listingThrottle.
func NewBroker(listingThrottle time.Duration, opts ...Option) *Broker {
	if listingThrottle <= 0 {
		listingThrottle = defaultThrottle
	}
	b := &Broker{
		listingEvery: listingThrottle,
		keepAlive:    defaultKeepAlive,
		join:         make(chan chan []byte),
		leave:        make(chan chan []byte),
		events:       make(chan Event, 256),
		changes:      make(chan postChange, 256),
		counts:       make(chan chan int),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)

	clients := make(map[chan []byte]struct{})
	var seq uint64
	var lastListing time.Time

	send := func(ev Event) {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return
		}
		seq++
		frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Type, data))
		for ch := range clients {
			select {
			case ch <- frame:
			default:
				// Slow client; drop the frame rather than stall everyone.
			}
		}
	}

	for {
		select {
		case <-b.quit:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.join:
			clients[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.events:
			send(ev)

		case c := <-b.changes:
			typ, ok := changeType(c.kind)
			if !ok {
				continue
			}
			send(Event{Type: typ, Data: map[string]string{"path": c.path}})
			if now := time.Now(); now.Sub(lastListing) >= b.listingEvery {
				lastListing = now
				send(Event{Type: TypeListingUpdated, Data: map[string]string{}})
			}

		case resp := <-b.counts:
			resp <- len(clients)
		}
	}
}

func changeType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypePostCreated, true
	case "updated":
		return TypePostUpdated, true
	case "deleted":
		return TypePostDeleted, true
	}
	return "", false
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The returned channel is closed on
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.done:
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
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.counts <- resp:
	case <-b.done:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

// Publish broadcasts an arbitrary event.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// PublishPostEvent broadcasts a post change of the given kind (created,
// updated or deleted) followed by a throttled listing.updated. Its
// signature matches index.EventCallback.
func (b *Broker) PublishPostEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- postChange{kind: kind, path: path}:
	case <-b.done:
	}
}

// ServeHTTP streams events to one client until it disconnects or the
// broker closes.
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
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
