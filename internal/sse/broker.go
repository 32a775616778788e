// Package sse implements a Server-Sent Events broker for pushing bridge
// commands and host events to connected clients.
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ErrClientEvicted is returned by Deliver when a client could not keep up
// and was disconnected.
var ErrClientEvicted = errors.New("sse: slow client evicted")

// Option configures a Broker.
type Option func(*Broker)

// WithSticky makes the broker remember the last event of each given type and
// replay it to clients that subscribe later.
func WithSticky(types ...string) Option {
	return func(b *Broker) {
		for _, t := range types {
			b.sticky[t] = struct{}{}
		}
	}
}

// WithBuffer sets the per-client channel capacity.
func WithBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithEvictSlow disconnects a client whose buffer is full instead of
// skipping the event for it. The client then sees a gap-free stream or a
// closed one, never a stream with holes.
func WithEvictSlow() Option {
	return func(b *Broker) { b.evictSlow = true }
}

type publishReq struct {
	event Event
	done  chan error
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the client set and the sticky cache;
// public methods talk to it over channels.
type Broker struct {
	sticky    map[string]struct{}
	buffer    int
	evictSlow bool

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan publishReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker and starts its loop.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		sticky:        make(map[string]struct{}),
		buffer:        64,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan publishReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	last := make(map[string][]byte)
	var order []string

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			for _, typ := range order {
				select {
				case ch <- last[typ]:
				default:
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case req := <-b.publishCh:
			event := req.event
			raw, err := encode(event)
			if err != nil {
				req.reply(err)
				continue
			}
			if _, ok := b.sticky[event.Type]; ok {
				if _, seen := last[event.Type]; !seen {
					order = append(order, event.Type)
				}
				last[event.Type] = raw
			}
			evicted := 0
			for ch := range clients {
				select {
				case ch <- raw:
				default:
					if b.evictSlow {
						delete(clients, ch)
						close(ch)
						evicted++
					}
					// Otherwise skip to avoid blocking broker loop.
				}
			}
			if evicted > 0 {
				req.reply(fmt.Errorf("%w: %d client(s) missed %s", ErrClientEvicted, evicted, event.Type))
			} else {
				req.reply(nil)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

func (r publishReq) reply(err error) {
	if r.done != nil {
		r.done <- err
	}
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
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
	ch := make(chan []byte, b.buffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
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
	case b.unsubscribeCh <- ch:
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
	case b.countReqCh <- resp:
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

// Publish queues an event for all connected clients. Events are delivered
// in publish order.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- publishReq{event: event}:
	case <-b.stopped:
	}
}

// Deliver publishes event and waits until the broker has handed it to every
// client. It reports encoding failures and, with WithEvictSlow, clients that
// were disconnected because they fell behind.
func (b *Broker) Deliver(ctx context.Context, event Event) error {
	if b.closed.Load() {
		return nil
	}
	req := publishReq{event: event, done: make(chan error, 1)}
	select {
	case b.publishCh <- req:
	case <-b.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-b.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
