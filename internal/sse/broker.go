// Package sse implements the process-wide vault event channel: change
// events are broadcast to subscribed UI collaborators over Server-Sent
// Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type vaultEventReq struct {
	kind string
	path string
}

// clientSet is the broker loop's private registry of subscriber
// channels. Only the loop goroutine touches it.
type clientSet map[chan []byte]struct{}

func (s clientSet) broadcast(event Event) {
	raw, ok := encode(event)
	if !ok {
		return
	}
	for ch := range s {
		select {
		case ch <- raw:
		default:
			// Client buffer full; skip to avoid blocking broker loop.
		}
	}
}

// encode renders the SSE wire format for one event.
func encode(event Event) ([]byte, bool) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, false
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), true
}

// Broker manages SSE client connections and broadcasts vault events.
//
// Concurrency model: a single internal event loop (goroutine) owns
// mutable state (clients + activity throttle timestamp). Public methods
// communicate with this loop through channels, so no mutexes are
// required. Registry changes (subscribe, unsubscribe, count) travel as
// closures on opCh and execute inside the loop.
type Broker struct {
	activityMin time.Duration

	opCh         chan func(clientSet)
	publishCh    chan Event
	vaultEventCh chan vaultEventReq

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. activityThrottle bounds how often the
// derived activity.updated event is rebroadcast.
func NewBroker(activityThrottle time.Duration) *Broker {
	if activityThrottle <= 0 {
		activityThrottle = 2 * time.Second
	}

	b := &Broker{
		activityMin:  activityThrottle,
		opCh:         make(chan func(clientSet)),
		publishCh:    make(chan Event, 256),
		vaultEventCh: make(chan vaultEventReq, 256),
		stopCh:       make(chan struct{}),
		stopped:      make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(clientSet)
	var lastActivity time.Time

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case op := <-b.opCh:
			op(clients)

		case event := <-b.publishCh:
			clients.broadcast(event)

		case req := <-b.vaultEventCh:
			data := map[string]string{"path": req.path}
			switch req.kind {
			case "created":
				clients.broadcast(Event{Type: "note.created", Data: data})
			case "modified":
				clients.broadcast(Event{Type: "note.modified", Data: data})
			case "deleted":
				clients.broadcast(Event{Type: "note.deleted", Data: data})
			}

			now := time.Now()
			if now.Sub(lastActivity) >= b.activityMin {
				lastActivity = now
				clients.broadcast(Event{Type: "activity.updated", Data: map[string]string{}})
			}
		}
	}
}

// do hands op to the loop goroutine. It reports false when the broker
// is stopped and the op never ran.
func (b *Broker) do(op func(clientSet)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.opCh <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// Close gracefully stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if !b.do(func(clients clientSet) { clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(clients clientSet) {
		if _, ok := clients[ch]; ok {
			delete(clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(clients clientSet) { resp <- len(clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an arbitrary event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishVaultEvent publishes a note change event plus a throttled
// activity.updated event.
func (b *Broker) PublishVaultEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.vaultEventCh <- vaultEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
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
