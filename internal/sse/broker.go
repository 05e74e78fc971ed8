// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/offnote/internal/models"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type noteEventReq struct {
	kind string
	id   string
}

// StatusPayload is the data of a sync.status event.
type StatusPayload struct {
	Summary  models.Summary               `json:"summary"`
	Headline string                       `json:"headline"`
	Statuses map[string]models.SyncStatus `json:"statuses"`
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + status throttle). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	statusMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	noteEventCh   chan noteEventReq
	statusCh      chan map[string]models.SyncStatus
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. Status events are sent at most once per
// statusThrottle; the latest snapshot is always delivered eventually.
func NewBroker(statusThrottle time.Duration) *Broker {
	if statusThrottle <= 0 {
		statusThrottle = 250 * time.Millisecond
	}

	b := &Broker{
		statusMin:     statusThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		noteEventCh:   make(chan noteEventReq, 256),
		statusCh:      make(chan map[string]models.SyncStatus, 64),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastStatus time.Time
		pending    map[string]models.SyncStatus
		flushTimer *time.Timer
		flushCh    <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)
		raw := []byte(msg)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			if flushTimer != nil {
				flushTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.noteEventCh:
			data := map[string]string{"id": req.id}
			switch req.kind {
			case "created":
				broadcast(Event{Type: "note.created", Data: data})
			case "updated":
				broadcast(Event{Type: "note.updated", Data: data})
			case "deleted":
				broadcast(Event{Type: "note.deleted", Data: data})
			}

		case snap := <-b.statusCh:
			pending = snap
			wait := b.statusMin - time.Since(lastStatus)
			if wait <= 0 {
				lastStatus = time.Now()
				broadcast(statusEvent(pending))
				pending = nil
				continue
			}
			if flushCh == nil {
				if flushTimer == nil {
					flushTimer = time.NewTimer(wait)
				} else {
					flushTimer.Reset(wait)
				}
				flushCh = flushTimer.C
			}

		case <-flushCh:
			flushCh = nil
			if pending != nil {
				lastStatus = time.Now()
				broadcast(statusEvent(pending))
				pending = nil
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
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
	ch := make(chan []byte, 64)
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent publishes a note lifecycle event.
func (b *Broker) PublishNoteEvent(kind, id string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noteEventCh <- noteEventReq{kind: kind, id: id}:
	case <-b.stopped:
	}
}

// PublishStatus queues a throttled sync.status event. It matches the sync
// engine's subscriber signature and never blocks on slow clients.
func (b *Broker) PublishStatus(statuses map[string]models.SyncStatus) {
	if b.closed.Load() {
		return
	}
	select {
	case b.statusCh <- statuses:
	case <-b.stopped:
	}
}

func statusEvent(statuses map[string]models.SyncStatus) Event {
	sum := models.Summarize(statuses)
	return Event{Type: "sync.status", Data: StatusPayload{
		Summary:  sum,
		Headline: sum.Headline(),
		Statuses: statuses,
	}}
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
