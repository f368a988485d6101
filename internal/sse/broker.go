// Package sse implements a Server-Sent Events broker for content change
// notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Event types broadcast by the broker.
const (
	TypeContentCreated = "content.created"
	TypeContentUpdated = "content.updated"
	TypeContentDeleted = "content.deleted"
	TypeContentInvalid = "content.invalid"
	TypeSiteUpdated    = "site.updated"
)

// Change kinds accepted by PublishContentChange.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

const statusInvalid = "invalid"

// ContentChange describes one re-indexed content file. A file that failed
// to resolve carries Status "invalid" and the error text.
type ContentChange struct {
	Kind   string `json:"-"`
	Path   string `json:"path"`
	Model  string `json:"model,omitempty"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SiteUpdate is the payload of site.updated: the paths changed since the
// previous site.updated event, sorted.
type SiteUpdate struct {
	Paths []string `json:"paths"`
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients, pending site changes, last invalid errors). Public methods
// communicate with this loop through channels, so no mutexes are required.
type Broker struct {
	siteMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	contentCh     chan ContentChange
	siteCh        chan struct{}
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. siteThrottle is the minimum interval
// between two site.updated events; changes arriving in between are
// collected into the next one.
func NewBroker(siteThrottle time.Duration) *Broker {
	if siteThrottle <= 0 {
		siteThrottle = 2 * time.Second
	}

	b := &Broker{
		siteMin:       siteThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		contentCh:     make(chan ContentChange, 256),
		siteCh:        make(chan struct{}, 16),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// contentEvent maps a change to its event type. ok is false for unknown
// kinds.
func contentEvent(c ContentChange) (string, bool) {
	switch c.Kind {
	case KindDeleted:
		return TypeContentDeleted, true
	case KindCreated, KindUpdated:
		if c.Status == statusInvalid {
			return TypeContentInvalid, true
		}
		if c.Kind == KindCreated {
			return TypeContentCreated, true
		}
		return TypeContentUpdated, true
	}
	return "", false
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	// invalid remembers the last reported error per path so that repeated
	// writes of the same broken file are announced once.
	invalid := make(map[string]string)
	pending := make(map[string]struct{})
	var (
		lastSite   time.Time
		sitePend   bool
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

	flushSite := func() {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		clear(pending)
		sitePend = false
		lastSite = time.Now()
		broadcast(Event{Type: TypeSiteUpdated, Data: SiteUpdate{Paths: paths}})
	}

	siteChanged := func() {
		sitePend = true
		if wait := b.siteMin - time.Since(lastSite); wait > 0 {
			if flushCh == nil {
				flushTimer = time.NewTimer(wait)
				flushCh = flushTimer.C
			}
			return
		}
		flushSite()
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

		case c := <-b.contentCh:
			typ, ok := contentEvent(c)
			if !ok {
				continue
			}
			if typ == TypeContentInvalid {
				if last, seen := invalid[c.Path]; seen && last == c.Error {
					continue
				}
				invalid[c.Path] = c.Error
			} else {
				delete(invalid, c.Path)
			}
			broadcast(Event{Type: typ, Data: c})
			pending[c.Path] = struct{}{}
			siteChanged()

		case <-b.siteCh:
			siteChanged()

		case <-flushCh:
			flushCh = nil
			if sitePend {
				flushSite()
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

// PublishContentChange publishes the content event for c and schedules
// a site.updated event. Unknown kinds are ignored.
func (b *Broker) PublishContentChange(c ContentChange) {
	if b.closed.Load() {
		return
	}
	select {
	case b.contentCh <- c:
	case <-b.stopped:
	}
}

// PublishSiteUpdated schedules a site.updated event without a content
// event, e.g. after model definitions changed.
func (b *Broker) PublishSiteUpdated() {
	if b.closed.Load() {
		return
	}
	select {
	case b.siteCh <- struct{}{}:
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
