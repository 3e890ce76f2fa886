// Package sse streams pipeline activity to connected dashboards over
// Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// writeTimeout bounds each client write so a stalled connection cannot
// block a broadcast.
const writeTimeout = 2 * time.Second

// Activity is one broadcast frame. Type names the pipeline step; the
// optional IDs let a dashboard correlate frames with records.
type Activity struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	RecordID  string `json:"recordId,omitempty"`
	At        int64  `json:"at"`
}

// Activity types emitted by the service.
const (
	ActivityEvent     = "event"
	ActivityClarify   = "clarify"
	ActivityFinalize  = "finalize"
	ActivityRun       = "run"
	activityConnected = "connected"
)

type client struct {
	id      string
	w       http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
}

// Broadcaster fans activity frames out to every connected client.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]*client
	nextID  int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]*client)}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish sends an activity frame to all connected clients, stamping At.
// Clients whose writes fail or time out are dropped.
func (b *Broadcaster) Publish(a Activity) {
	a.At = time.Now().UnixMilli()
	payload, err := json.Marshal(a)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE activity")
		return
	}
	frame := fmt.Sprintf("data: %s\n\n", payload)

	b.mu.Lock()
	targets := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		targets = append(targets, c)
	}
	b.mu.Unlock()

	var wg sync.WaitGroup
	dead := make(chan string, len(targets))
	for _, c := range targets {
		select {
		case <-c.done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			if !writeWithTimeout(c, frame) {
				dead <- c.id
			}
		}(c)
	}
	wg.Wait()
	close(dead)

	for id := range dead {
		b.drop(id)
	}
}

// writeWithTimeout reports whether the frame reached the client in time.
func writeWithTimeout(c *client, frame string) bool {
	wrote := make(chan bool, 1)
	go func() {
		if _, err := c.w.Write([]byte(frame)); err != nil {
			wrote <- false
			return
		}
		c.flusher.Flush()
		wrote <- true
	}()

	select {
	case ok := <-wrote:
		return ok
	case <-time.After(writeTimeout):
		log.Warn().Str("clientId", c.id).Msg("SSE write timed out")
		return false
	case <-c.done:
		return true
	}
}

func (b *Broadcaster) drop(id string) {
	b.mu.Lock()
	c, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
	}
	remaining := len(b.clients)
	b.mu.Unlock()

	if ok {
		select {
		case <-c.done:
		default:
			close(c.done)
		}
		log.Debug().Str("clientId", id).Int("totalClients", remaining).Msg("SSE client removed")
	}
}

// ServeHTTP registers the caller as a stream client and blocks until it
// disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	b.mu.Lock()
	b.nextID++
	c := &client{
		id:      fmt.Sprintf("client-%d", b.nextID),
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
	}
	b.clients[c.id] = c
	total := len(b.clients)
	b.mu.Unlock()
	log.Debug().Str("clientId", c.id).Int("totalClients", total).Msg("SSE client connected")
	defer b.drop(c.id)

	fmt.Fprintf(w, "data: {\"type\":%q,\"clientId\":%q}\n\n", activityConnected, c.id)
	flusher.Flush()

	<-r.Context().Done()
}
