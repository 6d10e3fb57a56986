// Package telemetry's stream.go broadcasts the same stage-by-stage
// progress lines internal/log.StepLogger emits to any connected
// operator UI over a websocket, served at /stream under `run-all --serve`
// (§6).
//
// Grounded on the teacher's internal/net/circuit Manager for the
// map+mutex registry shape (register/unregister/broadcast), adapted
// from "named circuit breakers" to "named connected subscribers" since
// no teacher file broadcasts over websockets directly for this shape.
package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProgressEvent is one line of the §7 progress report, serialized as
// JSON to every connected subscriber.
type ProgressEvent struct {
	CandidateID string  `json:"candidate_id"`
	Stage       string  `json:"stage"`
	Message     string  `json:"message"`
	ElapsedSec  float64 `json:"elapsed_seconds,omitempty"`
}

// Stream is a registry of connected websocket subscribers that
// Broadcast fans every ProgressEvent out to.
type Stream struct {
	mu          sync.RWMutex
	subscribers map[*websocket.Conn]chan ProgressEvent
}

// NewStream builds an empty subscriber registry.
func NewStream() *Stream {
	return &Stream{subscribers: make(map[*websocket.Conn]chan ProgressEvent)}
}

// ServeHTTP upgrades the connection and registers it as a subscriber
// until the client disconnects.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := make(chan ProgressEvent, 32)
	s.register(conn, ch)
	defer s.unregister(conn)

	for event := range ch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (s *Stream) register(conn *websocket.Conn, ch chan ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[conn] = ch
}

func (s *Stream) unregister(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subscribers[conn]; ok {
		close(ch)
		delete(s.subscribers, conn)
	}
}

// Broadcast fans one progress event out to every connected subscriber,
// dropping it for any subscriber whose channel is currently full rather
// than blocking the caller on a slow reader.
func (s *Stream) Broadcast(event ProgressEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount reports how many clients are currently connected.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
