package instance

import "sync"

// WSConn is the minimal surface corestate needs from a host-accepted
// WebSocket connection. Production wiring satisfies this with
// *websocket.Conn (github.com/gorilla/websocket); tests use a fake.
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
}

// Sockets tracks WebSockets accepted by this instance, tagged at
// acceptance and queryable by tag. It is the host-provided primitive
// pkg/broadcast fans out over.
type Sockets struct {
	mu    sync.RWMutex
	byTag map[string][]WSConn
	all   []WSConn
}

// NewSockets creates an empty tagged socket registry.
func NewSockets() *Sockets {
	return &Sockets{byTag: make(map[string][]WSConn)}
}

// Accept registers a connection under zero or more tags.
func (s *Sockets) Accept(ws WSConn, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, ws)
	for _, t := range tags {
		s.byTag[t] = append(s.byTag[t], ws)
	}
}

// Get returns every connection, or every connection registered under
// tag when tag is non-empty.
func (s *Sockets) Get(tag string) []WSConn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tag == "" {
		return append([]WSConn(nil), s.all...)
	}
	return append([]WSConn(nil), s.byTag[tag]...)
}
