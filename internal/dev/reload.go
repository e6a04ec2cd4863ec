package dev

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ReloadMessageType is the kind of message pushed to browsers.
type ReloadMessageType string

const (
	ReloadTypeFull  ReloadMessageType = "reload"
	ReloadTypeError ReloadMessageType = "error"
)

// ReloadMessage is sent to connected browsers over the reload channel.
type ReloadMessage struct {
	Type  ReloadMessageType `json:"type"`
	Error string            `json:"error,omitempty"`
	File  string            `json:"file,omitempty"`
}

// ReloadServer manages the WebSocket connections behind live reload.
type ReloadServer struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

// NewReloadServer creates a reload server with no connected clients.
func NewReloadServer() *ReloadServer {
	return &ReloadServer{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Dev-only endpoint; any origin may connect.
				return true
			},
		},
	}
}

// HandleWebSocket upgrades the request and parks the connection until
// the client disconnects.
func (s *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// NotifyReload tells every connected browser to do a full reload.
func (s *ReloadServer) NotifyReload(file string) {
	s.broadcast(ReloadMessage{Type: ReloadTypeFull, File: file})
}

// NotifyError pushes an error message for the browser overlay.
func (s *ReloadServer) NotifyError(errMsg string) {
	s.broadcast(ReloadMessage{Type: ReloadTypeError, Error: errMsg})
}

// ClientCount returns the number of connected browsers.
func (s *ReloadServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *ReloadServer) broadcast(msg ReloadMessage) {
	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		// A write failure just means the browser went away; the read
		// loop will reap the connection.
		_ = conn.WriteJSON(msg)
	}
}
