package http

import (
	"net/http"

	"chat-relay/errors"
	"chat-relay/runtime"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWs upgrades the request and hands the connection to a session.
// The channel must exist before anyone can connect to it, so the check
// happens while we can still answer with a status code.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	username, ok := UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	channel := chi.URLParam(r, "channel")
	exists, err := s.channels.Exists(r.Context(), channel)
	if err != nil {
		s.log.Error("Channel lookup failed", "channel", channel, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, errors.ErrChannelNotFound.Error(), http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Websocket upgrade failed", "channel", channel, "error", err)
		return
	}

	sess := runtime.NewSession(username, channel, conn, s.chat, s.sessions, s.log)

	// Run blocks until the peer disconnects or times out. The handler
	// goroutine is as good a home for the read loop as any.
	sess.Run()
}
