package runtime

import (
	"log/slog"
	"time"

	"chat-relay/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn a session needs. Tests substitute
// an in-memory implementation.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Lifecycle receives the join/message/leave callbacks of one session. The
// chat service implements it; the session only sequences connection events.
type Lifecycle interface {
	SessionStarted(s *Session)
	TextReceived(s *Session, text string)
	SessionStopped(s *Session)
}

// SessionConfig carries the liveness and buffering knobs.
type SessionConfig struct {
	// HeartbeatInterval is how often a transport ping is sent.
	HeartbeatInterval time.Duration
	// ClientTimeout is how long the peer may stay silent before the session
	// is considered dead. Must exceed HeartbeatInterval.
	ClientTimeout time.Duration
	// WriteWait bounds a single outbound write.
	WriteWait time.Duration
	// SendBuffer is the outbound queue depth before fanout drops for this
	// session.
	SendBuffer int
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		HeartbeatInterval: 5 * time.Second,
		ClientTimeout:     10 * time.Second,
		WriteWait:         10 * time.Second,
		SendBuffer:        256,
	}
}

// Session owns one client connection: it ingests inbound frames in arrival
// order, emits outbound frames from its queue, and keeps the connection
// alive with transport pings. It exists from a validated connect until
// disconnect or heartbeat timeout and is never persisted.
type Session struct {
	ID       string
	Username string
	Channel  string

	conn      Conn
	send      chan []byte
	done      chan struct{}
	cfg       SessionConfig
	lifecycle Lifecycle
	log       *slog.Logger
}

func NewSession(username, channel string, conn Conn, lifecycle Lifecycle,
	cfg SessionConfig, log *slog.Logger) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Username:  username,
		Channel:   channel,
		conn:      conn,
		send:      make(chan []byte, cfg.SendBuffer),
		done:      make(chan struct{}),
		cfg:       cfg,
		lifecycle: lifecycle,
		log:       log,
	}
}

// Enqueue offers a payload to the outbound queue without blocking. Fanout is
// best-effort: a full queue means the payload is dropped for this session.
func (s *Session) Enqueue(payload []byte) bool {
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// Run drives the session until the connection dies. It blocks the caller
// (the websocket handler goroutine) and unconditionally runs the stop
// lifecycle before returning, whatever ended the read loop.
func (s *Session) Run() {
	s.lifecycle.SessionStarted(s)
	go s.writePump()

	s.readPump()

	close(s.done)
	_ = s.conn.Close()
	s.lifecycle.SessionStopped(s)
}

// readPump processes inbound frames strictly in arrival order. Any frame,
// pong included, resets the liveness clock; a silent peer hits the read
// deadline and the session stops through the normal path.
func (s *Session) readPump() {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ClientTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ClientTimeout))
	})

	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("Read loop ended", "username", s.Username, "error", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ClientTimeout))

		// Non-text frames are dropped silently: they can never crash the
		// session or reach the registry.
		if messageType != websocket.TextMessage {
			continue
		}

		text := string(payload)
		// The literal keepalive token is an application-layer no-op. The
		// read deadline reset above already credited the frame as liveness.
		if text == domain.HeartbeatToken {
			continue
		}
		s.lifecycle.TextReceived(s, text)
	}
}

// writePump owns all writes to the connection: queued lines and the
// periodic transport ping. gorilla/websocket allows one concurrent writer,
// so nothing else may call WriteMessage.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
