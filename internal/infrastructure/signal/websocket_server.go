package signal

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"
	"meetsignal/internal/core/services"
	"meetsignal/internal/infrastructure/middleware"
	"meetsignal/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Config carries the websocket timing knobs.
type Config struct {
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
}

// WebSocketServer upgrades clients into push channels and hands them to
// the join coordinator. All signaling actions travel over the HTTP
// action endpoint; the socket itself only carries server-pushed events,
// liveness pings and an optional client leave frame.
type WebSocketServer struct {
	joinService ports.JoinService
	auth        services.AuthService
	limiter     *middleware.WSConnectionLimiter

	cfg    Config
	logger *zap.SugaredLogger
}

func NewWebSocketServer(
	joinService ports.JoinService,
	auth services.AuthService,
	limiter *middleware.WSConnectionLimiter,
	cfg Config,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &WebSocketServer{
		joinService: joinService,
		auth:        auth,
		limiter:     limiter,
		cfg:         cfg,
		logger:      logger,
	}
}

// clientFrame is the only client-to-server message the socket accepts.
type clientFrame struct {
	Type string `json:"type"`
}

// wsChannel adapts one websocket connection to ports.PushChannel. The
// write mutex serializes event frames and pings; gorilla connections
// do not allow concurrent writers.
type wsChannel struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func (c *wsChannel) Push(event domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteJSON(event)
}

func (c *wsChannel) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *wsChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// HandleWebSocket serves GET /ws?meeting_id=…&token=…. The token is
// validated before the upgrade so an unauthenticated client never gets
// a socket.
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	meetingID := domain.MeetingID(r.URL.Query().Get("meeting_id"))
	if err := validation.ValidateMeetingID(string(meetingID)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	claims, err := s.auth.ValidateToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID

	if !s.limiter.Admit(r) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.limiter.Release()
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	ch := &wsChannel{conn: conn, writeTimeout: s.cfg.WriteTimeout}

	// Both the reader loop and a registry-side prune can observe the
	// close; the session unwind must run exactly once.
	var disconnectOnce sync.Once
	disconnect := func() {
		disconnectOnce.Do(func() {
			ch.Close()
			s.joinService.Leave(meetingID, userID, ch)
			s.limiter.Release()
			s.logger.Infow("websocket disconnected", "meeting_id", meetingID, "user_id", userID)
		})
	}
	defer disconnect()

	if s.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}
	conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		return nil
	})

	if err := s.joinService.Join(r.Context(), meetingID, userID, ch); err != nil {
		s.logger.Warnw("join failed", "meeting_id", meetingID, "user_id", userID, "error", err)
		return
	}
	s.logger.Infow("websocket connected", "meeting_id", meetingID, "user_id", userID)

	// Liveness pings. The ticker goroutine stops when the connection
	// closes and the write fails.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ch.ping(); err != nil {
					return
				}
			case <-pingDone:
				return
			}
		}
	}()

	s.readLoop(conn, meetingID, userID)
}

// readLoop consumes client frames until the connection dies. A leave
// frame is an orderly goodbye; anything else unknown is ignored.
func (s *WebSocketServer) readLoop(conn *websocket.Conn, meetingID domain.MeetingID, userID domain.UserID) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debugw("websocket read failed", "meeting_id", meetingID, "user_id", userID, "error", err)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Debugw("ignoring malformed client frame", "meeting_id", meetingID, "user_id", userID)
			continue
		}
		if frame.Type == "leave" {
			return
		}
	}
}

// OnDeadConnection adapts the registry's dead-channel callback to the
// disconnect handler. Leave is idempotent, so racing the reader loop's
// own unwind is harmless.
func OnDeadConnection(joinService ports.JoinService) func(domain.MeetingID, domain.UserID, ports.PushChannel) {
	return func(meetingID domain.MeetingID, userID domain.UserID, ch ports.PushChannel) {
		joinService.Leave(meetingID, userID, ch)
	}
}
