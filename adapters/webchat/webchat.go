// Package webchat serves browser chat sessions over websockets. Each socket
// is one conversation origin; inbound frames become pipeline events and
// replies travel back as JSON frames on the same socket.
package webchat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parleybot/parley/platform"
)

// Sink receives the events this adapter produces, normally the dispatch bus.
type Sink interface {
	Enqueue(ctx context.Context, ev *platform.Event) error
}

const (
	frameMessage = "message"
	frameReply   = "reply"
	frameTurnEnd = "turn_end"
	frameError   = "error"
)

type inboundFrame struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
}

type outboundFrame struct {
	Type     string             `json:"type"`
	EventID  string             `json:"event_id,omitempty"`
	Segments []platform.Segment `json:"segments,omitempty"`
	Error    string             `json:"error,omitempty"`
}

type Options struct {
	Sink   Sink
	Logger *slog.Logger
}

// Adapter is the webchat endpoint. The websocket protocol holds the browser
// waiting after each message, so the adapter requires the explicit turn-end
// frame when a run produces no reply.
type Adapter struct {
	sink     Sink
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*session
}

// session is one connected socket. Writes are serialized; gorilla permits a
// single concurrent writer per connection.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func New(opts Options) (*Adapter, error) {
	if opts.Sink == nil {
		return nil, fmt.Errorf("event sink is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		sink:   opts.Sink,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}, nil
}

func (a *Adapter) Meta() platform.AdapterMeta {
	return platform.AdapterMeta{ID: "webchat", Platform: platform.PlatformWebchat, Name: "webchat"}
}

func (a *Adapter) RequiresTurnEnd() bool { return true }

// Send writes the collected reply segments as one frame on the event's
// socket. An empty segment slice becomes the turn-end frame that releases
// the waiting client.
func (a *Adapter) Send(_ context.Context, ev *platform.Event, segments []platform.Segment) error {
	a.mu.RLock()
	sess, ok := a.sessions[ev.Origin]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("webchat session for %q is gone", ev.Origin)
	}
	frame := outboundFrame{Type: frameReply, EventID: ev.ID, Segments: segments}
	if len(segments) == 0 {
		frame = outboundFrame{Type: frameTurnEnd, EventID: ev.ID}
	}
	if err := sess.writeJSON(frame); err != nil {
		return fmt.Errorf("write webchat frame: %w", err)
	}
	return nil
}

// Handler returns the websocket endpoint. The session id comes from the
// `session` query parameter so a reconnecting client keeps its origin; a
// missing id gets a fresh one.
func (a *Adapter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		origin, err := platform.BuildOrigin(platform.PlatformWebchat, sessionID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := a.upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.logger.Warn("webchat_upgrade_failed", "error", err.Error())
			return
		}
		sess := &session{conn: conn}
		a.register(origin, sess)
		a.logger.Info("webchat_session_open", "origin", origin)
		defer func() {
			a.unregister(origin)
			conn.Close()
			a.logger.Info("webchat_session_closed", "origin", origin)
		}()

		a.readLoop(r.Context(), origin, sessionID, sess)
	})
}

func (a *Adapter) readLoop(ctx context.Context, origin, sessionID string, sess *session) {
	for {
		var frame inboundFrame
		if err := sess.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.logger.Warn("webchat_read_failed", "origin", origin, "error", err.Error())
			}
			return
		}
		if frame.Type != "" && frame.Type != frameMessage {
			a.reject(sess, fmt.Sprintf("unknown frame type %q", frame.Type))
			continue
		}
		text := strings.TrimSpace(frame.Text)
		if text == "" {
			a.reject(sess, "message text is required")
			continue
		}

		senderID := strings.TrimSpace(frame.SenderID)
		if senderID == "" {
			senderID = sessionID
		}
		ev, err := platform.NewEvent(platform.EventOptions{
			Origin:   origin,
			Sender:   platform.Sender{ID: senderID, Name: frame.SenderName},
			Segments: []platform.Segment{platform.Text(text)},
			Adapter:  a,
		})
		if err != nil {
			a.reject(sess, err.Error())
			continue
		}
		if err := a.sink.Enqueue(ctx, ev); err != nil {
			a.logger.Error("webchat_enqueue_failed", "origin", origin, "error", err.Error())
			a.reject(sess, "server is shutting down")
			return
		}
	}
}

func (a *Adapter) reject(sess *session, reason string) {
	if err := sess.writeJSON(outboundFrame{Type: frameError, Error: reason}); err != nil {
		a.logger.Warn("webchat_reject_write_failed", "error", err.Error())
	}
}

func (a *Adapter) register(origin string, sess *session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[origin] = sess
}

func (a *Adapter) unregister(origin string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, origin)
}

// Sessions reports the currently connected origins, for the status endpoint.
func (a *Adapter) Sessions() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.sessions))
	for origin := range a.sessions {
		out = append(out, origin)
	}
	return out
}
