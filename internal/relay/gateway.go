package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"chat-relay/pkg/metrics"
)

// Gateway accepts websocket connections, runs the auth + room-join
// handshake, decodes inbound frames, and dispatches them to the
// presence tracker, typing coordinator, and message router.
//
// Per-connection lifecycle: Connecting -> Authenticated ->
// Joined(room) -> Closed, where Joined is optional (a lobby view stays
// Authenticated, presence-only). Any transport error or close runs the
// full teardown: registry removal, typing cleanup, then the presence
// offline event, in that order, so no stale event can reference a
// dead connection.
type Gateway struct {
	log      *slog.Logger
	reg      *Registry
	presence *Presence
	typing   *Typing
	router   *Router
	sendBuf  int
}

func NewGateway(logger *slog.Logger, reg *Registry, pres *Presence, typ *Typing, rt *Router, sendBuf int) *Gateway {
	return &Gateway{log: logger, reg: reg, presence: pres, typing: typ, router: rt, sendBuf: sendBuf}
}

// ServeWS handles a /ws connection end to end
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := Accept(w, r)
	if err != nil {
		g.log.Error("gateway.accept", "err", err)
		return
	}
	ctx := r.Context()

	c, err := g.handshake(ctx, ws)
	if err != nil {
		_ = ws.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}

	go c.WriteLoop(ctx)
	g.log.Info("gateway.connected", "conn", c.ID, "user", c.Username)

	for {
		raw, ok := c.Read(ctx)
		if !ok {
			break
		}
		g.dispatch(c, raw)
	}

	g.teardown(c)
}

// handshake reads frames until a valid auth arrives, registers the
// connection, and acks with connection_established. Frames before auth
// that are malformed or of another type are dropped, matching the
// per-connection silent-drop rule.
func (g *Gateway) handshake(ctx context.Context, ws *websocket.Conn) (*Conn, error) {
	readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for {
		_, raw, err := ws.Read(readCtx)
		if err != nil {
			return nil, err
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		if f.Type != TypeAuth {
			continue
		}
		if f.Username == "" {
			return nil, ErrAuthRejected
		}

		c := NewConn(ws, uuid.NewString(), f.Username, f.RoomID, g.sendBuf)
		if err := g.reg.Register(c); err != nil {
			return nil, err
		}
		metrics.LiveConnections.Inc()

		c.Send(Frame{Type: TypeConnectionEstablished})
		g.presence.ConnectionRegistered(c.Username)
		return c, nil
	}
}

// dispatch routes one inbound frame by type. Unknown types and
// undecodable payloads are dropped silently; the connection stays up.
// The handshake username is authoritative; whatever a frame claims
// as username is ignored.
func (g *Gateway) dispatch(c *Conn, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		g.log.Debug("gateway.malformed", "conn", c.ID)
		return
	}

	switch f.Type {
	case TypeJoinRoom:
		if f.RoomID == "" {
			return
		}
		g.reg.UpdateRoom(c.ID, f.RoomID)
		g.log.Debug("gateway.join", "conn", c.ID, "room", f.RoomID)

	case TypeChatMessage:
		room := f.RoomID
		if room == "" {
			room = g.reg.RoomOf(c.ID)
		}
		m := Message{
			ID:        uuid.NewString(),
			Content:   f.Content,
			Username:  c.Username,
			RoomID:    room,
			Timestamp: time.Now().UTC(),
		}
		// Sending a message is an implicit stop-typing.
		g.typing.Stop(room, c.Username)
		if err := g.router.Route(m); err != nil {
			c.Send(errorFrame("invalid message"))
		}

	case TypeTyping:
		room := f.RoomID
		if room == "" {
			room = g.reg.RoomOf(c.ID)
		}
		if room == "" {
			return
		}
		g.typing.Signal(room, c.Username)

	default:
		// auth after handshake, unknown types: drop.
	}
}

// teardown runs the full disconnect sequence within one dispatch turn:
// registry removal first, typing entries cancelled next, and only then
// the presence offline event.
func (g *Gateway) teardown(c *Conn) {
	room := g.reg.RoomOf(c.ID)
	if g.reg.Unregister(c.ID) == nil {
		return
	}
	metrics.LiveConnections.Dec()

	remaining := g.reg.ByUsername(c.Username)
	if len(remaining) == 0 {
		g.typing.CleanupUser(c.Username)
	} else if room != "" && !anyInRoom(g.reg, remaining, room) {
		// Another tab is still open but none in this room, so nothing
		// can refresh the entry; clear it now.
		g.typing.Stop(room, c.Username)
	}

	g.presence.ConnectionUnregistered(c.Username)
	_ = c.Close()
	g.log.Info("gateway.disconnected", "conn", c.ID, "user", c.Username)
}

func anyInRoom(reg *Registry, conns []*Conn, roomID string) bool {
	for _, c := range conns {
		if reg.RoomOf(c.ID) == roomID {
			return true
		}
	}
	return false
}
