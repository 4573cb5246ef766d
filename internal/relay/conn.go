package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"chat-relay/pkg/metrics"
)

// Conn is one live transport session. The username is assigned at
// handshake and never changes; the room is reindexed by the registry.
type Conn struct {
	ID       string
	Username string

	ws   *websocket.Conn
	out  chan []byte
	room string // guarded by the owning registry's lock
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// NewConn wraps a websocket for an authenticated user, with a buffered
// outbound queue of sendBuf frames
func NewConn(ws *websocket.Conn, id, username, roomID string, sendBuf int) *Conn {
	return &Conn{
		ID:       id,
		Username: username,
		ws:       ws,
		out:      make(chan []byte, sendBuf),
		room:     roomID,
	}
}

// Send queues a frame without blocking. A full queue drops the frame
// for this recipient; slow readers never stall the dispatching side.
func (c *Conn) Send(f Frame) {
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case c.out <- raw:
	default:
		metrics.FramesDropped.Inc()
	}
}

// Read blocks until it receives a text/binary message
// Returns false if the connection is closed
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// WriteLoop sends outbound frames + periodic pings
// Exits when ctx is cancelled
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			_ = c.ws.Write(ctx, websocket.MessageText, b)
		case <-t.C:
			_ = c.ws.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Close closes the websocket normally
func (c *Conn) Close() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close(websocket.StatusNormalClosure, "bye")
}

// CloseWithStatus rejects or terminates the connection with a reason
func (c *Conn) CloseWithStatus(code websocket.StatusCode, reason string) error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close(code, reason)
}
