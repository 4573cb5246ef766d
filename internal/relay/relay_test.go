package relay

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

// Shared helpers for the relay tests. Connections built with a nil
// websocket exercise the full dispatch path; frames pile up in the
// outbound queue where tests can inspect them.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConn(id, username, room string) *Conn {
	return NewConn(nil, id, username, room, 16)
}

// drainFrames empties a connection's outbound queue
func drainFrames(t *testing.T, c *Conn) []Frame {
	t.Helper()
	var out []Frame
	for {
		select {
		case raw := <-c.out:
			var f Frame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("bad frame on queue: %v", err)
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

// waitFrame blocks until a frame of the wanted type arrives or the
// deadline passes
func waitFrame(t *testing.T, c *Conn, typ string) Frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-c.out:
			var f Frame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("bad frame on queue: %v", err)
			}
			if f.Type == typ {
				return f
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q frame", typ)
		}
	}
}

func countType(frames []Frame, typ string) int {
	n := 0
	for _, f := range frames {
		if f.Type == typ {
			n++
		}
	}
	return n
}
