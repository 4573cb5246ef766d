package relay

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recordingDirectory captures mirrored transitions for assertions
type recordingDirectory struct {
	mu      sync.Mutex
	updates []string // "username:status"
}

func (d *recordingDirectory) UpdateUserStatus(_ context.Context, username, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, username+":"+status)
	return nil
}

func (d *recordingDirectory) wait(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		if len(d.updates) >= n {
			out := append([]string(nil), d.updates...)
			d.mu.Unlock()
			return out
		}
		d.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("directory never saw %d updates", n)
	return nil
}

func TestPresenceSingleTransitionPerEdge(t *testing.T) {
	reg := NewRegistry()
	pres := NewPresence(testLogger(), reg, nil)

	watcher := testConn("w1", "watcher", "")
	_ = reg.Register(watcher)
	pres.ConnectionRegistered("watcher")
	drainFrames(t, watcher)

	// Two tabs for carol: exactly one online event.
	for _, id := range []string{"c1", "c2"} {
		_ = reg.Register(testConn(id, "carol", ""))
		pres.ConnectionRegistered("carol")
	}
	frames := drainFrames(t, watcher)
	if got := countType(frames, TypeUserStatus); got != 1 {
		t.Fatalf("online events = %d, want 1", got)
	}
	if frames[0].Username != "carol" || frames[0].Status != StatusOnline {
		t.Fatalf("unexpected status frame %+v", frames[0])
	}
	if pres.StatusOf("carol") != StatusOnline {
		t.Fatal("carol should be online")
	}

	// First tab closes: no event.
	reg.Unregister("c1")
	pres.ConnectionUnregistered("carol")
	if got := countType(drainFrames(t, watcher), TypeUserStatus); got != 0 {
		t.Fatalf("premature offline event with a live connection left")
	}
	if pres.StatusOf("carol") != StatusOnline {
		t.Fatal("carol went offline with a tab still open")
	}

	// Last tab closes: exactly one offline event.
	reg.Unregister("c2")
	pres.ConnectionUnregistered("carol")
	frames = drainFrames(t, watcher)
	if got := countType(frames, TypeUserStatus); got != 1 {
		t.Fatalf("offline events = %d, want 1", got)
	}
	if frames[0].Status != StatusOffline {
		t.Fatalf("status = %q, want offline", frames[0].Status)
	}
	if pres.StatusOf("carol") != StatusOffline {
		t.Fatal("carol should be offline")
	}
}

func TestPresenceUnknownUser(t *testing.T) {
	pres := NewPresence(testLogger(), NewRegistry(), nil)

	if pres.StatusOf("ghost") != StatusOffline {
		t.Fatal("unknown usernames default to offline")
	}
	// Unregister without a prior register must not emit or underflow.
	pres.ConnectionUnregistered("ghost")
	if pres.StatusOf("ghost") != StatusOffline {
		t.Fatal("ghost flickered")
	}
}

func TestPresenceBroadcastIsGlobal(t *testing.T) {
	reg := NewRegistry()
	pres := NewPresence(testLogger(), reg, nil)

	inRoom := testConn("c1", "bob", "r1")
	lobby := testConn("c2", "dana", "")
	_ = reg.Register(inRoom)
	_ = reg.Register(lobby)
	pres.ConnectionRegistered("bob")
	pres.ConnectionRegistered("dana")
	drainFrames(t, inRoom)
	drainFrames(t, lobby)

	_ = reg.Register(testConn("c3", "alice", "r2"))
	pres.ConnectionRegistered("alice")

	// Presence is room-independent: both hear about alice.
	for _, c := range []*Conn{inRoom, lobby} {
		f := waitFrame(t, c, TypeUserStatus)
		if f.Username != "alice" || f.Status != StatusOnline {
			t.Fatalf("conn %s got %+v", c.ID, f)
		}
	}
}

func TestPresenceMirrorsToDirectory(t *testing.T) {
	reg := NewRegistry()
	dir := &recordingDirectory{}
	pres := NewPresence(testLogger(), reg, dir)

	_ = reg.Register(testConn("c1", "erin", ""))
	pres.ConnectionRegistered("erin")
	reg.Unregister("c1")
	pres.ConnectionUnregistered("erin")

	updates := dir.wait(t, 2)
	if updates[0] != "erin:online" || updates[1] != "erin:offline" {
		t.Fatalf("directory updates = %v", updates)
	}
}
