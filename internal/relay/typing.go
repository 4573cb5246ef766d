package relay

import (
	"log/slog"
	"sync"
	"time"
)

type typingKey struct {
	room string
	user string
}

// typingEntry owns one cancellable expiry timer. gen guards against a
// timer that already fired and is waiting on the mutex while the entry
// is being reset or removed: the callback revalidates gen under the
// lock and bails if the entry moved on without it.
type typingEntry struct {
	timer *time.Timer
	gen   uint64
}

// Typing tracks per-(room, user) typing state with automatic expiry.
// Repeated keystroke signals collapse into a single user_typing per
// burst; only the timer resets. Expiry or an explicit stop emits
// stop_typing to the rest of the room.
type Typing struct {
	log     *slog.Logger
	reg     *Registry
	timeout time.Duration

	mu      sync.Mutex
	entries map[typingKey]*typingEntry
}

func NewTyping(logger *slog.Logger, reg *Registry, timeout time.Duration) *Typing {
	return &Typing{log: logger, reg: reg, timeout: timeout, entries: map[typingKey]*typingEntry{}}
}

// Signal records typing activity. A fresh (room, user) pair emits
// user_typing to the other room members; an existing one only resets
// its expiry timer.
func (t *Typing) Signal(roomID, username string) {
	k := typingKey{room: roomID, user: username}

	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[k]; ok {
		e.timer.Stop()
		e.gen++
		gen := e.gen
		e.timer = time.AfterFunc(t.timeout, func() { t.expire(k, gen) })
		return
	}

	e := &typingEntry{gen: 1}
	e.timer = time.AfterFunc(t.timeout, func() { t.expire(k, 1) })
	t.entries[k] = e
	t.emitLocked(TypeUserTyping, roomID, username)
}

// Stop cancels the entry and emits stop_typing immediately, e.g. when
// the user sends the message. No-op if no entry exists.
func (t *Typing) Stop(roomID, username string) {
	k := typingKey{room: roomID, user: username}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(k)
}

// CleanupUser drops every entry the user holds, cancelling timers and
// emitting stop_typing for each. Called on disconnect, before the
// presence offline event goes out.
func (t *Typing) CleanupUser(username string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k := range t.entries {
		if k.user == username {
			t.removeLocked(k)
		}
	}
}

// Active reports whether a live typing entry exists for the pair
func (t *Typing) Active(roomID, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{room: roomID, user: username}]
	return ok
}

// expire is the timer callback. The gen check rejects stale timers
// whose entry was reset or removed while they waited on the lock.
func (t *Typing) expire(k typingKey, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[k]
	if !ok || e.gen != gen {
		return
	}
	delete(t.entries, k)
	t.emitLocked(TypeStopTyping, k.room, k.user)
}

func (t *Typing) removeLocked(k typingKey) {
	e, ok := t.entries[k]
	if !ok {
		return
	}
	e.timer.Stop()
	e.gen++ // invalidate a callback already past Stop
	delete(t.entries, k)
	t.emitLocked(TypeStopTyping, k.room, k.user)
}

// emitLocked fans a typing frame out to the room, excluding the acting
// user's own connections
func (t *Typing) emitLocked(typ, roomID, username string) {
	f := typingFrame(typ, roomID, username)
	for _, c := range t.reg.ByRoom(roomID) {
		if c.Username == username {
			continue
		}
		c.Send(f)
	}
	t.log.Debug("typing.emit", "type", typ, "room", roomID, "user", username)
}
