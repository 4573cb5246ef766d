package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-relay/pkg/metrics"
)

// Directory mirrors presence transitions into the request/response user
// surface, so clients that poll REST agree with the live channel.
type Directory interface {
	UpdateUserStatus(ctx context.Context, username, status string) error
}

// Presence derives online/offline per username from registry churn. A
// username is online iff it holds at least one live connection, in any
// room. Transitions are detected by reference counting; the count
// mutation and the emit decision happen under one lock so concurrent
// connects/disconnects can never double-emit or skip a transition.
type Presence struct {
	log *slog.Logger
	reg *Registry
	dir Directory // optional

	mu     sync.Mutex
	counts map[string]int // username -> live connections

	mirrorQ chan statusUpdate
}

type statusUpdate struct {
	username string
	status   string
}

func NewPresence(logger *slog.Logger, reg *Registry, dir Directory) *Presence {
	p := &Presence{log: logger, reg: reg, dir: dir, counts: map[string]int{}}
	if dir != nil {
		p.mirrorQ = make(chan statusUpdate, 256)
		go p.mirrorLoop()
	}
	return p
}

// mirrorLoop applies directory writes one at a time, in the order the
// transitions happened. A user flapping online/offline must never have
// its writes land inverted.
func (p *Presence) mirrorLoop() {
	for u := range p.mirrorQ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.dir.UpdateUserStatus(ctx, u.username, u.status); err != nil {
			p.log.Error("presence.mirror", "user", u.username, "err", err)
		}
		cancel()
	}
}

// ConnectionRegistered bumps the user's refcount. The 0->1 edge emits
// one user_status online to every registered connection; opening a
// second tab emits nothing.
func (p *Presence) ConnectionRegistered(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts[username]++
	if p.counts[username] != 1 {
		return
	}
	metrics.OnlineUsers.Inc()
	p.broadcastLocked(username, StatusOnline)
}

// ConnectionUnregistered drops the refcount; the 1->0 edge emits one
// user_status offline and forgets the user.
func (p *Presence) ConnectionUnregistered(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.counts[username]
	if !ok {
		return
	}
	if n > 1 {
		p.counts[username] = n - 1
		return
	}
	delete(p.counts, username)
	metrics.OnlineUsers.Dec()
	p.broadcastLocked(username, StatusOffline)
}

// StatusOf reports the canonical status, offline for unknown usernames
func (p *Presence) StatusOf(username string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts[username] > 0 {
		return StatusOnline
	}
	return StatusOffline
}

// broadcastLocked fans a status frame out globally. Presence is
// room-independent, so every connection hears about it. Sends are
// non-blocking queue pushes, safe to run under the lock, which keeps
// transition order intact for racing users.
func (p *Presence) broadcastLocked(username, status string) {
	f := statusFrame(username, status)
	for _, c := range p.reg.All() {
		c.Send(f)
	}
	p.log.Debug("presence.transition", "user", username, "status", status)

	if p.mirrorQ != nil {
		select {
		case p.mirrorQ <- statusUpdate{username: username, status: status}:
		default:
			p.log.Error("presence.mirror.backlog", "user", username, "status", status)
		}
	}
}
