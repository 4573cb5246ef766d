package relay

import (
	"log/slog"
	"strings"

	"chat-relay/pkg/metrics"
)

// Router validates chat messages and fans them out to the room,
// excluding the author. It never persists; history is the store's
// job, invoked by whoever calls Route.
type Router struct {
	log *slog.Logger
	reg *Registry
}

func NewRouter(logger *slog.Logger, reg *Registry) *Router {
	return &Router{log: logger, reg: reg}
}

// Route delivers m to every room member whose username differs from
// the author. Per-recipient order is preserved by the connection send
// queues; no order is promised across recipients. Returns
// ErrInvalidMessage for an empty room, author, or trimmed content;
// the caller notifies the sender only, nothing is broadcast.
func (r *Router) Route(m Message) error {
	if m.RoomID == "" || m.Username == "" || strings.TrimSpace(m.Content) == "" {
		return ErrInvalidMessage
	}

	f := messageFrame(m)
	for _, c := range r.reg.ByRoom(m.RoomID) {
		if c.Username == m.Username {
			continue
		}
		c.Send(f)
	}
	metrics.MessagesRouted.Inc()
	r.log.Debug("router.route", "room", m.RoomID, "user", m.Username, "id", m.ID)
	return nil
}
