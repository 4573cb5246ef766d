package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-relay/internal/store"
)

// RoomStore is the slice of the store the room/message endpoints need
type RoomStore interface {
	CreateRoom(ctx context.Context, name string) (store.Room, error)
	GetRoom(ctx context.Context, id string) (store.Room, error)
	ListRooms(ctx context.Context) ([]store.Room, error)
	AddMessage(ctx context.Context, m store.Message) error
	ListMessages(ctx context.Context, roomID string, limit int) ([]store.Message, error)
}

// MessageCache is the redis recent-message window; read-through with
// postgres as the source of truth
type MessageCache interface {
	PushMessage(ctx context.Context, m store.Message) error
	RecentMessages(ctx context.Context, roomID string) ([]store.Message, error)
	FillMessages(ctx context.Context, roomID string, msgs []store.Message) error
}

type RoomsAPI struct {
	DB      RoomStore
	Cache   MessageCache // optional
	Log     *slog.Logger
	History int // messages per history page
}

type createRoomReq struct {
	Name string `json:"name"`
}

type roomDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type addMessageReq struct {
	Content  string `json:"content"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// Create handles new room creation
func (a *RoomsAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	rm, err := a.DB.CreateRoom(r.Context(), req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, roomDTO{ID: rm.ID, Name: rm.Name})
}

// List returns all rooms
func (a *RoomsAPI) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.DB.ListRooms(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]roomDTO, 0, len(rooms))
	for _, rm := range rooms {
		resp = append(resp, roomDTO{ID: rm.ID, Name: rm.Name})
	}
	writeJSON(w, resp)
}

// Messages returns a room's recent history in submission order, served
// from the cache window when warm
func (a *RoomsAPI) Messages(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	if roomID == "" {
		http.Error(w, "roomId required", http.StatusBadRequest)
		return
	}

	if a.Cache != nil {
		if msgs, err := a.Cache.RecentMessages(r.Context(), roomID); err == nil && len(msgs) > 0 {
			writeJSON(w, msgs)
			return
		}
	}

	msgs, err := a.DB.ListMessages(r.Context(), roomID, a.historyLimit())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if a.Cache != nil {
		if err := a.Cache.FillMessages(r.Context(), roomID, msgs); err != nil {
			a.Log.Error("rooms.cache.fill", "room", roomID, "err", err)
		}
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	writeJSON(w, msgs)
}

// AddMessage persists one chat message. Relay fan-out happens over the
// live channel; this endpoint only records history around it.
func (a *RoomsAPI) AddMessage(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")

	var req addMessageReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if roomID == "" || req.Username == "" || strings.TrimSpace(req.Content) == "" {
		http.Error(w, "invalid message", http.StatusBadRequest)
		return
	}

	if _, err := a.DB.GetRoom(r.Context(), roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m := store.Message{
		ID:        uuid.NewString(),
		Content:   req.Content,
		Username:  req.Username,
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
	}
	if err := a.DB.AddMessage(r.Context(), m); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if a.Cache != nil {
		if err := a.Cache.PushMessage(r.Context(), m); err != nil {
			a.Log.Error("rooms.cache.push", "room", roomID, "err", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(m)
}

func (a *RoomsAPI) historyLimit() int {
	if a.History > 0 {
		return a.History
	}
	return 100
}
