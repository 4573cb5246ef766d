package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chat-relay/internal/store"
	"chat-relay/pkg/auth"
)

// UserStore is the slice of the store the user endpoints need
type UserStore interface {
	CreateUser(ctx context.Context, username, password string) (store.User, error)
	VerifyUser(ctx context.Context, username, password string) (store.User, error)
	GetUser(ctx context.Context, username string) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	UpdateUserStatus(ctx context.Context, username, status string) error
}

// StatusSource answers presence queries from the live relay; the REST
// surface prefers it over the persisted mirror when available
type StatusSource interface {
	StatusOf(username string) string
}

type UsersAPI struct {
	DB   UserStore
	JWT  *auth.JWT
	Live StatusSource // optional
}

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

type loginResp struct {
	userDTO
	Token string `json:"token"`
}

type statusReq struct {
	Status string `json:"status"`
}

func (a *UsersAPI) dto(u store.User) userDTO {
	status := u.Status
	if a.Live != nil {
		status = a.Live.StatusOf(u.Username)
	}
	if status == "" {
		status = "offline"
	}
	return userDTO{ID: u.ID, Username: u.Username, Status: status}
}

// Register handles user signup
func (a *UsersAPI) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if req.Username == "" || len(req.Password) < 8 {
		http.Error(w, "invalid username or weak password", http.StatusBadRequest)
		return
	}

	u, err := a.DB.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, "username already in use", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(a.dto(u))
}

// Login verifies credentials and returns the user plus a JWT
func (a *UsersAPI) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	u, err := a.DB.VerifyUser(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	// Token for 24hrs
	tok, _ := a.JWT.Sign(u.Username, 24*time.Hour)
	writeJSON(w, loginResp{userDTO: a.dto(u), Token: tok})
}

// List returns all users with their presence status
func (a *UsersAPI) List(w http.ResponseWriter, r *http.Request) {
	users, err := a.DB.ListUsers(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]userDTO, 0, len(users))
	for _, u := range users {
		resp = append(resp, a.dto(u))
	}
	writeJSON(w, resp)
}

// Get returns one user by username
func (a *UsersAPI) Get(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	u, err := a.DB.GetUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, a.dto(u))
}

// UpdateStatus writes a user's status through the directory. Only the
// authenticated user may update their own row.
func (a *UsersAPI) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if auth.Username(r.Context()) != username {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if req.Status != "online" && req.Status != "offline" {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	if err := a.DB.UpdateUserStatus(r.Context(), username, req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	u, err := a.DB.GetUser(r.Context(), username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, userDTO{ID: u.ID, Username: u.Username, Status: u.Status})
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
