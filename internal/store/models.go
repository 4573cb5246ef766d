package store

import "time"

type User struct {
	ID        string
	Username  string
	Status    string // online | offline
	CreatedAt time.Time
}

type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	RoomID    string    `json:"roomId"`
	Timestamp time.Time `json:"timestamp"`
}
