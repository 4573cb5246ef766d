package relay

import "time"

// Frame type tags, client->server and server->client.
const (
	TypeAuth                  = "auth"
	TypeJoinRoom              = "join_room"
	TypeChatMessage           = "chat_message"
	TypeTyping                = "typing"
	TypeUserStatus            = "user_status"
	TypeUserTyping            = "user_typing"
	TypeStopTyping            = "stop_typing"
	TypeConnectionEstablished = "connection_established"
	TypeError                 = "error"
)

// Presence statuses carried by user_status frames.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Frame is one JSON message on the wire. Fields are populated
// per type; everything else stays empty and is omitted.
type Frame struct {
	Type     string   `json:"type"`
	Username string   `json:"username,omitempty"`
	RoomID   string   `json:"roomId,omitempty"`
	Content  string   `json:"content,omitempty"`
	Status   string   `json:"status,omitempty"`
	Message  *Message `json:"message,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Message is a relayed chat message. Immutable once built.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	RoomID    string    `json:"roomId"`
	Timestamp time.Time `json:"timestamp"`
}

// statusFrame builds a user_status broadcast frame
func statusFrame(username, status string) Frame {
	return Frame{Type: TypeUserStatus, Username: username, Status: status}
}

// typingFrame builds a user_typing or stop_typing room frame
func typingFrame(typ, roomID, username string) Frame {
	return Frame{Type: typ, Username: username, RoomID: roomID}
}

// messageFrame wraps a chat message for delivery
func messageFrame(m Message) Frame {
	return Frame{Type: TypeChatMessage, Message: &m}
}

// errorFrame reports a per-connection error back to the sender only
func errorFrame(msg string) Frame {
	return Frame{Type: TypeError, Error: msg}
}
