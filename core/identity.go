package core

import (
	"strconv"
)

// Identity addresses a user across the notification and messaging subsystems.
// Users are keyed by (id, role): the same numeric id under another role is another recipient.
type Identity struct {
	UserID int    `json:"userId" validate:"required,gt=0"`
	Role   string `json:"role" validate:"required"`
}

func NewIdentity(userID int, role string) Identity {
	return Identity{UserID: userID, Role: CleanString(role, true /* lower */)}
}

// ParseIdentity parses path/query params into an Identity.
func ParseIdentity(userID, role string) (Identity, error) {
	id, err := strconv.Atoi(CleanString(userID))
	if err != nil || id <= 0 {
		return Identity{}, NewValidationError(nil, FieldError{Field: "userId", Error: "invalid user id"})
	}
	role = CleanString(role, true /* lower */)
	if role == "" {
		return Identity{}, NewValidationError(nil, FieldError{Field: "userRole", Error: "this field is required"})
	}
	return Identity{UserID: id, Role: role}, nil
}

func (id Identity) IsZero() bool {
	return id.UserID == 0 && id.Role == ""
}

func (id Identity) String() string {
	return id.Role + ":" + strconv.Itoa(id.UserID)
}

// Pusher delivers events to connected clients. Delivery is best effort:
// Push reports whether at least one live connection of `to` accepted the event.
type Pusher interface {
	Push(to Identity, event string, payload interface{}) bool
}

// Realtime event names.
const (
	EventPrivateMessage      = "private-message"
	EventMessageSent         = "message-sent"
	EventMessageRead         = "message-read"
	EventMarkMessageRead     = "mark-message-read"
	EventMarkAllMessagesRead = "mark-all-messages-read"
	EventTyping              = "typing"
	EventStopTyping          = "stop-typing"
	EventNewNotification     = "new-notification"
	EventError               = "error"
)
