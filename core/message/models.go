package message

import (
	"time"

	"github.com/meryambn/mimiScaleUp-sub005/core"
)

// Message is immutable once created, except for IsRead which only goes from false to true.
type Message struct {
	ID            int       `json:"id" db:"id"`
	SenderID      int       `json:"sender_id" db:"expediteur_id"`
	SenderRole    string    `json:"sender_role" db:"expediteur_role"`
	RecipientID   int       `json:"recipient_id" db:"destinataire_id"`
	RecipientRole string    `json:"recipient_role" db:"destinataire_role"`
	Content       string    `json:"content" db:"contenu"`
	IsRead        bool      `json:"is_read" db:"lu"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"` // UTC
}

func (m *Message) Sender() core.Identity {
	return core.Identity{UserID: m.SenderID, Role: m.SenderRole}
}

func (m *Message) Recipient() core.Identity {
	return core.Identity{UserID: m.RecipientID, Role: m.RecipientRole}
}

// NewMessage contains information needed to send a Message.
type NewMessage struct {
	Sender    core.Identity `json:"-"`
	Recipient core.Identity `json:"recipient"`
	Content   string        `json:"content" validate:"required,notblank,max=5000"`
	TempID    string        `json:"tempId,omitempty"`
}

// Contact is a user the caller may chat with.
type Contact struct {
	UserID int    `json:"id" db:"id"`
	Role   string `json:"role" db:"role"`
	Name   string `json:"name" db:"name"`
	Email  string `json:"email" db:"email"`
}

// Conversation summarizes the exchange with one peer.
type Conversation struct {
	PeerID      int     `json:"peer_id" db:"peer_id"`
	PeerRole    string  `json:"peer_role" db:"peer_role"`
	PeerName    string  `json:"peer_name" db:"peer_name"`
	LastMessage Message `json:"last_message" db:"-"`
	UnreadCount int     `json:"unread_count" db:"unread_count"`
}

// Realtime payloads

type (
	PrivateMessagePayload struct {
		ReceiverID   int    `json:"receiverId"`
		ReceiverRole string `json:"receiverRole"`
		Content      string `json:"content"`
		TempID       string `json:"tempId,omitempty"`
	}

	MessageSentPayload struct {
		Message Message `json:"message"`
		TempID  string  `json:"tempId,omitempty"`
	}

	MarkReadPayload struct {
		MessageID int `json:"messageId"`
	}

	MarkAllReadPayload struct {
		SenderID   int    `json:"senderId"`
		SenderRole string `json:"senderRole"`
	}

	MessageReadPayload struct {
		MessageIDs []int  `json:"messageIds"`
		ReaderID   int    `json:"readerId"`
		ReaderRole string `json:"readerRole"`
	}

	TypingPayload struct {
		ReceiverID   int    `json:"receiverId,omitempty"`
		ReceiverRole string `json:"receiverRole,omitempty"`
		SenderID     int    `json:"senderId,omitempty"`
		SenderRole   string `json:"senderRole,omitempty"`
	}

	ErrorPayload struct {
		Error string `json:"error"`
	}
)
