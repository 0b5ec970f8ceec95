package message

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
)

var (
	ErrNotFound     = core.NewNotFoundError("message")
	errSelfMessage  = core.NewValidationError(nil, core.FieldError{Field: "recipient", Error: "cannot send a message to yourself"})
	errNotRecipient = core.NewValidationError(nil, core.FieldError{Field: "messageId", Error: "only the recipient can mark a message as read"})
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message) (Message, error)
		GetMessage(ctx context.Context, id int) (Message, error)
		MarkAsRead(ctx context.Context, id int) (Message, error)
		// MarkAllAsRead marks every unread message from `sender` to `reader` as read and returns their ids.
		MarkAllAsRead(ctx context.Context, reader, sender core.Identity) ([]int, error)
		// QueryConversation returns the messages exchanged between a and b, oldest first.
		QueryConversation(ctx context.Context, a, b core.Identity) ([]Message, error)
		// QueryConversations returns one summary per peer of `id`, most recent first.
		QueryConversations(ctx context.Context, id core.Identity) ([]Conversation, error)
		QueryContacts(ctx context.Context, id core.Identity) ([]Contact, error)
	}

	// Notifier stores the notification surfacing a message sent to an offline user.
	Notifier interface {
		Create(ctx context.Context, nn notification.NewNotification) (notification.Notification, error)
	}

	ServiceInterface interface {
		Send(ctx context.Context, nm NewMessage) (Message, error)
		MarkRead(ctx context.Context, reader core.Identity, messageID int) (Message, error)
		MarkAllRead(ctx context.Context, reader, sender core.Identity) ([]int, error)
		Conversation(ctx context.Context, a, b core.Identity) ([]Message, error)
		Conversations(ctx context.Context, id core.Identity) ([]Conversation, error)
		Contacts(ctx context.Context, id core.Identity) ([]Contact, error)
		Typing(from, to core.Identity, typing bool)
	}

	// Service stores messages and relays them to connected users.
	// The stored rows are authoritative; pushes are best effort.
	Service struct {
		repo      Repository
		pusher    core.Pusher
		notifier  Notifier
		validator *core.Validator
		logger    core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	pusher core.Pusher,
	notifier Notifier,
	validator *core.Validator,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		pusher:    pusher,
		notifier:  notifier,
		validator: validator,
		logger:    logger,
	}
}

// Send persists the message, forwards it to the recipient and acknowledges it to the sender.
func (svc *Service) Send(ctx context.Context, nm NewMessage) (Message, error) {
	nm.Content = core.CleanString(nm.Content)
	nm.Recipient.Role = core.CleanString(nm.Recipient.Role, true /* lower */)
	if err := svc.validator.Struct(&nm); err != nil {
		return Message{}, err
	}
	if nm.Sender == nm.Recipient {
		return Message{}, errSelfMessage
	}

	msg, err := svc.repo.CreateMessage(ctx, Message{
		SenderID:      nm.Sender.UserID,
		SenderRole:    nm.Sender.Role,
		RecipientID:   nm.Recipient.UserID,
		RecipientRole: nm.Recipient.Role,
		Content:       nm.Content,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "inserting message")
	}

	if !svc.pusher.Push(msg.Recipient(), core.EventPrivateMessage, msg) {
		// surfaces on the recipient's next notifications fetch
		_, err := svc.notifier.Create(ctx, notification.NewNotification{
			Recipient: msg.Recipient(),
			Type:      notification.TypeMessage,
			Message:   "You have a new message.",
			RelatedID: null.IntFrom(msg.ID),
		})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("creating message notification: %v", err), err)
		}
	}
	svc.pusher.Push(msg.Sender(), core.EventMessageSent, MessageSentPayload{Message: msg, TempID: nm.TempID})
	return msg, nil
}

// MarkRead is idempotent; the sender is told only when the flag actually changes.
func (svc *Service) MarkRead(ctx context.Context, reader core.Identity, messageID int) (Message, error) {
	msg, err := svc.repo.GetMessage(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	if msg.Recipient() != reader {
		return Message{}, errNotRecipient
	}
	if msg.IsRead {
		return msg, nil
	}

	if msg, err = svc.repo.MarkAsRead(ctx, messageID); err != nil {
		return Message{}, err
	}
	svc.pusher.Push(msg.Sender(), core.EventMessageRead, MessageReadPayload{
		MessageIDs: []int{msg.ID},
		ReaderID:   reader.UserID,
		ReaderRole: reader.Role,
	})
	return msg, nil
}

func (svc *Service) MarkAllRead(ctx context.Context, reader, sender core.Identity) ([]int, error) {
	ids, err := svc.repo.MarkAllAsRead(ctx, reader, sender)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		svc.pusher.Push(sender, core.EventMessageRead, MessageReadPayload{
			MessageIDs: ids,
			ReaderID:   reader.UserID,
			ReaderRole: reader.Role,
		})
	}
	return ids, nil
}

func (svc *Service) Conversation(ctx context.Context, a, b core.Identity) ([]Message, error) {
	return svc.repo.QueryConversation(ctx, a, b)
}

func (svc *Service) Conversations(ctx context.Context, id core.Identity) ([]Conversation, error) {
	return svc.repo.QueryConversations(ctx, id)
}

func (svc *Service) Contacts(ctx context.Context, id core.Identity) ([]Contact, error) {
	return svc.repo.QueryContacts(ctx, id)
}

// Typing forwards a typing indicator if `to` is connected. Nothing is stored.
func (svc *Service) Typing(from, to core.Identity, typing bool) {
	event := core.EventStopTyping
	if typing {
		event = core.EventTyping
	}
	svc.pusher.Push(to, event, TypingPayload{SenderID: from.UserID, SenderRole: from.Role})
}
