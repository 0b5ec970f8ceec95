package message

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meryambn/mimiScaleUp-sub005/core"
)

// Relay handles the chat events received from a realtime connection.
type Relay struct {
	svc ServiceInterface
}

func NewRelay(svc ServiceInterface) *Relay {
	return &Relay{svc: svc}
}

// HandleEvent dispatches an inbound event sent by `from`. The returned error is meant for the sender only.
func (r *Relay) HandleEvent(ctx context.Context, from core.Identity, event string, data json.RawMessage) error {
	switch event {
	case core.EventPrivateMessage:
		var p PrivateMessagePayload
		if err := decode(data, &p); err != nil {
			return err
		}
		_, err := r.svc.Send(ctx, NewMessage{
			Sender:    from,
			Recipient: core.NewIdentity(p.ReceiverID, p.ReceiverRole),
			Content:   p.Content,
			TempID:    p.TempID,
		})
		return err

	case core.EventMarkMessageRead:
		var p MarkReadPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		_, err := r.svc.MarkRead(ctx, from, p.MessageID)
		return err

	case core.EventMarkAllMessagesRead:
		var p MarkAllReadPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		sender := core.NewIdentity(p.SenderID, p.SenderRole)
		if sender.UserID <= 0 || sender.Role == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "senderId", Error: "invalid sender"})
		}
		_, err := r.svc.MarkAllRead(ctx, from, sender)
		return err

	case core.EventTyping, core.EventStopTyping:
		var p TypingPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		to := core.NewIdentity(p.ReceiverID, p.ReceiverRole)
		if to.UserID <= 0 || to.Role == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "receiverId", Error: "invalid receiver"})
		}
		r.svc.Typing(from, to, event == core.EventTyping)
		return nil

	default:
		return core.NewValidationError(fmt.Errorf("unknown event %q", event))
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return core.NewValidationError(fmt.Errorf("missing event data"))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.NewValidationError(fmt.Errorf("invalid event data: %v", err))
	}
	return nil
}
