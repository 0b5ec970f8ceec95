package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core"
)

var ErrNotFound = core.NewNotFoundError("notification")

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		GetNotification(ctx context.Context, id int) (Notification, error)
		// QueryNotifications returns the recipient's notifications, newest first (created_at DESC, id DESC).
		QueryNotifications(ctx context.Context, recipient core.Identity) ([]Notification, error)
		// MarkAsRead sets the read flag; it returns ErrNotFound when no such notification exists.
		MarkAsRead(ctx context.Context, id int) (Notification, error)
		MarkAllAsRead(ctx context.Context, recipient core.Identity) (int, error)
		CountUnread(ctx context.Context, recipient core.Identity) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nn NewNotification) (Notification, error)
		CreateMany(ctx context.Context, nns ...NewNotification) ([]Notification, error)
		Get(ctx context.Context, id int) (Notification, error)
		MarkAsRead(ctx context.Context, id int) (Notification, error)
		MarkAllAsRead(ctx context.Context, recipient core.Identity) (int, error)
		Fetch(ctx context.Context, recipient core.Identity) ([]Notification, error)
		UnreadCount(ctx context.Context, recipient core.Identity) (int, error)
	}

	// Service persists notifications and pushes them to connected recipients.
	// The stored row is the source of truth: a failed push is only logged.
	Service struct {
		repo      Repository
		pusher    core.Pusher
		validator *core.Validator
		logger    core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, pusher core.Pusher, validator *core.Validator, logger core.Logger) *Service {
	return &Service{
		repo:      repo,
		pusher:    pusher,
		validator: validator,
		logger:    logger,
	}
}

func (svc *Service) Create(ctx context.Context, nn NewNotification) (Notification, error) {
	nn.Message = core.CleanString(nn.Message)
	nn.Recipient.Role = core.CleanString(nn.Recipient.Role, true /* lower */)
	if err := svc.validator.Struct(&nn); err != nil {
		return Notification{}, err
	}

	n, err := svc.repo.CreateNotification(ctx, Notification{
		RecipientID:   nn.Recipient.UserID,
		RecipientRole: nn.Recipient.Role,
		Type:          nn.Type,
		Message:       nn.Message,
		RelatedID:     nn.RelatedID,
		ProgramID:     nn.ProgramID,
		CandidatureID: nn.CandidatureID,
		PhaseID:       nn.PhaseID,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return Notification{}, errors.Wrap(err, "inserting notification")
	}

	svc.push(n)
	return n, nil
}

func (svc *Service) push(n Notification) {
	if svc.pusher == nil {
		return
	}
	if !svc.pusher.Push(n.Recipient(), core.EventNewNotification, n) {
		svc.logger.Debug(fmt.Sprintf("notification %d not pushed: %s is offline", n.ID, n.Recipient()))
	}
}

// CreateMany creates one notification per entry. A failing entry does not stop the others;
// the first error is returned along with the created notifications.
func (svc *Service) CreateMany(ctx context.Context, nns ...NewNotification) ([]Notification, error) {
	var firstErr error
	created := make([]Notification, 0, len(nns))
	for _, nn := range nns {
		n, err := svc.Create(ctx, nn)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("creating %s notification for %s: %v", nn.Type, nn.Recipient, err), err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created = append(created, n)
	}
	return created, firstErr
}

func (svc *Service) Get(ctx context.Context, id int) (Notification, error) {
	return svc.repo.GetNotification(ctx, id)
}

// MarkAsRead is idempotent: marking an already read notification is not an error.
func (svc *Service) MarkAsRead(ctx context.Context, id int) (Notification, error) {
	return svc.repo.MarkAsRead(ctx, id)
}

func (svc *Service) MarkAllAsRead(ctx context.Context, recipient core.Identity) (int, error) {
	return svc.repo.MarkAllAsRead(ctx, recipient)
}

func (svc *Service) Fetch(ctx context.Context, recipient core.Identity) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, recipient)
}

func (svc *Service) UnreadCount(ctx context.Context, recipient core.Identity) (int, error) {
	return svc.repo.CountUnread(ctx, recipient)
}
