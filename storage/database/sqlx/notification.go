package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
)

const notificationColumns = `id, destinataire_id, destinataire_role, type, message, related_id,
	programme_id, candidature_id, phase_id, lu, created_at`

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	q := `INSERT INTO notifications (destinataire_id, destinataire_role, type, message, related_id,
			programme_id, candidature_id, phase_id, lu, created_at)
		VALUES (:destinataire_id, :destinataire_role, :type, :message, :related_id,
			:programme_id, :candidature_id, :phase_id, :lu, :created_at)
		RETURNING id`
	rows, err := repo.db.NamedQueryContext(ctx, q, n)
	if err != nil {
		return notification.Notification{}, conflictOrWrap(err, "inserting notification")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&n.ID); err != nil {
			return notification.Notification{}, errors.Wrap(err, "scanning notification id")
		}
	}
	return n, errors.Wrap(rows.Err(), "inserting notification")
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id int) (notification.Notification, error) {
	var n notification.Notification
	err := getOne(ctx, repo.db, &n, notification.ErrNotFound,
		"SELECT "+notificationColumns+" FROM notifications WHERE id = $1", id)
	return n, err
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, recipient core.Identity) ([]notification.Notification, error) {
	notifs := make([]notification.Notification, 0)
	q := "SELECT " + notificationColumns + ` FROM notifications
		WHERE destinataire_id = $1 AND destinataire_role = $2
		ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &notifs, q, recipient.UserID, recipient.Role); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return notifs, nil
}

func (repo *notificationRepository) MarkAsRead(ctx context.Context, id int) (notification.Notification, error) {
	var n notification.Notification
	err := getOne(ctx, repo.db, &n, notification.ErrNotFound,
		"UPDATE notifications SET lu = TRUE WHERE id = $1 RETURNING "+notificationColumns, id)
	return n, err
}

func (repo *notificationRepository) MarkAllAsRead(ctx context.Context, recipient core.Identity) (int, error) {
	q := "UPDATE notifications SET lu = TRUE WHERE destinataire_id = $1 AND destinataire_role = $2 AND NOT lu"
	res, err := repo.db.ExecContext(ctx, q, recipient.UserID, recipient.Role)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications as read")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "counting affected rows")
}

func (repo *notificationRepository) CountUnread(ctx context.Context, recipient core.Identity) (int, error) {
	var count int
	q := "SELECT COUNT(*) FROM notifications WHERE destinataire_id = $1 AND destinataire_role = $2 AND NOT lu"
	if err := repo.db.GetContext(ctx, &count, q, recipient.UserID, recipient.Role); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}
