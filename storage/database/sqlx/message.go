package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/message"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
)

const messageColumns = "id, expediteur_id, expediteur_role, destinataire_id, destinataire_role, contenu, lu, created_at"

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) message.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, m message.Message) (message.Message, error) {
	q := `INSERT INTO messages (expediteur_id, expediteur_role, destinataire_id, destinataire_role, contenu, lu, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := repo.db.GetContext(ctx, &m.ID, q,
		m.SenderID, m.SenderRole, m.RecipientID, m.RecipientRole, m.Content, m.IsRead, m.CreatedAt)
	if err != nil {
		return message.Message{}, errors.Wrap(err, "inserting message")
	}
	return m, nil
}

func (repo *messageRepository) GetMessage(ctx context.Context, id int) (message.Message, error) {
	var m message.Message
	err := getOne(ctx, repo.db, &m, message.ErrNotFound, "SELECT "+messageColumns+" FROM messages WHERE id = $1", id)
	return m, err
}

func (repo *messageRepository) MarkAsRead(ctx context.Context, id int) (message.Message, error) {
	var m message.Message
	err := getOne(ctx, repo.db, &m, message.ErrNotFound,
		"UPDATE messages SET lu = TRUE WHERE id = $1 RETURNING "+messageColumns, id)
	return m, err
}

func (repo *messageRepository) MarkAllAsRead(ctx context.Context, reader, sender core.Identity) ([]int, error) {
	q := `UPDATE messages SET lu = TRUE
		WHERE destinataire_id = $1 AND destinataire_role = $2 AND expediteur_id = $3 AND expediteur_role = $4 AND NOT lu
		RETURNING id`
	ids := make([]int, 0)
	if err := repo.db.SelectContext(ctx, &ids, q, reader.UserID, reader.Role, sender.UserID, sender.Role); err != nil {
		return nil, errors.Wrap(err, "marking messages as read")
	}
	return ids, nil
}

func (repo *messageRepository) QueryConversation(ctx context.Context, a, b core.Identity) ([]message.Message, error) {
	q := "SELECT " + messageColumns + ` FROM messages
		WHERE (expediteur_id = $1 AND expediteur_role = $2 AND destinataire_id = $3 AND destinataire_role = $4)
		   OR (expediteur_id = $3 AND expediteur_role = $4 AND destinataire_id = $1 AND destinataire_role = $2)
		ORDER BY created_at, id`
	msgs := make([]message.Message, 0)
	if err := repo.db.SelectContext(ctx, &msgs, q, a.UserID, a.Role, b.UserID, b.Role); err != nil {
		return nil, errors.Wrap(err, "querying conversation")
	}
	return msgs, nil
}

type conversationRow struct {
	message.Message
	PeerID      int    `db:"peer_id"`
	PeerRole    string `db:"peer_role"`
	PeerName    string `db:"peer_name"`
	UnreadCount int    `db:"unread_count"`
}

func (repo *messageRepository) QueryConversations(ctx context.Context, id core.Identity) ([]message.Conversation, error) {
	q := `WITH exchanged AS (
			SELECT m.*,
				CASE WHEN m.expediteur_id = $1 AND m.expediteur_role = $2 THEN m.destinataire_id ELSE m.expediteur_id END AS peer_id,
				CASE WHEN m.expediteur_id = $1 AND m.expediteur_role = $2 THEN m.destinataire_role ELSE m.expediteur_role END AS peer_role
			FROM messages m
			WHERE (m.expediteur_id = $1 AND m.expediteur_role = $2) OR (m.destinataire_id = $1 AND m.destinataire_role = $2)
		), unread AS (
			SELECT peer_id, peer_role, COUNT(*) AS unread_count
			FROM exchanged
			WHERE destinataire_id = $1 AND destinataire_role = $2 AND NOT lu
			GROUP BY peer_id, peer_role
		), last AS (
			SELECT DISTINCT ON (peer_id, peer_role) *
			FROM exchanged
			ORDER BY peer_id, peer_role, created_at DESC, id DESC
		)
		SELECT l.id, l.expediteur_id, l.expediteur_role, l.destinataire_id, l.destinataire_role, l.contenu, l.lu, l.created_at,
			l.peer_id, l.peer_role, COALESCE(u.name, '') AS peer_name, COALESCE(un.unread_count, 0) AS unread_count
		FROM last l
		LEFT JOIN utilisateur u ON u.id = l.peer_id AND u.role = l.peer_role
		LEFT JOIN unread un ON un.peer_id = l.peer_id AND un.peer_role = l.peer_role
		ORDER BY l.created_at DESC, l.id DESC`

	var rows []conversationRow
	if err := repo.db.SelectContext(ctx, &rows, q, id.UserID, id.Role); err != nil {
		return nil, errors.Wrap(err, "querying conversations")
	}
	convs := make([]message.Conversation, 0, len(rows))
	for _, r := range rows {
		convs = append(convs, message.Conversation{
			PeerID:      r.PeerID,
			PeerRole:    r.PeerRole,
			PeerName:    r.PeerName,
			LastMessage: r.Message,
			UnreadCount: r.UnreadCount,
		})
	}
	return convs, nil
}

// QueryContacts lists the active users `id` may chat with: everyone for an admin,
// users of the other roles otherwise.
func (repo *messageRepository) QueryContacts(ctx context.Context, id core.Identity) ([]message.Contact, error) {
	q := `SELECT id, role, name, email FROM utilisateur
		WHERE is_active AND NOT (id = $1 AND role = $2) AND ($2 = $3 OR role <> $2)
		ORDER BY lower(name), id`
	contacts := make([]message.Contact, 0)
	if err := repo.db.SelectContext(ctx, &contacts, q, id.UserID, id.Role, user.RoleAdmin); err != nil {
		return nil, errors.Wrap(err, "querying contacts")
	}
	return contacts, nil
}
