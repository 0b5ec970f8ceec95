package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/message"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
)

type messageRepository struct {
	db *DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) message.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(_ context.Context, m message.Message) (message.Message, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	m.ID = repo.db.nextID("message")
	repo.db.messages[m.ID] = &m
	return m, nil
}

func (repo *messageRepository) GetMessage(_ context.Context, id int) (message.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.messages[id]; ok {
		return *m, nil
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) MarkAsRead(_ context.Context, id int) (message.Message, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	m, ok := repo.db.messages[id]
	if !ok {
		return message.Message{}, message.ErrNotFound
	}
	m.IsRead = true
	return *m, nil
}

func (repo *messageRepository) MarkAllAsRead(_ context.Context, reader, sender core.Identity) ([]int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ids := make([]int, 0)
	for _, m := range repo.db.messages {
		if !m.IsRead && m.Recipient() == reader && m.Sender() == sender {
			m.IsRead = true
			ids = append(ids, m.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *messageRepository) QueryConversation(_ context.Context, a, b core.Identity) ([]message.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	msgs := make([]message.Message, 0)
	for _, m := range repo.db.messages {
		if (m.Sender() == a && m.Recipient() == b) || (m.Sender() == b && m.Recipient() == a) {
			msgs = append(msgs, *m)
		}
	}
	sortMessages(msgs)
	return msgs, nil
}

func (repo *messageRepository) QueryConversations(_ context.Context, id core.Identity) ([]message.Conversation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	msgs := make([]message.Message, 0)
	for _, m := range repo.db.messages {
		if m.Sender() == id || m.Recipient() == id {
			msgs = append(msgs, *m)
		}
	}
	sortMessages(msgs)

	byPeer := make(map[core.Identity]*message.Conversation)
	for i := range msgs {
		m := msgs[i]
		peer := m.Recipient()
		if peer == id {
			peer = m.Sender()
		}
		conv, ok := byPeer[peer]
		if !ok {
			conv = &message.Conversation{PeerID: peer.UserID, PeerRole: peer.Role}
			if u, ok := repo.db.users[peer.UserID]; ok && u.Role == peer.Role {
				conv.PeerName = u.Name
			}
			byPeer[peer] = conv
		}
		conv.LastMessage = m
		if m.Recipient() == id && !m.IsRead {
			conv.UnreadCount++
		}
	}

	convs := make([]message.Conversation, 0, len(byPeer))
	for _, conv := range byPeer {
		convs = append(convs, *conv)
	}
	sort.Slice(convs, func(i, j int) bool {
		a, b := convs[i].LastMessage, convs[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return convs, nil
}

// QueryContacts lists the active users `id` may chat with: everyone for an admin,
// users of the other roles otherwise.
func (repo *messageRepository) QueryContacts(_ context.Context, id core.Identity) ([]message.Contact, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	contacts := make([]message.Contact, 0)
	for _, u := range repo.db.users {
		if !u.IsActive || u.Identity() == id {
			continue
		}
		if id.Role != user.RoleAdmin && u.Role == id.Role {
			continue
		}
		contacts = append(contacts, message.Contact{UserID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email})
	}
	sort.Slice(contacts, func(i, j int) bool {
		if c := strings.Compare(strings.ToLower(contacts[i].Name), strings.ToLower(contacts[j].Name)); c != 0 {
			return c < 0
		}
		return contacts[i].UserID < contacts[j].UserID
	})
	return contacts, nil
}

func sortMessages(msgs []message.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}
