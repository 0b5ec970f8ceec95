package notification

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/meryambn/mimiScaleUp-sub005/core"
)

// Types
const (
	TypeTeamCreation       = "team_creation"
	TypeTeamAddition       = "team_addition"
	TypePhaseAdvance       = "phase_advance"
	TypeWinnerAnnouncement = "winner_announcement"
	TypeProgramResult      = "program_result"
	TypeMessage            = "message"
)

var AllTypes = []string{
	TypeTeamCreation,
	TypeTeamAddition,
	TypePhaseAdvance,
	TypeWinnerAnnouncement,
	TypeProgramResult,
	TypeMessage,
}

// Notification is immutable once created, except for IsRead which only goes from false to true.
type Notification struct {
	ID            int       `json:"id" db:"id"`
	RecipientID   int       `json:"recipient_id" db:"destinataire_id"`
	RecipientRole string    `json:"recipient_role" db:"destinataire_role"`
	Type          string    `json:"type" db:"type"`
	Message       string    `json:"message" db:"message"`
	RelatedID     null.Int  `json:"related_id" db:"related_id"`
	ProgramID     null.Int  `json:"program_id" db:"programme_id"`
	CandidatureID null.Int  `json:"candidature_id" db:"candidature_id"`
	PhaseID       null.Int  `json:"phase_id" db:"phase_id"`
	IsRead        bool      `json:"is_read" db:"lu"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"` // UTC
}

func (n *Notification) Recipient() core.Identity {
	return core.Identity{UserID: n.RecipientID, Role: n.RecipientRole}
}

// NewNotification contains information needed to create a new Notification.
type NewNotification struct {
	Recipient     core.Identity `json:"recipient"`
	Type          string        `json:"type" validate:"required,oneof=team_creation team_addition phase_advance winner_announcement program_result message"`
	Message       string        `json:"message" validate:"required,notblank"`
	RelatedID     null.Int      `json:"related_id"`
	ProgramID     null.Int      `json:"program_id"`
	CandidatureID null.Int      `json:"candidature_id"`
	PhaseID       null.Int      `json:"phase_id"`
}

// UnreadCount is the payload of the unread-count endpoint.
type UnreadCount struct {
	Count int `json:"count"`
}
