package program

import (
	"encoding/json"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/meryambn/mimiScaleUp-sub005/core"
)

// Candidature entity types
const (
	EntityStartup = "startup"
	EntityTeam    = "equipe"
)

type Program struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"nom"`
	Description string    `json:"description" db:"description"`
	StartDate   null.Time `json:"start_date" db:"date_debut"`
	EndDate     null.Time `json:"end_date" db:"date_fin"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// Phase is an ordered stage of a Program. Only the terminal phase may carry a winner.
type Phase struct {
	ID          int       `json:"id" db:"id"`
	ProgramID   int       `json:"program_id" db:"programme_id"`
	Name        string    `json:"name" db:"nom"`
	Description string    `json:"description" db:"description"`
	Position    int       `json:"position" db:"position"`
	StartDate   null.Time `json:"start_date" db:"date_debut"`
	EndDate     null.Time `json:"end_date" db:"date_fin"`
	IsTerminal  bool      `json:"is_terminal" db:"is_terminal"`
	WinnerID    null.Int  `json:"winner_candidature_id" db:"gagnant_candidature_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// Candidature is a team or startup tracked through the phases of one program.
type Candidature struct {
	ID         int       `json:"id" db:"id"`
	ProgramID  int       `json:"program_id" db:"programme_id"`
	PhaseID    int       `json:"phase_id" db:"phase_id"`
	EntityType string    `json:"entity_type" db:"entite_type"`
	EntityID   int       `json:"entity_id" db:"entite_id"`
	Name       string    `json:"name" db:"nom"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"` // UTC
	Members    []Member  `json:"members" db:"-"`
}

// Member is a user belonging to a Candidature.
type Member struct {
	UserID int    `json:"user_id" db:"id"`
	Name   string `json:"name" db:"name"`
	Email  string `json:"email" db:"email"`
	Role   string `json:"role" db:"role"`
}

func (m Member) Identity() core.Identity {
	return core.Identity{UserID: m.UserID, Role: m.Role}
}

// Transition is one entry of a candidature's phase history.
type Transition struct {
	ID              int       `json:"id" db:"id"`
	CandidatureID   int       `json:"candidature_id" db:"candidature_id"`
	PreviousPhaseID null.Int  `json:"previous_phase_id" db:"phase_precedente_id"`
	NewPhaseID      null.Int  `json:"new_phase_id" db:"nouvelle_phase_id"`
	Submission      null.JSON `json:"submission" db:"soumission"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"` // UTC
}

// Winner is a program's winning candidature, enriched with its members and the program.
type Winner struct {
	Program     Program     `json:"programme"`
	Phase       Phase       `json:"phase"`
	Candidature Candidature `json:"candidature"`
}

// NewProgram contains information needed to create a new Program.
type NewProgram struct {
	Name        string    `json:"name" validate:"required,notblank"`
	Description string    `json:"description"`
	StartDate   null.Time `json:"start_date"`
	EndDate     null.Time `json:"end_date"`
}

// NewPhase contains information needed to create a new Phase.
// A zero Position appends the phase after the program's last one.
type NewPhase struct {
	ProgramID   int       `json:"program_id" validate:"required,gt=0"`
	Name        string    `json:"name" validate:"required,notblank"`
	Description string    `json:"description"`
	Position    int       `json:"position" validate:"gte=0"`
	StartDate   null.Time `json:"start_date"`
	EndDate     null.Time `json:"end_date"`
	IsTerminal  bool      `json:"is_terminal"`
}

// UpdatePhase defines what information may be provided to modify an existing Phase.
type UpdatePhase struct {
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Position    *int      `json:"position" validate:"omitempty,gt=0"`
	StartDate   null.Time `json:"start_date"`
	EndDate     null.Time `json:"end_date"`
	IsTerminal  *bool     `json:"is_terminal"`
}

// NewCandidature enters a startup or a team in a program, at its first phase.
type NewCandidature struct {
	ProgramID  int    `json:"program_id" validate:"required,gt=0"`
	EntityType string `json:"entity_type" validate:"required,oneof=startup equipe"`
	EntityID   int    `json:"entity_id" validate:"required,gt=0"`
	Name       string `json:"name" validate:"required,notblank"`
	MemberIDs  []int  `json:"member_ids" validate:"omitempty,dive,gt=0"`
}

type AddMember struct {
	UserID int `json:"user_id" validate:"required,gt=0"`
}

// AdvanceRequest moves a candidature to a later phase of its program.
type AdvanceRequest struct {
	EntityType  string          `json:"entiteType" validate:"required,oneof=startup equipe"`
	EntityID    int             `json:"entiteId" validate:"required,gt=0"`
	NextPhaseID int             `json:"phaseNextId" validate:"required,gt=0"`
	ProgramID   int             `json:"programmeId" validate:"required,gt=0"`
	Submission  json.RawMessage `json:"soumission,omitempty"`
}

type AdvanceResult struct {
	Message       string `json:"message"`
	Name          string `json:"nom"`
	EntityType    string `json:"entiteType"`
	EntityID      int    `json:"entiteId"`
	PreviousPhase string `json:"phase_precedente"`
	NewPhase      string `json:"nouvelle_phase"`
	CandidatureID int    `json:"candidature_id"`
}

type DeclareWinnerRequest struct {
	PhaseID       int `json:"phaseId" validate:"required,gt=0"`
	CandidatureID int `json:"candidatureId" validate:"required,gt=0"`
}

type DeclareWinnerResult struct {
	Message       string `json:"message"`
	Phase         Phase  `json:"phase"`
	CandidatureID int    `json:"candidature_id"`
}
