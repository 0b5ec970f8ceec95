package planning

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Task statuses
const (
	TaskTodo       = "a_faire"
	TaskInProgress = "en_cours"
	TaskDone       = "termine"
)

// Criterion types
const (
	CriterionNumeric = "numerique"
	CriterionStars   = "etoiles"
	CriterionYesNo   = "oui_non"
	CriterionList    = "liste"
)

// Criterion fillers
const (
	FilledByMentors = "mentors"
	FilledByTeams   = "equipes"
)

type Meeting struct {
	ID          int       `json:"id" db:"id"`
	PhaseID     int       `json:"phase_id" db:"phase_id"`
	Title       string    `json:"title" db:"titre"`
	Description string    `json:"description" db:"description"`
	Date        time.Time `json:"date" db:"date"`
	Location    string    `json:"location" db:"lieu"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type NewMeeting struct {
	PhaseID     int       `json:"phase_id" validate:"required,gt=0"`
	Title       string    `json:"title" validate:"required,notblank"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location"`
}

type UpdateMeeting struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
}

type Task struct {
	ID          int       `json:"id" db:"id"`
	PhaseID     int       `json:"phase_id" db:"phase_id"`
	Title       string    `json:"title" db:"titre"`
	Description string    `json:"description" db:"description"`
	DueDate     null.Time `json:"due_date" db:"date_echeance"`
	Status      string    `json:"status" db:"statut"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type NewTask struct {
	PhaseID     int       `json:"phase_id" validate:"required,gt=0"`
	Title       string    `json:"title" validate:"required,notblank"`
	Description string    `json:"description"`
	DueDate     null.Time `json:"due_date"`
	Status      string    `json:"status" validate:"omitempty,oneof=a_faire en_cours termine"`
}

type Deliverable struct {
	ID          int       `json:"id" db:"id"`
	PhaseID     int       `json:"phase_id" db:"phase_id"`
	Name        string    `json:"name" db:"nom"`
	Description string    `json:"description" db:"description"`
	DueDate     null.Time `json:"due_date" db:"date_echeance"`
	FileTypes   string    `json:"file_types" db:"types_fichiers"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type NewDeliverable struct {
	PhaseID     int       `json:"phase_id" validate:"required,gt=0"`
	Name        string    `json:"name" validate:"required,notblank"`
	Description string    `json:"description"`
	DueDate     null.Time `json:"due_date"`
	FileTypes   string    `json:"file_types"`
}

// Criterion is an evaluation criterion of a phase. Each weight is within [0, 100];
// the weights of a phase are not required to sum to 100.
type Criterion struct {
	ID                 int       `json:"id" db:"id"`
	PhaseID            int       `json:"phase_id" db:"phase_id"`
	Name               string    `json:"name" db:"nom"`
	Type               string    `json:"type" db:"type"`
	Weight             int       `json:"weight" db:"poids"`
	FilledBy           string    `json:"filled_by" db:"rempli_par"`
	ValidationRequired bool      `json:"validation_required" db:"necessite_validation"`
	Options            []string  `json:"options" db:"-"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"` // UTC
}

type NewCriterion struct {
	PhaseID            int      `json:"phase_id" validate:"required,gt=0"`
	Name               string   `json:"name" validate:"required,notblank"`
	Type               string   `json:"type" validate:"required,oneof=numerique etoiles oui_non liste"`
	Weight             int      `json:"weight" validate:"gte=0,lte=100"`
	FilledBy           string   `json:"filled_by" validate:"required,oneof=mentors equipes"`
	ValidationRequired bool     `json:"validation_required"`
	Options            []string `json:"options" validate:"omitempty,dive,required"`
}

// CriteriaList is the evaluation grid of a phase. TotalWeight lets clients warn when it differs from 100.
type CriteriaList struct {
	Criteria    []Criterion `json:"criteria"`
	TotalWeight int         `json:"total_weight"`
}
