package program

import (
	"context"

	"github.com/meryambn/mimiScaleUp-sub005/core"
)

var (
	// errors
	ErrWinnerExists     = core.NewConflictError("this program already has a winner")
	ErrCandidatureMoved = core.NewConflictError("the candidature changed phase concurrently, please retry")
	ErrEntityEnrolled   = core.NewConflictError("this entity already has a candidature in the program")
	ErrMemberExists     = core.NewConflictError("this user is already a member of the candidature")
	ErrTerminalExists   = core.NewConflictError("this program already has a terminal phase")
	ErrPositionTaken    = core.NewConflictError("another phase of the program has this position")
	ErrPhaseInUse       = core.NewConflictError("candidatures are still at this phase")
)

// Repository persists programs, phases, candidatures and their history.
// Missing rows are reported as *core.NotFoundError.
type Repository interface {
	CreateProgram(ctx context.Context, p Program) (Program, error)
	GetProgram(ctx context.Context, id int) (Program, error)
	QueryPrograms(ctx context.Context) ([]Program, error)
	DeleteProgram(ctx context.Context, id int) error

	// CreatePhase appends the phase after the program's last one when ph.Position is 0.
	CreatePhase(ctx context.Context, ph Phase) (Phase, error)
	GetPhase(ctx context.Context, id int) (Phase, error)
	// QueryPhases returns the program's phases ordered by position.
	QueryPhases(ctx context.Context, programID int) ([]Phase, error)
	UpdatePhase(ctx context.Context, ph Phase) (Phase, error)
	DeletePhase(ctx context.Context, id int) error

	CreateCandidature(ctx context.Context, c Candidature, memberIDs []int) (Candidature, error)
	GetCandidature(ctx context.Context, id int) (Candidature, error)
	GetCandidatureByEntity(ctx context.Context, programID int, entityType string, entityID int) (Candidature, error)
	QueryCandidatures(ctx context.Context, programID int) ([]Candidature, error)
	AddMember(ctx context.Context, candidatureID, userID int) error

	// AdvanceCandidature moves the candidature from t.PreviousPhaseID to t.NewPhaseID and records t,
	// atomically. It fails with ErrCandidatureMoved when the candidature is no longer at t.PreviousPhaseID.
	AdvanceCandidature(ctx context.Context, t Transition) (Candidature, error)
	QueryTransitions(ctx context.Context, candidatureID int) ([]Transition, error)

	// SetWinner sets the phase winner only if no phase of the program has one yet,
	// failing with ErrWinnerExists otherwise.
	SetWinner(ctx context.Context, phaseID, candidatureID int) (Phase, error)
	// GetWinnerPhase returns the program's phase carrying a winner.
	GetWinnerPhase(ctx context.Context, programID int) (Phase, error)
}
