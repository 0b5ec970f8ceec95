package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
)

const (
	programColumns     = "id, nom, description, date_debut, date_fin, created_at"
	phaseColumns       = "id, programme_id, nom, description, position, date_debut, date_fin, is_terminal, gagnant_candidature_id, created_at"
	candidatureColumns = "id, programme_id, phase_id, entite_type, entite_id, nom, created_at, updated_at"
	transitionColumns  = "id, candidature_id, phase_precedente_id, nouvelle_phase_id, soumission, created_at"
)

type programRepository struct {
	db *sqlx.DB
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *sqlx.DB) program.Repository {
	return &programRepository{db: db}
}

// Programs

func (repo *programRepository) CreateProgram(ctx context.Context, p program.Program) (program.Program, error) {
	q := `INSERT INTO programme (nom, description, date_debut, date_fin, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + programColumns
	var created program.Program
	if err := repo.db.GetContext(ctx, &created, q, p.Name, p.Description, p.StartDate, p.EndDate, p.CreatedAt); err != nil {
		return program.Program{}, errors.Wrap(err, "inserting program")
	}
	return created, nil
}

func (repo *programRepository) GetProgram(ctx context.Context, id int) (program.Program, error) {
	var p program.Program
	err := getOne(ctx, repo.db, &p, core.NewNotFoundError("programme", id),
		"SELECT "+programColumns+" FROM programme WHERE id = $1", id)
	return p, err
}

func (repo *programRepository) QueryPrograms(ctx context.Context) ([]program.Program, error) {
	programs := make([]program.Program, 0)
	q := "SELECT " + programColumns + " FROM programme ORDER BY created_at DESC, id DESC"
	if err := repo.db.SelectContext(ctx, &programs, q); err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}
	return programs, nil
}

// DeleteProgram removes the program; its phases, candidatures and their rows cascade.
func (repo *programRepository) DeleteProgram(ctx context.Context, id int) error {
	err := execOne(ctx, repo.db, core.NewNotFoundError("programme", id), "DELETE FROM programme WHERE id = $1", id)
	if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "deleting program")
	}
	return err
}

// Phases

func phaseError(err error, programID int, msg string) error {
	switch {
	case isCode(err, uniqueViolation, "phase_programme_id_position_key"):
		return program.ErrPositionTaken
	case isCode(err, uniqueViolation, "phase_one_terminal_idx"):
		return program.ErrTerminalExists
	case isCode(err, uniqueViolation, "phase_one_winner_idx"):
		return program.ErrWinnerExists
	case isCode(err, foreignKeyViolation, "phase_programme_id_fkey"):
		return core.NewNotFoundError("programme", programID)
	}
	return conflictOrWrap(err, msg)
}

func (repo *programRepository) CreatePhase(ctx context.Context, ph program.Phase) (program.Phase, error) {
	q := `INSERT INTO phase (programme_id, nom, description, position, date_debut, date_fin, is_terminal, created_at)
		VALUES ($1, $2, $3,
			CASE WHEN $4 = 0 THEN (SELECT COALESCE(MAX(position), 0) + 1 FROM phase WHERE programme_id = $1) ELSE $4 END,
			$5, $6, $7, $8)
		RETURNING ` + phaseColumns
	var created program.Phase
	err := repo.db.GetContext(ctx, &created, q,
		ph.ProgramID, ph.Name, ph.Description, ph.Position, ph.StartDate, ph.EndDate, ph.IsTerminal, ph.CreatedAt)
	if err != nil {
		return program.Phase{}, phaseError(err, ph.ProgramID, "inserting phase")
	}
	return created, nil
}

func (repo *programRepository) GetPhase(ctx context.Context, id int) (program.Phase, error) {
	var ph program.Phase
	err := getOne(ctx, repo.db, &ph, core.NewNotFoundError("phase", id),
		"SELECT "+phaseColumns+" FROM phase WHERE id = $1", id)
	return ph, err
}

func (repo *programRepository) QueryPhases(ctx context.Context, programID int) ([]program.Phase, error) {
	phases := make([]program.Phase, 0)
	q := "SELECT " + phaseColumns + " FROM phase WHERE programme_id = $1 ORDER BY position"
	if err := repo.db.SelectContext(ctx, &phases, q, programID); err != nil {
		return nil, errors.Wrap(err, "querying phases")
	}
	return phases, nil
}

func (repo *programRepository) UpdatePhase(ctx context.Context, ph program.Phase) (program.Phase, error) {
	q := `UPDATE phase SET nom = $2, description = $3, position = $4, date_debut = $5, date_fin = $6, is_terminal = $7
		WHERE id = $1 RETURNING ` + phaseColumns
	var updated program.Phase
	err := getOne(ctx, repo.db, &updated, core.NewNotFoundError("phase", ph.ID), q,
		ph.ID, ph.Name, ph.Description, ph.Position, ph.StartDate, ph.EndDate, ph.IsTerminal)
	if err != nil && !core.IsNotFound(err) {
		return program.Phase{}, phaseError(err, ph.ProgramID, "updating phase")
	}
	return updated, err
}

func (repo *programRepository) DeletePhase(ctx context.Context, id int) error {
	err := execOne(ctx, repo.db, core.NewNotFoundError("phase", id), "DELETE FROM phase WHERE id = $1", id)
	switch {
	case err == nil, core.IsNotFound(err):
		return err
	case isCode(err, foreignKeyViolation, "candidature_phase_id_fkey"):
		return program.ErrPhaseInUse
	}
	return conflictOrWrap(err, "deleting phase")
}

// Candidatures

type memberRow struct {
	CandidatureID int `db:"candidature_id"`
	program.Member
}

// loadMembers fills the members of the given candidatures.
func loadMembers(ctx context.Context, db sqlx.QueryerContext, cands []program.Candidature) error {
	if len(cands) == 0 {
		return nil
	}
	ids := make([]int, len(cands))
	for i := range cands {
		ids[i] = cands[i].ID
		cands[i].Members = make([]program.Member, 0)
	}

	q := `SELECT m.candidature_id, u.id, u.name, u.email, u.role
		FROM candidature_membre m JOIN utilisateur u ON u.id = m.utilisateur_id
		WHERE m.candidature_id = ANY($1) ORDER BY u.id`
	var rows []memberRow
	if err := sqlx.SelectContext(ctx, db, &rows, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "querying members")
	}
	byID := make(map[int]int, len(cands))
	for i := range cands {
		byID[cands[i].ID] = i
	}
	for _, r := range rows {
		if i, ok := byID[r.CandidatureID]; ok {
			cands[i].Members = append(cands[i].Members, r.Member)
		}
	}
	return nil
}

func getCandidature(ctx context.Context, db sqlx.QueryerContext, id int) (program.Candidature, error) {
	var c program.Candidature
	err := getOne(ctx, db, &c, core.NewNotFoundError("candidature", id),
		"SELECT "+candidatureColumns+" FROM candidature WHERE id = $1", id)
	if err != nil {
		return program.Candidature{}, err
	}
	cands := []program.Candidature{c}
	if err := loadMembers(ctx, db, cands); err != nil {
		return program.Candidature{}, err
	}
	return cands[0], nil
}

func (repo *programRepository) CreateCandidature(ctx context.Context, c program.Candidature, memberIDs []int) (program.Candidature, error) {
	var created program.Candidature
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO candidature (programme_id, phase_id, entite_type, entite_id, nom, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
		var id int
		err := tx.GetContext(ctx, &id, q, c.ProgramID, c.PhaseID, c.EntityType, c.EntityID, c.Name, c.CreatedAt, c.UpdatedAt)
		switch {
		case isCode(err, uniqueViolation):
			return program.ErrEntityEnrolled
		case isCode(err, foreignKeyViolation, "candidature_programme_id_fkey"):
			return core.NewNotFoundError("programme", c.ProgramID)
		case isCode(err, foreignKeyViolation, "candidature_phase_id_fkey"):
			return core.NewNotFoundError("phase", c.PhaseID)
		case err != nil:
			return errors.Wrap(err, "inserting candidature")
		}

		for _, userID := range memberIDs {
			if err := insertMember(ctx, tx, id, userID); err != nil && err != program.ErrMemberExists {
				return err
			}
		}

		created, err = getCandidature(ctx, tx, id)
		return err
	})
	return created, err
}

func insertMember(ctx context.Context, db sqlx.ExecerContext, candidatureID, userID int) error {
	q := "INSERT INTO candidature_membre (candidature_id, utilisateur_id) VALUES ($1, $2)"
	_, err := db.ExecContext(ctx, q, candidatureID, userID)
	switch {
	case err == nil:
		return nil
	case isCode(err, uniqueViolation):
		return program.ErrMemberExists
	case isCode(err, foreignKeyViolation, "candidature_membre_utilisateur_id_fkey"):
		return core.NewNotFoundError("user", userID)
	case isCode(err, foreignKeyViolation, "candidature_membre_candidature_id_fkey"):
		return core.NewNotFoundError("candidature", candidatureID)
	}
	return errors.Wrap(err, "inserting member")
}

func (repo *programRepository) GetCandidature(ctx context.Context, id int) (program.Candidature, error) {
	return getCandidature(ctx, repo.db, id)
}

func (repo *programRepository) GetCandidatureByEntity(ctx context.Context, programID int, entityType string, entityID int) (program.Candidature, error) {
	var id int
	q := "SELECT id FROM candidature WHERE programme_id = $1 AND entite_type = $2 AND entite_id = $3"
	if err := getOne(ctx, repo.db, &id, core.NewNotFoundError("candidature", entityType, entityID), q, programID, entityType, entityID); err != nil {
		return program.Candidature{}, err
	}
	return getCandidature(ctx, repo.db, id)
}

func (repo *programRepository) QueryCandidatures(ctx context.Context, programID int) ([]program.Candidature, error) {
	cands := make([]program.Candidature, 0)
	q := "SELECT " + candidatureColumns + " FROM candidature WHERE programme_id = $1 ORDER BY id"
	if err := repo.db.SelectContext(ctx, &cands, q, programID); err != nil {
		return nil, errors.Wrap(err, "querying candidatures")
	}
	if err := loadMembers(ctx, repo.db, cands); err != nil {
		return nil, err
	}
	return cands, nil
}

func (repo *programRepository) AddMember(ctx context.Context, candidatureID, userID int) error {
	return insertMember(ctx, repo.db, candidatureID, userID)
}

// History

func (repo *programRepository) AdvanceCandidature(ctx context.Context, t program.Transition) (program.Candidature, error) {
	var cand program.Candidature
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := "UPDATE candidature SET phase_id = $2, updated_at = $3 WHERE id = $1 AND phase_id = $4"
		res, err := tx.ExecContext(ctx, q, t.CandidatureID, t.NewPhaseID, time.Now().UTC(), t.PreviousPhaseID)
		if err != nil {
			if isCode(err, foreignKeyViolation) {
				return core.NewNotFoundError("phase", t.NewPhaseID.Int)
			}
			return errors.Wrap(err, "updating candidature phase")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "counting affected rows")
		}
		if n == 0 {
			// either gone or moved since it was read
			if _, err := getCandidature(ctx, tx, t.CandidatureID); err != nil {
				return err
			}
			return program.ErrCandidatureMoved
		}

		q = `INSERT INTO phase_historique (candidature_id, phase_precedente_id, nouvelle_phase_id, soumission, created_at)
			VALUES ($1, $2, $3, $4, $5)`
		if _, err = tx.ExecContext(ctx, q, t.CandidatureID, t.PreviousPhaseID, t.NewPhaseID, t.Submission, t.CreatedAt); err != nil {
			return errors.Wrap(err, "inserting phase history")
		}

		cand, err = getCandidature(ctx, tx, t.CandidatureID)
		return err
	})
	return cand, err
}

func (repo *programRepository) QueryTransitions(ctx context.Context, candidatureID int) ([]program.Transition, error) {
	transitions := make([]program.Transition, 0)
	q := "SELECT " + transitionColumns + " FROM phase_historique WHERE candidature_id = $1 ORDER BY created_at, id"
	if err := repo.db.SelectContext(ctx, &transitions, q, candidatureID); err != nil {
		return nil, errors.Wrap(err, "querying phase history")
	}
	return transitions, nil
}

// Winner

// SetWinner is a single conditional update; the partial unique index on phase(programme_id)
// catches the concurrent declarations the condition cannot see.
func (repo *programRepository) SetWinner(ctx context.Context, phaseID, candidatureID int) (program.Phase, error) {
	q := `UPDATE phase SET gagnant_candidature_id = $2
		WHERE id = $1 AND is_terminal AND gagnant_candidature_id IS NULL AND NOT EXISTS (
			SELECT 1 FROM phase p WHERE p.programme_id = phase.programme_id AND p.gagnant_candidature_id IS NOT NULL
		)
		RETURNING ` + phaseColumns
	var ph program.Phase
	err := getOne(ctx, repo.db, &ph, errNoRow, q, phaseID, candidatureID)
	switch {
	case err == nil:
		return ph, nil
	case err == errNoRow:
		ph, err := repo.GetPhase(ctx, phaseID)
		if err != nil {
			return program.Phase{}, err
		}
		if !ph.IsTerminal {
			return program.Phase{}, core.NewValidationError(nil, core.FieldError{
				Field: "phaseId",
				Error: "a winner can only be declared on the terminal phase",
			})
		}
		return program.Phase{}, program.ErrWinnerExists
	case isCode(err, uniqueViolation, "phase_one_winner_idx"):
		return program.Phase{}, program.ErrWinnerExists
	}
	return program.Phase{}, conflictOrWrap(err, "setting winner")
}

func (repo *programRepository) GetWinnerPhase(ctx context.Context, programID int) (program.Phase, error) {
	var ph program.Phase
	err := getOne(ctx, repo.db, &ph, core.NewNotFoundError("winner", programID),
		"SELECT "+phaseColumns+" FROM phase WHERE programme_id = $1 AND gagnant_candidature_id IS NOT NULL", programID)
	return ph, err
}
