package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/planning"
)

const (
	meetingColumns     = "id, phase_id, titre, description, date, lieu, created_at"
	taskColumns        = "id, phase_id, titre, description, date_echeance, statut, created_at"
	deliverableColumns = "id, phase_id, nom, description, date_echeance, types_fichiers, created_at"
	criterionColumns   = "id, phase_id, nom, type, poids, rempli_par, necessite_validation, options, created_at"
)

type planningRepository struct {
	db *sqlx.DB
}

var _ planning.Repository = (*planningRepository)(nil) // interface compliance check

func NewPlanningRepository(db *sqlx.DB) planning.Repository {
	return &planningRepository{db: db}
}

// insertError reports a missing phase as not found.
func insertError(err error, phaseID int, msg string) error {
	if isCode(err, foreignKeyViolation) {
		return core.NewNotFoundError("phase", phaseID)
	}
	return conflictOrWrap(err, msg)
}

// deleteScoped deletes the row `id` of `table` only if it belongs to the phase.
func (repo *planningRepository) deleteScoped(ctx context.Context, table, resource string, id, phaseID int) error {
	err := execOne(ctx, repo.db, core.NewNotFoundError(resource, id),
		"DELETE FROM "+table+" WHERE id = $1 AND phase_id = $2", id, phaseID)
	if err != nil && !core.IsNotFound(err) {
		return errors.Wrapf(err, "deleting %s", resource)
	}
	return err
}

// Meetings

func (repo *planningRepository) CreateMeeting(ctx context.Context, m planning.Meeting) (planning.Meeting, error) {
	q := `INSERT INTO reunion (phase_id, titre, description, date, lieu, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := repo.db.GetContext(ctx, &m.ID, q, m.PhaseID, m.Title, m.Description, m.Date, m.Location, m.CreatedAt); err != nil {
		return planning.Meeting{}, insertError(err, m.PhaseID, "inserting meeting")
	}
	return m, nil
}

func (repo *planningRepository) GetMeeting(ctx context.Context, id int) (planning.Meeting, error) {
	var m planning.Meeting
	err := getOne(ctx, repo.db, &m, core.NewNotFoundError("reunion", id), "SELECT "+meetingColumns+" FROM reunion WHERE id = $1", id)
	return m, err
}

func (repo *planningRepository) QueryMeetings(ctx context.Context, phaseID int) ([]planning.Meeting, error) {
	meetings := make([]planning.Meeting, 0)
	q := "SELECT " + meetingColumns + " FROM reunion WHERE phase_id = $1 ORDER BY date, id"
	if err := repo.db.SelectContext(ctx, &meetings, q, phaseID); err != nil {
		return nil, errors.Wrap(err, "querying meetings")
	}
	return meetings, nil
}

func (repo *planningRepository) UpdateMeeting(ctx context.Context, m planning.Meeting) (planning.Meeting, error) {
	q := "UPDATE reunion SET titre = $2, description = $3, date = $4, lieu = $5 WHERE id = $1"
	err := execOne(ctx, repo.db, core.NewNotFoundError("reunion", m.ID), q, m.ID, m.Title, m.Description, m.Date, m.Location)
	if err != nil && !core.IsNotFound(err) {
		return planning.Meeting{}, errors.Wrap(err, "updating meeting")
	}
	return m, err
}

func (repo *planningRepository) DeleteMeeting(ctx context.Context, id, phaseID int) error {
	return repo.deleteScoped(ctx, "reunion", "reunion", id, phaseID)
}

// Tasks

func (repo *planningRepository) CreateTask(ctx context.Context, t planning.Task) (planning.Task, error) {
	q := `INSERT INTO tache (phase_id, titre, description, date_echeance, statut, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := repo.db.GetContext(ctx, &t.ID, q, t.PhaseID, t.Title, t.Description, t.DueDate, t.Status, t.CreatedAt); err != nil {
		return planning.Task{}, insertError(err, t.PhaseID, "inserting task")
	}
	return t, nil
}

func (repo *planningRepository) QueryTasks(ctx context.Context, phaseID int) ([]planning.Task, error) {
	tasks := make([]planning.Task, 0)
	q := "SELECT " + taskColumns + " FROM tache WHERE phase_id = $1 ORDER BY id"
	if err := repo.db.SelectContext(ctx, &tasks, q, phaseID); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	return tasks, nil
}

func (repo *planningRepository) DeleteTask(ctx context.Context, id, phaseID int) error {
	return repo.deleteScoped(ctx, "tache", "tache", id, phaseID)
}

// Deliverables

func (repo *planningRepository) CreateDeliverable(ctx context.Context, d planning.Deliverable) (planning.Deliverable, error) {
	q := `INSERT INTO livrables (phase_id, nom, description, date_echeance, types_fichiers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := repo.db.GetContext(ctx, &d.ID, q, d.PhaseID, d.Name, d.Description, d.DueDate, d.FileTypes, d.CreatedAt); err != nil {
		return planning.Deliverable{}, insertError(err, d.PhaseID, "inserting deliverable")
	}
	return d, nil
}

func (repo *planningRepository) QueryDeliverables(ctx context.Context, phaseID int) ([]planning.Deliverable, error) {
	deliverables := make([]planning.Deliverable, 0)
	q := "SELECT " + deliverableColumns + " FROM livrables WHERE phase_id = $1 ORDER BY id"
	if err := repo.db.SelectContext(ctx, &deliverables, q, phaseID); err != nil {
		return nil, errors.Wrap(err, "querying deliverables")
	}
	return deliverables, nil
}

func (repo *planningRepository) DeleteDeliverable(ctx context.Context, id, phaseID int) error {
	return repo.deleteScoped(ctx, "livrables", "livrable", id, phaseID)
}

// Evaluation criteria

type criterionRow struct {
	planning.Criterion
	Options pq.StringArray `db:"options"`
}

func (repo *planningRepository) CreateCriterion(ctx context.Context, c planning.Criterion) (planning.Criterion, error) {
	q := `INSERT INTO criteresdevaluation (phase_id, nom, type, poids, rempli_par, necessite_validation, options, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	options := pq.StringArray(c.Options)
	if options == nil {
		options = pq.StringArray{}
	}
	err := repo.db.GetContext(ctx, &c.ID, q,
		c.PhaseID, c.Name, c.Type, c.Weight, c.FilledBy, c.ValidationRequired, options, c.CreatedAt)
	if err != nil {
		return planning.Criterion{}, insertError(err, c.PhaseID, "inserting criterion")
	}
	return c, nil
}

func (repo *planningRepository) QueryCriteria(ctx context.Context, phaseID int) ([]planning.Criterion, error) {
	var rows []criterionRow
	q := "SELECT " + criterionColumns + " FROM criteresdevaluation WHERE phase_id = $1 ORDER BY id"
	if err := repo.db.SelectContext(ctx, &rows, q, phaseID); err != nil {
		return nil, errors.Wrap(err, "querying criteria")
	}
	criteria := make([]planning.Criterion, 0, len(rows))
	for _, r := range rows {
		c := r.Criterion
		c.Options = r.Options
		criteria = append(criteria, c)
	}
	return criteria, nil
}

func (repo *planningRepository) DeleteCriterion(ctx context.Context, id, phaseID int) error {
	return repo.deleteScoped(ctx, "criteresdevaluation", "critere", id, phaseID)
}
