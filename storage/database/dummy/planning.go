package dummydb

import (
	"context"
	"sort"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/planning"
)

type planningRepository struct {
	db *DB
}

var _ planning.Repository = (*planningRepository)(nil) // interface compliance check

func NewPlanningRepository(db *DB) planning.Repository {
	return &planningRepository{db: db}
}

func (repo *planningRepository) checkPhase(phaseID int) error {
	if _, ok := repo.db.phases[phaseID]; !ok {
		return core.NewNotFoundError("phase", phaseID)
	}
	return nil
}

// Meetings

func (repo *planningRepository) CreateMeeting(_ context.Context, m planning.Meeting) (planning.Meeting, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkPhase(m.PhaseID); err != nil {
		return planning.Meeting{}, err
	}
	m.ID = repo.db.nextID("reunion")
	repo.db.meetings[m.ID] = &m
	return m, nil
}

func (repo *planningRepository) GetMeeting(_ context.Context, id int) (planning.Meeting, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.meetings[id]; ok {
		return *m, nil
	}
	return planning.Meeting{}, core.NewNotFoundError("reunion", id)
}

func (repo *planningRepository) QueryMeetings(_ context.Context, phaseID int) ([]planning.Meeting, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	meetings := make([]planning.Meeting, 0)
	for _, m := range repo.db.meetings {
		if m.PhaseID == phaseID {
			meetings = append(meetings, *m)
		}
	}
	sort.Slice(meetings, func(i, j int) bool {
		if !meetings[i].Date.Equal(meetings[j].Date) {
			return meetings[i].Date.Before(meetings[j].Date)
		}
		return meetings[i].ID < meetings[j].ID
	})
	return meetings, nil
}

func (repo *planningRepository) UpdateMeeting(_ context.Context, m planning.Meeting) (planning.Meeting, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.meetings[m.ID]; !ok {
		return planning.Meeting{}, core.NewNotFoundError("reunion", m.ID)
	}
	repo.db.meetings[m.ID] = &m
	return m, nil
}

func (repo *planningRepository) DeleteMeeting(_ context.Context, id, phaseID int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if m, ok := repo.db.meetings[id]; !ok || m.PhaseID != phaseID {
		return core.NewNotFoundError("reunion", id)
	}
	delete(repo.db.meetings, id)
	return nil
}

// Tasks

func (repo *planningRepository) CreateTask(_ context.Context, t planning.Task) (planning.Task, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkPhase(t.PhaseID); err != nil {
		return planning.Task{}, err
	}
	t.ID = repo.db.nextID("tache")
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *planningRepository) QueryTasks(_ context.Context, phaseID int) ([]planning.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	tasks := make([]planning.Task, 0)
	for _, t := range repo.db.tasks {
		if t.PhaseID == phaseID {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (repo *planningRepository) DeleteTask(_ context.Context, id, phaseID int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if t, ok := repo.db.tasks[id]; !ok || t.PhaseID != phaseID {
		return core.NewNotFoundError("tache", id)
	}
	delete(repo.db.tasks, id)
	return nil
}

// Deliverables

func (repo *planningRepository) CreateDeliverable(_ context.Context, d planning.Deliverable) (planning.Deliverable, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkPhase(d.PhaseID); err != nil {
		return planning.Deliverable{}, err
	}
	d.ID = repo.db.nextID("livrable")
	repo.db.deliverables[d.ID] = &d
	return d, nil
}

func (repo *planningRepository) QueryDeliverables(_ context.Context, phaseID int) ([]planning.Deliverable, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	deliverables := make([]planning.Deliverable, 0)
	for _, d := range repo.db.deliverables {
		if d.PhaseID == phaseID {
			deliverables = append(deliverables, *d)
		}
	}
	sort.Slice(deliverables, func(i, j int) bool { return deliverables[i].ID < deliverables[j].ID })
	return deliverables, nil
}

func (repo *planningRepository) DeleteDeliverable(_ context.Context, id, phaseID int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if d, ok := repo.db.deliverables[id]; !ok || d.PhaseID != phaseID {
		return core.NewNotFoundError("livrable", id)
	}
	delete(repo.db.deliverables, id)
	return nil
}

// Evaluation criteria

func (repo *planningRepository) CreateCriterion(_ context.Context, c planning.Criterion) (planning.Criterion, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkPhase(c.PhaseID); err != nil {
		return planning.Criterion{}, err
	}
	c.ID = repo.db.nextID("critere_evaluation")
	c.Options = append([]string(nil), c.Options...)
	repo.db.criteria[c.ID] = &c
	return c, nil
}

func (repo *planningRepository) QueryCriteria(_ context.Context, phaseID int) ([]planning.Criterion, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	criteria := make([]planning.Criterion, 0)
	for _, c := range repo.db.criteria {
		if c.PhaseID == phaseID {
			criteria = append(criteria, *c)
		}
	}
	sort.Slice(criteria, func(i, j int) bool { return criteria[i].ID < criteria[j].ID })
	return criteria, nil
}

func (repo *planningRepository) DeleteCriterion(_ context.Context, id, phaseID int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if c, ok := repo.db.criteria[id]; !ok || c.PhaseID != phaseID {
		return core.NewNotFoundError("critere", id)
	}
	delete(repo.db.criteria, id)
	return nil
}
