package planning

import (
	"context"
	"time"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
)

type (
	// Repository persists the per-phase planning items.
	// Deletes are scoped to (id, phaseID) and fail with *core.NotFoundError when nothing matched.
	Repository interface {
		CreateMeeting(ctx context.Context, m Meeting) (Meeting, error)
		GetMeeting(ctx context.Context, id int) (Meeting, error)
		QueryMeetings(ctx context.Context, phaseID int) ([]Meeting, error)
		UpdateMeeting(ctx context.Context, m Meeting) (Meeting, error)
		DeleteMeeting(ctx context.Context, id, phaseID int) error

		CreateTask(ctx context.Context, t Task) (Task, error)
		QueryTasks(ctx context.Context, phaseID int) ([]Task, error)
		DeleteTask(ctx context.Context, id, phaseID int) error

		CreateDeliverable(ctx context.Context, d Deliverable) (Deliverable, error)
		QueryDeliverables(ctx context.Context, phaseID int) ([]Deliverable, error)
		DeleteDeliverable(ctx context.Context, id, phaseID int) error

		CreateCriterion(ctx context.Context, c Criterion) (Criterion, error)
		QueryCriteria(ctx context.Context, phaseID int) ([]Criterion, error)
		DeleteCriterion(ctx context.Context, id, phaseID int) error
	}

	PhaseFinder interface {
		GetPhase(ctx context.Context, id int) (program.Phase, error)
	}

	ServiceInterface interface {
		CreateMeeting(ctx context.Context, nm NewMeeting) (Meeting, error)
		QueryMeetings(ctx context.Context, phaseID int) ([]Meeting, error)
		UpdateMeeting(ctx context.Context, id int, um UpdateMeeting) (Meeting, error)
		DeleteMeeting(ctx context.Context, id, phaseID int) error

		CreateTask(ctx context.Context, nt NewTask) (Task, error)
		QueryTasks(ctx context.Context, phaseID int) ([]Task, error)
		DeleteTask(ctx context.Context, id, phaseID int) error

		CreateDeliverable(ctx context.Context, nd NewDeliverable) (Deliverable, error)
		QueryDeliverables(ctx context.Context, phaseID int) ([]Deliverable, error)
		DeleteDeliverable(ctx context.Context, id, phaseID int) error

		CreateCriterion(ctx context.Context, nc NewCriterion) (Criterion, error)
		QueryCriteria(ctx context.Context, phaseID int) (CriteriaList, error)
		DeleteCriterion(ctx context.Context, id, phaseID int) error
	}

	Service struct {
		repo      Repository
		phases    PhaseFinder
		validator *core.Validator
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, phases PhaseFinder, validator *core.Validator) *Service {
	return &Service{repo: repo, phases: phases, validator: validator}
}

func (svc *Service) checkPhase(ctx context.Context, phaseID int) error {
	_, err := svc.phases.GetPhase(ctx, phaseID)
	return err
}

// Meetings

func (svc *Service) CreateMeeting(ctx context.Context, nm NewMeeting) (Meeting, error) {
	nm.Title = core.CleanString(nm.Title)
	nm.Location = core.CleanString(nm.Location)
	if err := svc.validator.Struct(&nm); err != nil {
		return Meeting{}, err
	}
	if err := svc.checkPhase(ctx, nm.PhaseID); err != nil {
		return Meeting{}, err
	}
	return svc.repo.CreateMeeting(ctx, Meeting{
		PhaseID:     nm.PhaseID,
		Title:       nm.Title,
		Description: core.CleanString(nm.Description),
		Date:        nm.Date.UTC(),
		Location:    nm.Location,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) QueryMeetings(ctx context.Context, phaseID int) ([]Meeting, error) {
	if err := svc.checkPhase(ctx, phaseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryMeetings(ctx, phaseID)
}

func (svc *Service) UpdateMeeting(ctx context.Context, id int, um UpdateMeeting) (Meeting, error) {
	m, err := svc.repo.GetMeeting(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	if title := core.CleanString(um.Title); title != "" {
		m.Title = title
	}
	if um.Description != nil {
		m.Description = core.CleanString(*um.Description)
	}
	if um.Date != nil {
		m.Date = um.Date.UTC()
	}
	if um.Location != nil {
		m.Location = core.CleanString(*um.Location)
	}
	return svc.repo.UpdateMeeting(ctx, m)
}

func (svc *Service) DeleteMeeting(ctx context.Context, id, phaseID int) error {
	return svc.repo.DeleteMeeting(ctx, id, phaseID)
}

// Tasks

func (svc *Service) CreateTask(ctx context.Context, nt NewTask) (Task, error) {
	nt.Title = core.CleanString(nt.Title)
	nt.Status = core.CleanString(nt.Status, true /* lower */)
	if err := svc.validator.Struct(&nt); err != nil {
		return Task{}, err
	}
	if err := svc.checkPhase(ctx, nt.PhaseID); err != nil {
		return Task{}, err
	}
	if nt.Status == "" {
		nt.Status = TaskTodo
	}
	return svc.repo.CreateTask(ctx, Task{
		PhaseID:     nt.PhaseID,
		Title:       nt.Title,
		Description: core.CleanString(nt.Description),
		DueDate:     nt.DueDate,
		Status:      nt.Status,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) QueryTasks(ctx context.Context, phaseID int) ([]Task, error) {
	if err := svc.checkPhase(ctx, phaseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryTasks(ctx, phaseID)
}

func (svc *Service) DeleteTask(ctx context.Context, id, phaseID int) error {
	return svc.repo.DeleteTask(ctx, id, phaseID)
}

// Deliverables

func (svc *Service) CreateDeliverable(ctx context.Context, nd NewDeliverable) (Deliverable, error) {
	nd.Name = core.CleanString(nd.Name)
	if err := svc.validator.Struct(&nd); err != nil {
		return Deliverable{}, err
	}
	if err := svc.checkPhase(ctx, nd.PhaseID); err != nil {
		return Deliverable{}, err
	}
	return svc.repo.CreateDeliverable(ctx, Deliverable{
		PhaseID:     nd.PhaseID,
		Name:        nd.Name,
		Description: core.CleanString(nd.Description),
		DueDate:     nd.DueDate,
		FileTypes:   core.CleanString(nd.FileTypes, true /* lower */),
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) QueryDeliverables(ctx context.Context, phaseID int) ([]Deliverable, error) {
	if err := svc.checkPhase(ctx, phaseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryDeliverables(ctx, phaseID)
}

func (svc *Service) DeleteDeliverable(ctx context.Context, id, phaseID int) error {
	return svc.repo.DeleteDeliverable(ctx, id, phaseID)
}

// Evaluation criteria

func (svc *Service) CreateCriterion(ctx context.Context, nc NewCriterion) (Criterion, error) {
	nc.Name = core.CleanString(nc.Name)
	nc.Type = core.CleanString(nc.Type, true /* lower */)
	nc.FilledBy = core.CleanString(nc.FilledBy, true /* lower */)
	if err := svc.validator.Struct(&nc); err != nil {
		return Criterion{}, err
	}
	if nc.Type == CriterionList && len(nc.Options) == 0 {
		return Criterion{}, core.NewValidationError(nil, core.FieldError{Field: "options", Error: "a list criterion needs options"})
	}
	if nc.Type != CriterionList {
		nc.Options = nil
	}
	if err := svc.checkPhase(ctx, nc.PhaseID); err != nil {
		return Criterion{}, err
	}
	return svc.repo.CreateCriterion(ctx, Criterion{
		PhaseID:            nc.PhaseID,
		Name:               nc.Name,
		Type:               nc.Type,
		Weight:             nc.Weight,
		FilledBy:           nc.FilledBy,
		ValidationRequired: nc.ValidationRequired,
		Options:            nc.Options,
		CreatedAt:          time.Now().UTC(),
	})
}

func (svc *Service) QueryCriteria(ctx context.Context, phaseID int) (CriteriaList, error) {
	if err := svc.checkPhase(ctx, phaseID); err != nil {
		return CriteriaList{}, err
	}
	criteria, err := svc.repo.QueryCriteria(ctx, phaseID)
	if err != nil {
		return CriteriaList{}, err
	}
	list := CriteriaList{Criteria: criteria}
	if list.Criteria == nil {
		list.Criteria = []Criterion{}
	}
	for _, c := range criteria {
		list.TotalWeight += c.Weight
	}
	return list, nil
}

func (svc *Service) DeleteCriterion(ctx context.Context, id, phaseID int) error {
	return svc.repo.DeleteCriterion(ctx, id, phaseID)
}
