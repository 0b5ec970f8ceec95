package program

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
)

type (
	// Notifier dispatches notifications to many recipients.
	Notifier interface {
		CreateMany(ctx context.Context, nns ...notification.NewNotification) ([]notification.Notification, error)
	}

	ServiceInterface interface {
		CreateProgram(ctx context.Context, np NewProgram) (Program, error)
		GetProgram(ctx context.Context, id int) (Program, error)
		QueryPrograms(ctx context.Context) ([]Program, error)
		DeleteProgram(ctx context.Context, id int) error

		CreatePhase(ctx context.Context, np NewPhase) (Phase, error)
		GetPhase(ctx context.Context, id int) (Phase, error)
		QueryPhases(ctx context.Context, programID int) ([]Phase, error)
		UpdatePhase(ctx context.Context, id int, up UpdatePhase) (Phase, error)
		DeletePhase(ctx context.Context, id int) error

		CreateCandidature(ctx context.Context, nc NewCandidature) (Candidature, error)
		AddMember(ctx context.Context, candidatureID int, am AddMember) (Candidature, error)
		QueryCandidatures(ctx context.Context, programID int) ([]Candidature, error)
		QueryHistory(ctx context.Context, candidatureID int) ([]Transition, error)

		AdvancePhase(ctx context.Context, req AdvanceRequest) (AdvanceResult, error)
		DeclareWinner(ctx context.Context, req DeclareWinnerRequest) (DeclareWinnerResult, error)
		GetProgramWinner(ctx context.Context, programID int) (Winner, bool, error)
	}

	Service struct {
		repo      Repository
		notifier  Notifier
		mailSvc   core.EmailService
		validator *core.Validator
		logger    core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	notifier Notifier,
	mailSvc core.EmailService,
	validator *core.Validator,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		notifier:  notifier,
		mailSvc:   mailSvc,
		validator: validator,
		logger:    logger,
	}
}

// Programs

func (svc *Service) CreateProgram(ctx context.Context, np NewProgram) (Program, error) {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	if err := svc.validator.Struct(&np); err != nil {
		return Program{}, err
	}
	if np.StartDate.Valid && np.EndDate.Valid && np.EndDate.Time.Before(np.StartDate.Time) {
		return Program{}, core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date must be after start date"})
	}
	return svc.repo.CreateProgram(ctx, Program{
		Name:        np.Name,
		Description: np.Description,
		StartDate:   np.StartDate,
		EndDate:     np.EndDate,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) GetProgram(ctx context.Context, id int) (Program, error) {
	return svc.repo.GetProgram(ctx, id)
}

func (svc *Service) QueryPrograms(ctx context.Context) ([]Program, error) {
	return svc.repo.QueryPrograms(ctx)
}

func (svc *Service) DeleteProgram(ctx context.Context, id int) error {
	return svc.repo.DeleteProgram(ctx, id)
}

// Phases

func (svc *Service) CreatePhase(ctx context.Context, np NewPhase) (Phase, error) {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	if err := svc.validator.Struct(&np); err != nil {
		return Phase{}, err
	}
	if _, err := svc.repo.GetProgram(ctx, np.ProgramID); err != nil {
		return Phase{}, err
	}
	return svc.repo.CreatePhase(ctx, Phase{
		ProgramID:   np.ProgramID,
		Name:        np.Name,
		Description: np.Description,
		Position:    np.Position,
		StartDate:   np.StartDate,
		EndDate:     np.EndDate,
		IsTerminal:  np.IsTerminal,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) GetPhase(ctx context.Context, id int) (Phase, error) {
	return svc.repo.GetPhase(ctx, id)
}

func (svc *Service) QueryPhases(ctx context.Context, programID int) ([]Phase, error) {
	if _, err := svc.repo.GetProgram(ctx, programID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPhases(ctx, programID)
}

func (svc *Service) UpdatePhase(ctx context.Context, id int, up UpdatePhase) (Phase, error) {
	if err := svc.validator.Struct(&up); err != nil {
		return Phase{}, err
	}
	ph, err := svc.repo.GetPhase(ctx, id)
	if err != nil {
		return Phase{}, err
	}

	if name := core.CleanString(up.Name); name != "" {
		ph.Name = name
	}
	if up.Description != nil {
		ph.Description = core.CleanString(*up.Description)
	}
	if up.Position != nil {
		ph.Position = *up.Position
	}
	if up.StartDate.Valid {
		ph.StartDate = up.StartDate
	}
	if up.EndDate.Valid {
		ph.EndDate = up.EndDate
	}
	if up.IsTerminal != nil {
		if !*up.IsTerminal && ph.WinnerID.Valid {
			return Phase{}, core.NewValidationError(nil, core.FieldError{
				Field: "is_terminal",
				Error: "the phase carries the program winner and must stay terminal",
			})
		}
		ph.IsTerminal = *up.IsTerminal
	}
	return svc.repo.UpdatePhase(ctx, ph)
}

func (svc *Service) DeletePhase(ctx context.Context, id int) error {
	return svc.repo.DeletePhase(ctx, id)
}

// Candidatures

// CreateCandidature enters a startup or team in the program at its first phase
// and notifies the members.
func (svc *Service) CreateCandidature(ctx context.Context, nc NewCandidature) (Candidature, error) {
	nc.Name = core.CleanString(nc.Name)
	nc.EntityType = core.CleanString(nc.EntityType, true /* lower */)
	if err := svc.validator.Struct(&nc); err != nil {
		return Candidature{}, err
	}

	prog, err := svc.repo.GetProgram(ctx, nc.ProgramID)
	if err != nil {
		return Candidature{}, err
	}
	phases, err := svc.repo.QueryPhases(ctx, nc.ProgramID)
	if err != nil {
		return Candidature{}, errors.Wrap(err, "querying phases")
	}
	if len(phases) == 0 {
		return Candidature{}, core.NewValidationError(nil, core.FieldError{Field: "program_id", Error: "the program has no phases"})
	}

	now := time.Now().UTC()
	cand, err := svc.repo.CreateCandidature(ctx, Candidature{
		ProgramID:  prog.ID,
		PhaseID:    phases[0].ID,
		EntityType: nc.EntityType,
		EntityID:   nc.EntityID,
		Name:       nc.Name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nc.MemberIDs)
	if err != nil {
		return Candidature{}, err
	}

	msg := fmt.Sprintf("Your team %q has been created in the program %q.", cand.Name, prog.Name)
	svc.notifyMembers(ctx, cand.Members, notification.TypeTeamCreation, msg, cand, null.IntFrom(phases[0].ID))
	return cand, nil
}

func (svc *Service) AddMember(ctx context.Context, candidatureID int, am AddMember) (Candidature, error) {
	if err := svc.validator.Struct(&am); err != nil {
		return Candidature{}, err
	}
	cand, err := svc.repo.GetCandidature(ctx, candidatureID)
	if err != nil {
		return Candidature{}, err
	}
	if err := svc.repo.AddMember(ctx, cand.ID, am.UserID); err != nil {
		return Candidature{}, err
	}
	if cand, err = svc.repo.GetCandidature(ctx, candidatureID); err != nil {
		return Candidature{}, errors.Wrap(err, "reloading candidature")
	}

	for _, m := range cand.Members {
		if m.UserID == am.UserID {
			msg := fmt.Sprintf("You have been added to the team %q.", cand.Name)
			svc.notifyMembers(ctx, []Member{m}, notification.TypeTeamAddition, msg, cand, null.IntFrom(cand.PhaseID))
			break
		}
	}
	return cand, nil
}

func (svc *Service) QueryCandidatures(ctx context.Context, programID int) ([]Candidature, error) {
	if _, err := svc.repo.GetProgram(ctx, programID); err != nil {
		return nil, err
	}
	return svc.repo.QueryCandidatures(ctx, programID)
}

func (svc *Service) QueryHistory(ctx context.Context, candidatureID int) ([]Transition, error) {
	if _, err := svc.repo.GetCandidature(ctx, candidatureID); err != nil {
		return nil, err
	}
	return svc.repo.QueryTransitions(ctx, candidatureID)
}

// Progression

// AdvancePhase moves a candidature forward to req.NextPhaseID. On failure, the candidature's phase is unchanged.
func (svc *Service) AdvancePhase(ctx context.Context, req AdvanceRequest) (AdvanceResult, error) {
	req.EntityType = core.CleanString(req.EntityType, true /* lower */)
	if err := svc.validator.Struct(&req); err != nil {
		return AdvanceResult{}, err
	}

	next, err := svc.repo.GetPhase(ctx, req.NextPhaseID)
	if err != nil {
		return AdvanceResult{}, err
	}
	if next.ProgramID != req.ProgramID {
		return AdvanceResult{}, core.NewValidationError(nil, core.FieldError{
			Field: "phaseNextId",
			Error: fmt.Sprintf("phase %d does not belong to program %d", next.ID, req.ProgramID),
		})
	}

	cand, err := svc.repo.GetCandidatureByEntity(ctx, req.ProgramID, req.EntityType, req.EntityID)
	if err != nil {
		return AdvanceResult{}, err
	}
	current, err := svc.repo.GetPhase(ctx, cand.PhaseID)
	if err != nil {
		return AdvanceResult{}, errors.Wrap(err, "finding current phase")
	}

	switch {
	case current.ID == next.ID:
		return AdvanceResult{}, core.NewValidationError(nil, core.FieldError{
			Field: "phaseNextId",
			Error: "the candidature is already at this phase",
		})
	case next.Position < current.Position:
		return AdvanceResult{}, core.NewValidationError(nil, core.FieldError{
			Field: "phaseNextId",
			Error: "moving a candidature back to a previous phase is not supported",
		})
	}

	t := Transition{
		CandidatureID:   cand.ID,
		PreviousPhaseID: null.IntFrom(current.ID),
		NewPhaseID:      null.IntFrom(next.ID),
		CreatedAt:       time.Now().UTC(),
	}
	if len(req.Submission) > 0 && string(req.Submission) != "null" {
		t.Submission = null.JSONFrom(req.Submission)
	}
	if cand, err = svc.repo.AdvanceCandidature(ctx, t); err != nil {
		return AdvanceResult{}, err
	}

	msg := fmt.Sprintf("Your team %q moved from phase %q to phase %q.", cand.Name, current.Name, next.Name)
	svc.notifyMembers(ctx, cand.Members, notification.TypePhaseAdvance, msg, cand, null.IntFrom(next.ID))

	return AdvanceResult{
		Message:       "candidature moved to the next phase",
		Name:          cand.Name,
		EntityType:    cand.EntityType,
		EntityID:      cand.EntityID,
		PreviousPhase: current.Name,
		NewPhase:      next.Name,
		CandidatureID: cand.ID,
	}, nil
}

// DeclareWinner sets the winner of the program owning the terminal phase req.PhaseID.
func (svc *Service) DeclareWinner(ctx context.Context, req DeclareWinnerRequest) (DeclareWinnerResult, error) {
	if err := svc.validator.Struct(&req); err != nil {
		return DeclareWinnerResult{}, err
	}

	phase, err := svc.repo.GetPhase(ctx, req.PhaseID)
	if err != nil {
		return DeclareWinnerResult{}, err
	}
	// a program with a winner refuses any further declaration, whatever the candidature's position
	switch _, err = svc.repo.GetWinnerPhase(ctx, phase.ProgramID); {
	case err == nil:
		return DeclareWinnerResult{}, ErrWinnerExists
	case !core.IsNotFound(err):
		return DeclareWinnerResult{}, errors.Wrap(err, "finding winner phase")
	}
	cand, err := svc.repo.GetCandidature(ctx, req.CandidatureID)
	if err != nil {
		return DeclareWinnerResult{}, err
	}

	switch {
	case cand.ProgramID != phase.ProgramID:
		return DeclareWinnerResult{}, core.NewValidationError(nil, core.FieldError{
			Field: "candidatureId",
			Error: "the candidature does not belong to the phase's program",
		})
	case !phase.IsTerminal:
		return DeclareWinnerResult{}, core.NewValidationError(nil, core.FieldError{
			Field: "phaseId",
			Error: "a winner can only be declared on the terminal phase",
		})
	case cand.PhaseID != phase.ID:
		return DeclareWinnerResult{}, core.NewValidationError(nil, core.FieldError{
			Field: "candidatureId",
			Error: "the candidature has not reached the terminal phase",
		})
	}

	if phase, err = svc.repo.SetWinner(ctx, phase.ID, cand.ID); err != nil {
		return DeclareWinnerResult{}, err
	}

	svc.announceWinner(ctx, phase, cand)

	return DeclareWinnerResult{
		Message:       "winner declared",
		Phase:         phase,
		CandidatureID: cand.ID,
	}, nil
}

func (svc *Service) announceWinner(ctx context.Context, phase Phase, winner Candidature) {
	prog, err := svc.repo.GetProgram(ctx, phase.ProgramID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("announcing winner of program %d: %v", phase.ProgramID, err), err)
		return
	}

	msg := fmt.Sprintf("Congratulations! Your team %q won the program %q.", winner.Name, prog.Name)
	svc.notifyMembers(ctx, winner.Members, notification.TypeWinnerAnnouncement, msg, winner, null.IntFrom(phase.ID))

	others, err := svc.repo.QueryCandidatures(ctx, prog.ID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("querying candidatures of program %d: %v", prog.ID, err), err)
	}
	for _, c := range others {
		if c.ID == winner.ID {
			continue
		}
		msg := fmt.Sprintf("The program %q has ended. The winning team is %q.", prog.Name, winner.Name)
		svc.notifyMembers(ctx, c.Members, notification.TypeProgramResult, msg, c, null.IntFrom(phase.ID))
	}

	messages := make([]*core.EmailMessage, 0, len(winner.Members))
	for _, m := range winner.Members {
		if m.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: m.Name, Address: m.Email}},
			Subject:      "Winner of " + prog.Name,
			TemplateName: "winner_announcement",
			TemplateData: map[string]interface{}{
				"Name":        m.Name,
				"Program":     prog.Name,
				"Candidature": winner.Name,
			},
		})
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
}

// GetProgramWinner reports the program's winner. A program without winner is not an error.
func (svc *Service) GetProgramWinner(ctx context.Context, programID int) (Winner, bool, error) {
	prog, err := svc.repo.GetProgram(ctx, programID)
	if err != nil {
		return Winner{}, false, err
	}
	phase, err := svc.repo.GetWinnerPhase(ctx, programID)
	if err != nil {
		if core.IsNotFound(err) {
			return Winner{}, false, nil
		}
		return Winner{}, false, errors.Wrap(err, "finding winner phase")
	}
	cand, err := svc.repo.GetCandidature(ctx, phase.WinnerID.Int)
	if err != nil {
		return Winner{}, false, errors.Wrap(err, "finding winner candidature")
	}
	return Winner{Program: prog, Phase: phase, Candidature: cand}, true, nil
}

// notifyMembers dispatches one notification per member. Dispatch failures are logged by the notifier
// and never undo the committed change that triggered them.
func (svc *Service) notifyMembers(
	ctx context.Context,
	members []Member,
	notifType, msg string,
	cand Candidature,
	phaseID null.Int,
) {
	if len(members) == 0 {
		return
	}
	nns := make([]notification.NewNotification, 0, len(members))
	for _, m := range members {
		nns = append(nns, notification.NewNotification{
			Recipient:     m.Identity(),
			Type:          notifType,
			Message:       msg,
			RelatedID:     null.IntFrom(cand.ID),
			ProgramID:     null.IntFrom(cand.ProgramID),
			CandidatureID: null.IntFrom(cand.ID),
			PhaseID:       phaseID,
		})
	}
	if _, err := svc.notifier.CreateMany(ctx, nns...); err != nil {
		svc.logger.Debug(fmt.Sprintf("notifying members of candidature %d: %v", cand.ID, err))
	}
}
