package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
)

type programRepository struct {
	db *DB
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *DB) program.Repository {
	return &programRepository{db: db}
}

// Programs

func (repo *programRepository) CreateProgram(_ context.Context, p program.Program) (program.Program, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = repo.db.nextID("programme")
	repo.db.programs[p.ID] = &p
	return p, nil
}

func (repo *programRepository) GetProgram(_ context.Context, id int) (program.Program, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.programs[id]; ok {
		return *p, nil
	}
	return program.Program{}, core.NewNotFoundError("programme", id)
}

func (repo *programRepository) QueryPrograms(_ context.Context) ([]program.Program, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	programs := make([]program.Program, 0, len(repo.db.programs))
	for _, p := range repo.db.programs {
		programs = append(programs, *p)
	}
	sort.Slice(programs, func(i, j int) bool {
		if !programs[i].CreatedAt.Equal(programs[j].CreatedAt) {
			return programs[i].CreatedAt.After(programs[j].CreatedAt)
		}
		return programs[i].ID > programs[j].ID
	})
	return programs, nil
}

// DeleteProgram removes the program with its phases, candidatures and their history.
func (repo *programRepository) DeleteProgram(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.programs[id]; !ok {
		return core.NewNotFoundError("programme", id)
	}
	for candID, c := range repo.db.candidatures {
		if c.ProgramID != id {
			continue
		}
		repo.deleteCandidature(candID)
	}
	for phaseID, ph := range repo.db.phases {
		if ph.ProgramID == id {
			repo.deletePhasePlanning(phaseID)
			delete(repo.db.phases, phaseID)
		}
	}
	delete(repo.db.programs, id)
	return nil
}

func (repo *programRepository) deleteCandidature(id int) {
	for tID, t := range repo.db.transitions {
		if t.CandidatureID == id {
			delete(repo.db.transitions, tID)
		}
	}
	delete(repo.db.members, id)
	delete(repo.db.candidatures, id)
}

func (repo *programRepository) deletePhasePlanning(phaseID int) {
	for id, m := range repo.db.meetings {
		if m.PhaseID == phaseID {
			delete(repo.db.meetings, id)
		}
	}
	for id, t := range repo.db.tasks {
		if t.PhaseID == phaseID {
			delete(repo.db.tasks, id)
		}
	}
	for id, d := range repo.db.deliverables {
		if d.PhaseID == phaseID {
			delete(repo.db.deliverables, id)
		}
	}
	for id, c := range repo.db.criteria {
		if c.PhaseID == phaseID {
			delete(repo.db.criteria, id)
		}
	}
}

// Phases

// checkPhase enforces the per-program unique position and single terminal phase.
func (repo *programRepository) checkPhase(ph program.Phase) error {
	for _, other := range repo.db.phases {
		if other.ID == ph.ID || other.ProgramID != ph.ProgramID {
			continue
		}
		if other.Position == ph.Position {
			return program.ErrPositionTaken
		}
		if ph.IsTerminal && other.IsTerminal {
			return program.ErrTerminalExists
		}
	}
	return nil
}

func (repo *programRepository) CreatePhase(_ context.Context, ph program.Phase) (program.Phase, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.programs[ph.ProgramID]; !ok {
		return program.Phase{}, core.NewNotFoundError("programme", ph.ProgramID)
	}
	if ph.Position == 0 {
		for _, other := range repo.db.phases {
			if other.ProgramID == ph.ProgramID && other.Position > ph.Position {
				ph.Position = other.Position
			}
		}
		ph.Position++
	}
	if err := repo.checkPhase(ph); err != nil {
		return program.Phase{}, err
	}
	ph.ID = repo.db.nextID("phase")
	repo.db.phases[ph.ID] = &ph
	return ph, nil
}

func (repo *programRepository) GetPhase(_ context.Context, id int) (program.Phase, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ph, ok := repo.db.phases[id]; ok {
		return *ph, nil
	}
	return program.Phase{}, core.NewNotFoundError("phase", id)
}

func (repo *programRepository) QueryPhases(_ context.Context, programID int) ([]program.Phase, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	phases := make([]program.Phase, 0)
	for _, ph := range repo.db.phases {
		if ph.ProgramID == programID {
			phases = append(phases, *ph)
		}
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i].Position < phases[j].Position })
	return phases, nil
}

func (repo *programRepository) UpdatePhase(_ context.Context, ph program.Phase) (program.Phase, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.phases[ph.ID]
	if !ok {
		return program.Phase{}, core.NewNotFoundError("phase", ph.ID)
	}
	if err := repo.checkPhase(ph); err != nil {
		return program.Phase{}, err
	}
	// the winner is only ever set through SetWinner
	ph.WinnerID = orig.WinnerID
	ph.ProgramID = orig.ProgramID
	repo.db.phases[ph.ID] = &ph
	return ph, nil
}

func (repo *programRepository) DeletePhase(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.phases[id]; !ok {
		return core.NewNotFoundError("phase", id)
	}
	for _, c := range repo.db.candidatures {
		if c.PhaseID == id {
			return program.ErrPhaseInUse
		}
	}
	for _, t := range repo.db.transitions {
		if t.PreviousPhaseID.Valid && t.PreviousPhaseID.Int == id {
			t.PreviousPhaseID.Valid = false
		}
		if t.NewPhaseID.Valid && t.NewPhaseID.Int == id {
			t.NewPhaseID.Valid = false
		}
	}
	repo.deletePhasePlanning(id)
	delete(repo.db.phases, id)
	return nil
}

// Candidatures

func (repo *programRepository) CreateCandidature(_ context.Context, c program.Candidature, memberIDs []int) (program.Candidature, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.candidatures {
		if other.ProgramID == c.ProgramID && other.EntityType == c.EntityType && other.EntityID == c.EntityID {
			return program.Candidature{}, program.ErrEntityEnrolled
		}
	}
	members := make([]int, 0, len(memberIDs))
	for _, userID := range memberIDs {
		if _, ok := repo.db.users[userID]; !ok {
			return program.Candidature{}, core.NewNotFoundError("user", userID)
		}
		if !containsInt(members, userID) {
			members = append(members, userID)
		}
	}

	c.ID = repo.db.nextID("candidature")
	c.Members = nil
	repo.db.candidatures[c.ID] = &c
	repo.db.members[c.ID] = members
	return repo.candidature(c.ID), nil
}

// candidature returns a copy of the candidature with its members. Callers must hold the lock.
func (repo *programRepository) candidature(id int) program.Candidature {
	c := *repo.db.candidatures[id]
	c.Members = make([]program.Member, 0, len(repo.db.members[id]))
	for _, userID := range repo.db.members[id] {
		if u, ok := repo.db.users[userID]; ok {
			c.Members = append(c.Members, program.Member{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
		}
	}
	return c
}

func (repo *programRepository) GetCandidature(_ context.Context, id int) (program.Candidature, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, ok := repo.db.candidatures[id]; !ok {
		return program.Candidature{}, core.NewNotFoundError("candidature", id)
	}
	return repo.candidature(id), nil
}

func (repo *programRepository) GetCandidatureByEntity(_ context.Context, programID int, entityType string, entityID int) (program.Candidature, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, c := range repo.db.candidatures {
		if c.ProgramID == programID && c.EntityType == entityType && c.EntityID == entityID {
			return repo.candidature(c.ID), nil
		}
	}
	return program.Candidature{}, core.NewNotFoundError("candidature", entityType, entityID)
}

func (repo *programRepository) QueryCandidatures(_ context.Context, programID int) ([]program.Candidature, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cands := make([]program.Candidature, 0)
	for _, c := range repo.db.candidatures {
		if c.ProgramID == programID {
			cands = append(cands, repo.candidature(c.ID))
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].ID < cands[j].ID })
	return cands, nil
}

func (repo *programRepository) AddMember(_ context.Context, candidatureID, userID int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.candidatures[candidatureID]; !ok {
		return core.NewNotFoundError("candidature", candidatureID)
	}
	if _, ok := repo.db.users[userID]; !ok {
		return core.NewNotFoundError("user", userID)
	}
	if containsInt(repo.db.members[candidatureID], userID) {
		return program.ErrMemberExists
	}
	repo.db.members[candidatureID] = append(repo.db.members[candidatureID], userID)
	return nil
}

// History

func (repo *programRepository) AdvanceCandidature(_ context.Context, t program.Transition) (program.Candidature, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c, ok := repo.db.candidatures[t.CandidatureID]
	if !ok {
		return program.Candidature{}, core.NewNotFoundError("candidature", t.CandidatureID)
	}
	if !t.PreviousPhaseID.Valid || c.PhaseID != t.PreviousPhaseID.Int {
		return program.Candidature{}, program.ErrCandidatureMoved
	}
	if _, ok := repo.db.phases[t.NewPhaseID.Int]; !t.NewPhaseID.Valid || !ok {
		return program.Candidature{}, core.NewNotFoundError("phase", t.NewPhaseID.Int)
	}

	c.PhaseID = t.NewPhaseID.Int
	c.UpdatedAt = time.Now().UTC()
	t.ID = repo.db.nextID("phase_historique")
	repo.db.transitions[t.ID] = &t
	return repo.candidature(c.ID), nil
}

func (repo *programRepository) QueryTransitions(_ context.Context, candidatureID int) ([]program.Transition, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	transitions := make([]program.Transition, 0)
	for _, t := range repo.db.transitions {
		if t.CandidatureID == candidatureID {
			transitions = append(transitions, *t)
		}
	}
	sort.Slice(transitions, func(i, j int) bool { return transitions[i].ID < transitions[j].ID })
	return transitions, nil
}

// Winner

func (repo *programRepository) SetWinner(_ context.Context, phaseID, candidatureID int) (program.Phase, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ph, ok := repo.db.phases[phaseID]
	if !ok {
		return program.Phase{}, core.NewNotFoundError("phase", phaseID)
	}
	for _, other := range repo.db.phases {
		if other.ProgramID == ph.ProgramID && other.WinnerID.Valid {
			return program.Phase{}, program.ErrWinnerExists
		}
	}
	ph.WinnerID.SetValid(candidatureID)
	return *ph, nil
}

func (repo *programRepository) GetWinnerPhase(_ context.Context, programID int) (program.Phase, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, ph := range repo.db.phases {
		if ph.ProgramID == programID && ph.WinnerID.Valid {
			return *ph, nil
		}
	}
	return program.Phase{}, core.NewNotFoundError("winner", programID)
}
