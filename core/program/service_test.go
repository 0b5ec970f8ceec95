package program_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
	appfs "github.com/meryambn/mimiScaleUp-sub005/fs"
	emailsvc "github.com/meryambn/mimiScaleUp-sub005/services/email"
	dummydb "github.com/meryambn/mimiScaleUp-sub005/storage/database/dummy"
	"github.com/meryambn/mimiScaleUp-sub005/testutil"
)

type fixture struct {
	svc      *program.Service
	notifSvc *notification.Service
	pusher   *testutil.Pusher
	logger   *testutil.Logger
	repo     program.Repository

	prog           program.Program
	phaseA, phaseB program.Phase
	phaseC         program.Phase // terminal
	rocket, blue   program.Candidature
	amina, youssef user.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := &testutil.Logger{}
	validator := testutil.NewValidator()
	core.ParseEmailTemplates(appfs.FS, "templates/email", logger, true)
	emailsvc.ResetSentMessages()

	db := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	f := &fixture{pusher: testutil.NewPusher(), logger: logger}
	f.amina = testutil.CreateUser(t, usrRepo, "Amina", "amina@rocket.test", "", user.RoleStartup, true)
	f.youssef = testutil.CreateUser(t, usrRepo, "Youssef", "youssef@blue.test", "", user.RoleStartup, true)

	f.notifSvc = notification.NewService(dummydb.NewNotificationRepository(db), f.pusher, validator, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(&core.Config{AppName: "ScaleUp"}, logger)
	f.repo = dummydb.NewProgramRepository(db)
	f.svc = program.NewService(f.repo, f.notifSvc, mailSvc, validator, logger)

	var err error
	f.prog, err = f.svc.CreateProgram(ctx, program.NewProgram{Name: "Spring Batch"})
	require.NoError(t, err)
	f.phaseA, err = f.svc.CreatePhase(ctx, program.NewPhase{ProgramID: f.prog.ID, Name: "A"})
	require.NoError(t, err)
	f.phaseB, err = f.svc.CreatePhase(ctx, program.NewPhase{ProgramID: f.prog.ID, Name: "B"})
	require.NoError(t, err)
	f.phaseC, err = f.svc.CreatePhase(ctx, program.NewPhase{ProgramID: f.prog.ID, Name: "C", IsTerminal: true})
	require.NoError(t, err)

	f.rocket, err = f.svc.CreateCandidature(ctx, program.NewCandidature{
		ProgramID: f.prog.ID, EntityType: program.EntityTeam, EntityID: 10, Name: "Rocket", MemberIDs: []int{f.amina.ID},
	})
	require.NoError(t, err)
	f.blue, err = f.svc.CreateCandidature(ctx, program.NewCandidature{
		ProgramID: f.prog.ID, EntityType: program.EntityStartup, EntityID: 20, Name: "Blue", MemberIDs: []int{f.youssef.ID},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) advance(c program.Candidature, to program.Phase) (program.AdvanceResult, error) {
	return f.svc.AdvancePhase(context.Background(), program.AdvanceRequest{
		EntityType:  c.EntityType,
		EntityID:    c.EntityID,
		NextPhaseID: to.ID,
		ProgramID:   c.ProgramID,
	})
}

func (f *fixture) currentPhase(t *testing.T, candidatureID int) int {
	cands, err := f.svc.QueryCandidatures(context.Background(), f.prog.ID)
	require.NoError(t, err)
	for _, c := range cands {
		if c.ID == candidatureID {
			return c.PhaseID
		}
	}
	t.Fatalf("candidature %d not found", candidatureID)
	return 0
}

func TestService_CreatePhase(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	assert.Equal(t, []int{1, 2, 3}, []int{f.phaseA.Position, f.phaseB.Position, f.phaseC.Position})
	assert.Equal(t, f.phaseA.ID, f.rocket.PhaseID, "candidatures start at the first phase")

	tests := []struct {
		name    string
		np      program.NewPhase
		checkFn func(error) bool
	}{
		{"missing program", program.NewPhase{ProgramID: 999, Name: "X"}, core.IsNotFound},
		{"blank name", program.NewPhase{ProgramID: f.prog.ID, Name: "  "}, core.IsValidation},
		{"position taken", program.NewPhase{ProgramID: f.prog.ID, Name: "X", Position: 2}, core.IsConflict},
		{"second terminal", program.NewPhase{ProgramID: f.prog.ID, Name: "X", IsTerminal: true}, core.IsConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreatePhase(ctx, tt.np)
			require.Error(t, err)
			assert.True(t, tt.checkFn(err), "unexpected error: %v", err)
		})
	}
}

func TestService_AdvancePhase(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.advance(f.rocket, f.phaseB)
	require.NoError(t, err)
	assert.Equal(t, program.AdvanceResult{
		Message:       "candidature moved to the next phase",
		Name:          "Rocket",
		EntityType:    program.EntityTeam,
		EntityID:      10,
		PreviousPhase: "A",
		NewPhase:      "B",
		CandidatureID: f.rocket.ID,
	}, res)
	assert.Equal(t, f.phaseB.ID, f.currentPhase(t, f.rocket.ID))

	history, err := f.svc.QueryHistory(ctx, f.rocket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, f.phaseA.ID, history[0].PreviousPhaseID.Int)
	assert.Equal(t, f.phaseB.ID, history[0].NewPhaseID.Int)

	notifs, err := f.notifSvc.Fetch(ctx, f.amina.Identity())
	require.NoError(t, err)
	require.NotEmpty(t, notifs)
	assert.Equal(t, notification.TypePhaseAdvance, notifs[0].Type)
	assert.Equal(t, f.phaseB.ID, notifs[0].PhaseID.Int)

	other, err := f.svc.CreateProgram(ctx, program.NewProgram{Name: "Other"})
	require.NoError(t, err)
	foreign, err := f.svc.CreatePhase(ctx, program.NewPhase{ProgramID: other.ID, Name: "Z"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     program.AdvanceRequest
		checkFn func(error) bool
	}{
		{
			name:    "backwards",
			req:     program.AdvanceRequest{EntityType: program.EntityTeam, EntityID: 10, NextPhaseID: f.phaseA.ID, ProgramID: f.prog.ID},
			checkFn: core.IsValidation,
		},
		{
			name:    "same phase",
			req:     program.AdvanceRequest{EntityType: program.EntityTeam, EntityID: 10, NextPhaseID: f.phaseB.ID, ProgramID: f.prog.ID},
			checkFn: core.IsValidation,
		},
		{
			name:    "phase of another program",
			req:     program.AdvanceRequest{EntityType: program.EntityTeam, EntityID: 10, NextPhaseID: foreign.ID, ProgramID: f.prog.ID},
			checkFn: core.IsValidation,
		},
		{
			name:    "unknown phase",
			req:     program.AdvanceRequest{EntityType: program.EntityTeam, EntityID: 10, NextPhaseID: 999, ProgramID: f.prog.ID},
			checkFn: core.IsNotFound,
		},
		{
			name:    "unknown entity",
			req:     program.AdvanceRequest{EntityType: program.EntityTeam, EntityID: 77, NextPhaseID: f.phaseC.ID, ProgramID: f.prog.ID},
			checkFn: core.IsNotFound,
		},
		{
			name:    "invalid entity type",
			req:     program.AdvanceRequest{EntityType: "mentor", EntityID: 10, NextPhaseID: f.phaseC.ID, ProgramID: f.prog.ID},
			checkFn: core.IsValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AdvancePhase(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, tt.checkFn(err), "unexpected error: %v", err)
			assert.Equal(t, f.phaseB.ID, f.currentPhase(t, f.rocket.ID), "phase must be unchanged")
		})
	}
}

func TestService_DeclareWinner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// A -> B -> C, then declare
	_, err := f.advance(f.rocket, f.phaseB)
	require.NoError(t, err)
	_, err = f.advance(f.rocket, f.phaseC)
	require.NoError(t, err)

	_, found, err := f.svc.GetProgramWinner(ctx, f.prog.ID)
	require.NoError(t, err)
	assert.False(t, found)

	t.Run("not at the terminal phase", func(t *testing.T) {
		_, err := f.svc.DeclareWinner(ctx, program.DeclareWinnerRequest{PhaseID: f.phaseC.ID, CandidatureID: f.blue.ID})
		assert.True(t, core.IsValidation(err), "unexpected error: %v", err)
	})
	t.Run("non terminal phase", func(t *testing.T) {
		_, err := f.svc.DeclareWinner(ctx, program.DeclareWinnerRequest{PhaseID: f.phaseB.ID, CandidatureID: f.rocket.ID})
		assert.True(t, core.IsValidation(err), "unexpected error: %v", err)
	})

	res, err := f.svc.DeclareWinner(ctx, program.DeclareWinnerRequest{PhaseID: f.phaseC.ID, CandidatureID: f.rocket.ID})
	require.NoError(t, err)
	assert.Equal(t, f.rocket.ID, res.CandidatureID)
	assert.Equal(t, f.rocket.ID, res.Phase.WinnerID.Int)

	winner, found, err := f.svc.GetProgramWinner(ctx, f.prog.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, f.rocket.ID, winner.Candidature.ID)
	assert.Equal(t, f.phaseC.ID, winner.Phase.ID)
	assert.Equal(t, "Spring Batch", winner.Program.Name)
	require.Len(t, winner.Candidature.Members, 1)
	assert.Equal(t, f.amina.ID, winner.Candidature.Members[0].UserID)

	// a second winner is a conflict, wherever the other candidature stands
	_, err = f.svc.DeclareWinner(ctx, program.DeclareWinnerRequest{PhaseID: f.phaseC.ID, CandidatureID: f.blue.ID})
	assert.True(t, core.IsConflict(err), "blue still at A: unexpected error: %v", err)
	assert.Equal(t, f.phaseA.ID, f.currentPhase(t, f.blue.ID))

	_, err = f.advance(f.blue, f.phaseB)
	require.NoError(t, err)
	_, err = f.advance(f.blue, f.phaseC)
	require.NoError(t, err)
	_, err = f.svc.DeclareWinner(ctx, program.DeclareWinnerRequest{PhaseID: f.phaseC.ID, CandidatureID: f.blue.ID})
	assert.True(t, core.IsConflict(err), "blue at C: unexpected error: %v", err)

	winner, found, err = f.svc.GetProgramWinner(ctx, f.prog.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, f.rocket.ID, winner.Candidature.ID, "original winner must be intact")

	// winners and losers are told
	notifs, err := f.notifSvc.Fetch(ctx, f.amina.Identity())
	require.NoError(t, err)
	assert.Equal(t, notification.TypeWinnerAnnouncement, notifs[0].Type)
	notifs, err = f.notifSvc.Fetch(ctx, f.youssef.Identity())
	require.NoError(t, err)
	types := make([]string, 0, len(notifs))
	for _, n := range notifs {
		types = append(types, n.Type)
	}
	assert.Contains(t, types, notification.TypeProgramResult)
	assert.NotContains(t, types, notification.TypeWinnerAnnouncement)

	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "amina@rocket.test", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, `"Rocket"`)
}

func TestService_GetProgramWinner_UnknownProgram(t *testing.T) {
	f := setup(t)
	_, _, err := f.svc.GetProgramWinner(context.Background(), 999)
	assert.True(t, core.IsNotFound(err), "unexpected error: %v", err)
}

func TestService_UpdatePhase_WinnerStaysTerminal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.advance(f.rocket, f.phaseC)
	require.NoError(t, err)
	_, err = f.svc.DeclareWinner(ctx, program.DeclareWinnerRequest{PhaseID: f.phaseC.ID, CandidatureID: f.rocket.ID})
	require.NoError(t, err)

	notTerminal := false
	_, err = f.svc.UpdatePhase(ctx, f.phaseC.ID, program.UpdatePhase{IsTerminal: &notTerminal})
	assert.True(t, core.IsValidation(err), "unexpected error: %v", err)

	name := "Final"
	ph, err := f.svc.UpdatePhase(ctx, f.phaseC.ID, program.UpdatePhase{Name: name})
	require.NoError(t, err)
	assert.Equal(t, name, ph.Name)
	assert.True(t, ph.IsTerminal)
}

func TestService_Candidatures(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateCandidature(ctx, program.NewCandidature{
		ProgramID: f.prog.ID, EntityType: program.EntityTeam, EntityID: 10, Name: "Rocket again",
	})
	assert.True(t, core.IsConflict(err), "unexpected error: %v", err)

	cand, err := f.svc.AddMember(ctx, f.rocket.ID, program.AddMember{UserID: f.youssef.ID})
	require.NoError(t, err)
	assert.Len(t, cand.Members, 2)

	_, err = f.svc.AddMember(ctx, f.rocket.ID, program.AddMember{UserID: f.youssef.ID})
	assert.True(t, core.IsConflict(err), "unexpected error: %v", err)

	notifs, err := f.notifSvc.Fetch(ctx, f.youssef.Identity())
	require.NoError(t, err)
	assert.Equal(t, notification.TypeTeamAddition, notifs[0].Type)

	// phases with candidatures cannot be deleted
	assert.True(t, core.IsConflict(f.svc.DeletePhase(ctx, f.phaseA.ID)))
	assert.NoError(t, f.svc.DeletePhase(ctx, f.phaseB.ID))
}

type failingNotifier struct{}

func (failingNotifier) CreateMany(context.Context, ...notification.NewNotification) ([]notification.Notification, error) {
	return nil, errors.New("notification store down")
}

func TestService_AdvancePhase_NotifierFailure(t *testing.T) {
	f := setup(t)
	mailSvc := emailsvc.NewConsoleServiceMock(&core.Config{AppName: "ScaleUp"}, f.logger)
	svc := program.NewService(f.repo, failingNotifier{}, mailSvc, testutil.NewValidator(), f.logger)

	res, err := svc.AdvancePhase(context.Background(), program.AdvanceRequest{
		EntityType:  f.rocket.EntityType,
		EntityID:    f.rocket.EntityID,
		NextPhaseID: f.phaseB.ID,
		ProgramID:   f.prog.ID,
	})
	require.NoError(t, err, "a failed dispatch never undoes the advance")
	assert.Equal(t, "B", res.NewPhase)
	assert.Equal(t, f.phaseB.ID, f.currentPhase(t, f.rocket.ID))

	var logged bool
	for _, e := range f.logger.Entries("DEBUG") {
		if strings.Contains(e.Message, "notification store down") {
			logged = true
		}
	}
	assert.True(t, logged, "%+v", f.logger.Entries(""))
}
