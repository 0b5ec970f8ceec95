package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meryambn/mimiScaleUp-sub005/core/planning"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
)

func Test_planningApi(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	admin := app.createUser(t, "Admin", "admin@scaleup.test", pwd, user.RoleAdmin, true)
	amina := app.createUser(t, "Amina", "amina@rocket.test", pwd, user.RoleStartup, true)
	adminToken, aminaToken := getToken(t, admin), getToken(t, amina)

	prog, err := app.programSvc.CreateProgram(ctx, program.NewProgram{Name: "Spring Batch"})
	require.NoError(t, err)
	phase, err := app.programSvc.CreatePhase(ctx, program.NewPhase{ProgramID: prog.ID, Name: "Ideation"})
	require.NoError(t, err)
	other, err := app.programSvc.CreatePhase(ctx, program.NewPhase{ProgramID: prog.ID, Name: "Demo day"})
	require.NoError(t, err)

	day := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []httpTest{
		{
			name: "startup cannot plan", method: http.MethodPost, path: "/api/reunion", token: aminaToken,
			body: marshalObj(t, planning.NewMeeting{PhaseID: phase.ID, Title: "Kickoff", Date: day}),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "unknown phase", method: http.MethodPost, path: "/api/tache", token: adminToken,
			body: marshalObj(t, planning.NewTask{PhaseID: 999, Title: "Deck"}), wantCode: http.StatusNotFound,
		},
		{
			name: "bad task status", method: http.MethodPost, path: "/api/tache", token: adminToken,
			body: marshalObj(t, planning.NewTask{PhaseID: phase.ID, Title: "Deck", Status: "later"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "weight over 100", method: http.MethodPost, path: "/api/criteres", token: adminToken,
			body: marshalObj(t, planning.NewCriterion{
				PhaseID: phase.ID, Name: "Team", Type: planning.CriterionStars, Weight: 120, FilledBy: planning.FilledByMentors,
			}),
			wantCode: http.StatusBadRequest,
		},
		{name: "empty phase", path: fmt.Sprintf("/api/livrable/phase/%d", other.ID), token: aminaToken, wantCode: http.StatusOK, wantData: []byte("[]")},
		{name: "invalid phase id", path: "/api/tache/phase/abc", token: aminaToken, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, tt.run(t, app))
		})
	}

	t.Run("meetings", func(t *testing.T) {
		var m planning.Meeting
		rec := app.do(t, http.MethodPost, "/api/reunion", adminToken, planning.NewMeeting{
			PhaseID: phase.ID, Title: " Kickoff ", Date: day, Location: "Room 1",
		}, &m)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Kickoff", m.Title)

		loc := "Room 2"
		rec = app.do(t, http.MethodPut, fmt.Sprintf("/api/reunion/%d", m.ID), adminToken, planning.UpdateMeeting{Location: &loc}, &m)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Room 2", m.Location)
		assert.Equal(t, "Kickoff", m.Title)

		var meetings []planning.Meeting
		rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/reunion/phase/%d", phase.ID), aminaToken, nil, &meetings)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, meetings, 1)
	})

	t.Run("delete scoped to the phase", func(t *testing.T) {
		var task planning.Task
		rec := app.do(t, http.MethodPost, "/api/tache", adminToken, planning.NewTask{PhaseID: phase.ID, Title: "Write the deck"}, &task)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, planning.TaskTodo, task.Status)

		rec = app.do(t, http.MethodDelete, fmt.Sprintf("/api/tache/%d/%d", task.ID, other.ID), adminToken, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

		var tasks []planning.Task
		app.do(t, http.MethodGet, fmt.Sprintf("/api/tache/phase/%d", phase.ID), aminaToken, nil, &tasks)
		assert.Len(t, tasks, 1, "nothing deleted")

		rec = app.do(t, http.MethodDelete, fmt.Sprintf("/api/tache/%d/%d", task.ID, phase.ID), aminaToken, nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = app.do(t, http.MethodDelete, fmt.Sprintf("/api/tache/%d/%d", task.ID, phase.ID), adminToken, nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		app.do(t, http.MethodGet, fmt.Sprintf("/api/tache/phase/%d", phase.ID), aminaToken, nil, &tasks)
		assert.Empty(t, tasks)
	})

	t.Run("deliverables", func(t *testing.T) {
		var d planning.Deliverable
		rec := app.do(t, http.MethodPost, "/api/livrable", adminToken, planning.NewDeliverable{
			PhaseID: phase.ID, Name: "Business plan", FileTypes: "pdf",
		}, &d)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var ds []planning.Deliverable
		rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/livrable/phase/%d", phase.ID), aminaToken, nil, &ds)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, ds, 1)
		assert.Equal(t, d.ID, ds[0].ID)
	})

	t.Run("criteria", func(t *testing.T) {
		for _, nc := range []planning.NewCriterion{
			{PhaseID: phase.ID, Name: "Team", Type: planning.CriterionStars, Weight: 40, FilledBy: planning.FilledByMentors},
			{PhaseID: phase.ID, Name: "Market", Type: planning.CriterionList, Weight: 35, FilledBy: planning.FilledByMentors, Options: []string{"small", "large"}},
		} {
			rec := app.do(t, http.MethodPost, "/api/criteres", adminToken, nc, nil)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		}

		rec := app.do(t, http.MethodPost, "/api/criteres", adminToken, planning.NewCriterion{
			PhaseID: phase.ID, Name: "Segment", Type: planning.CriterionList, Weight: 10, FilledBy: planning.FilledByTeams,
		}, nil)
		checkErrorFields(t, rec, "options")

		var grid planning.CriteriaList
		rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/criteres/phase/%d", phase.ID), aminaToken, nil, &grid)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, grid.Criteria, 2)
		assert.Equal(t, 75, grid.TotalWeight, "weights need not sum to 100")
	})
}

func Test_metrics(t *testing.T) {
	app := setup(t)
	app.do(t, http.MethodGet, "/", "", nil, nil)

	rec := app.do(t, http.MethodGet, "/metrics", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `scaleup_http_requests_total{code="200",method="GET",path="/"} 1`), body)
	assert.Contains(t, body, "scaleup_realtime_connections 0")
}
