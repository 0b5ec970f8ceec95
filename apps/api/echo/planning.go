package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core/planning"
)

type planningApi struct {
	svc planning.ServiceInterface
}

// registerPlanningAPI serves the per-phase planning items. Anyone authenticated reads, admins write.
func registerPlanningAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc planning.ServiceInterface) {
	api := planningApi{svc: svc}
	admin := adminMiddleware()

	rg := g.Group("/reunion", jwt)
	rg.POST("", api.createMeeting, admin)
	rg.GET("/phase/:phaseId", api.list(func(ctx context.Context, phaseID int) (interface{}, error) {
		ms, err := svc.QueryMeetings(ctx, phaseID)
		if ms == nil {
			ms = []planning.Meeting{}
		}
		return ms, err
	}))
	rg.PUT("/:id", api.updateMeeting, admin)
	rg.DELETE("/:id/:phaseId", api.destroy(svc.DeleteMeeting), admin)

	tg := g.Group("/tache", jwt)
	tg.POST("", api.createTask, admin)
	tg.GET("/phase/:phaseId", api.list(func(ctx context.Context, phaseID int) (interface{}, error) {
		ts, err := svc.QueryTasks(ctx, phaseID)
		if ts == nil {
			ts = []planning.Task{}
		}
		return ts, err
	}))
	tg.DELETE("/:id/:phaseId", api.destroy(svc.DeleteTask), admin)

	lg := g.Group("/livrable", jwt)
	lg.POST("", api.createDeliverable, admin)
	lg.GET("/phase/:phaseId", api.list(func(ctx context.Context, phaseID int) (interface{}, error) {
		ds, err := svc.QueryDeliverables(ctx, phaseID)
		if ds == nil {
			ds = []planning.Deliverable{}
		}
		return ds, err
	}))
	lg.DELETE("/:id/:phaseId", api.destroy(svc.DeleteDeliverable), admin)

	cg := g.Group("/criteres", jwt)
	cg.POST("", api.createCriterion, admin)
	cg.GET("/phase/:phaseId", api.list(func(ctx context.Context, phaseID int) (interface{}, error) {
		return svc.QueryCriteria(ctx, phaseID)
	}))
	cg.DELETE("/:id/:phaseId", api.destroy(svc.DeleteCriterion), admin)
}

func (api *planningApi) list(query func(ctx context.Context, phaseID int) (interface{}, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		phaseID, err := intParam(ctx, "phaseId")
		if err != nil {
			return err
		}
		items, err := query(ctx.Request().Context(), phaseID)
		if err != nil {
			return errors.Wrap(err, "querying planning items")
		}
		return ctx.JSON(http.StatusOK, items)
	}
}

// destroy deletes the `:id` item only if it belongs to `:phaseId`.
func (api *planningApi) destroy(del func(ctx context.Context, id, phaseID int) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := intParam(ctx, "id")
		if err != nil {
			return err
		}
		phaseID, err := intParam(ctx, "phaseId")
		if err != nil {
			return err
		}
		if err := del(ctx.Request().Context(), id, phaseID); err != nil {
			return errors.Wrap(err, "deleting planning item")
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}

func (api *planningApi) createMeeting(ctx echo.Context) error {
	var data planning.NewMeeting
	if err := bind(ctx, &data); err != nil {
		return err
	}
	m, err := api.svc.CreateMeeting(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating meeting")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *planningApi) updateMeeting(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data planning.UpdateMeeting
	if err := bind(ctx, &data); err != nil {
		return err
	}
	m, err := api.svc.UpdateMeeting(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating meeting")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *planningApi) createTask(ctx echo.Context) error {
	var data planning.NewTask
	if err := bind(ctx, &data); err != nil {
		return err
	}
	t, err := api.svc.CreateTask(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *planningApi) createDeliverable(ctx echo.Context) error {
	var data planning.NewDeliverable
	if err := bind(ctx, &data); err != nil {
		return err
	}
	d, err := api.svc.CreateDeliverable(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating deliverable")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *planningApi) createCriterion(ctx echo.Context) error {
	var data planning.NewCriterion
	if err := bind(ctx, &data); err != nil {
		return err
	}
	c, err := api.svc.CreateCriterion(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating criterion")
	}
	return ctx.JSON(http.StatusCreated, c)
}
