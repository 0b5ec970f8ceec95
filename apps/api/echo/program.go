package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core/program"
)

var errNoWinner = echo.NewHTTPError(http.StatusNotFound, "no winner has been declared for this program")

type programApi struct {
	svc program.ServiceInterface
}

func registerProgramAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc program.ServiceInterface) {
	api := programApi{svc: svc}
	admin := adminMiddleware()

	pg := g.Group("/programme", jwt)
	pg.GET("", api.queryPrograms)
	pg.POST("", api.createProgram, admin)
	pg.GET("/:id", api.retrieveProgram)
	pg.DELETE("/:id", api.destroyProgram, admin)
	pg.GET("/:id/phases", api.queryPhases)

	phg := g.Group("/phase", jwt)
	phg.POST("", api.createPhase, admin)
	phg.GET("/:id", api.retrievePhase)
	phg.PUT("/:id", api.updatePhase, admin)
	phg.DELETE("/:id", api.destroyPhase, admin)

	cg := g.Group("/CandidaturePhase", jwt)
	cg.POST("/phases/avancer", api.advance, admin)
	cg.POST("/phases/declarer-gagnant", api.declareWinner, admin)
	cg.GET("/programme/:programId/gagnant", api.winner)
	cg.GET("/programme/:programId", api.queryCandidatures)
	cg.GET("/:candidatureId/historique", api.history)

	eg := g.Group("/equipe", jwt, admin)
	eg.POST("", api.createCandidature)
	eg.POST("/:id/membres", api.addMember)
}

// Programs

func (api *programApi) queryPrograms(ctx echo.Context) error {
	progs, err := api.svc.QueryPrograms(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	if progs == nil {
		progs = []program.Program{}
	}
	return ctx.JSON(http.StatusOK, progs)
}

func (api *programApi) createProgram(ctx echo.Context) error {
	var data program.NewProgram
	if err := bind(ctx, &data); err != nil {
		return err
	}
	prog, err := api.svc.CreateProgram(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, prog)
}

func (api *programApi) retrieveProgram(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	prog, err := api.svc.GetProgram(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *programApi) destroyProgram(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteProgram(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting program")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Phases

func (api *programApi) queryPhases(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	phases, err := api.svc.QueryPhases(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying phases")
	}
	if phases == nil {
		phases = []program.Phase{}
	}
	return ctx.JSON(http.StatusOK, phases)
}

func (api *programApi) createPhase(ctx echo.Context) error {
	var data program.NewPhase
	if err := bind(ctx, &data); err != nil {
		return err
	}
	phase, err := api.svc.CreatePhase(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating phase")
	}
	return ctx.JSON(http.StatusCreated, phase)
}

func (api *programApi) retrievePhase(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	phase, err := api.svc.GetPhase(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding phase")
	}
	return ctx.JSON(http.StatusOK, phase)
}

func (api *programApi) updatePhase(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data program.UpdatePhase
	if err := bind(ctx, &data); err != nil {
		return err
	}
	phase, err := api.svc.UpdatePhase(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating phase")
	}
	return ctx.JSON(http.StatusOK, phase)
}

func (api *programApi) destroyPhase(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeletePhase(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting phase")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Candidatures

func (api *programApi) createCandidature(ctx echo.Context) error {
	var data program.NewCandidature
	if err := bind(ctx, &data); err != nil {
		return err
	}
	cand, err := api.svc.CreateCandidature(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating candidature")
	}
	return ctx.JSON(http.StatusCreated, cand)
}

func (api *programApi) addMember(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data program.AddMember
	if err := bind(ctx, &data); err != nil {
		return err
	}
	cand, err := api.svc.AddMember(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "adding member")
	}
	return ctx.JSON(http.StatusOK, cand)
}

func (api *programApi) queryCandidatures(ctx echo.Context) error {
	id, err := intParam(ctx, "programId")
	if err != nil {
		return err
	}
	cands, err := api.svc.QueryCandidatures(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying candidatures")
	}
	if cands == nil {
		cands = []program.Candidature{}
	}
	return ctx.JSON(http.StatusOK, cands)
}

func (api *programApi) history(ctx echo.Context) error {
	id, err := intParam(ctx, "candidatureId")
	if err != nil {
		return err
	}
	ts, err := api.svc.QueryHistory(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying history")
	}
	if ts == nil {
		ts = []program.Transition{}
	}
	return ctx.JSON(http.StatusOK, ts)
}

// Progression

func (api *programApi) advance(ctx echo.Context) error {
	var data program.AdvanceRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	res, err := api.svc.AdvancePhase(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "advancing phase")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *programApi) declareWinner(ctx echo.Context) error {
	var data program.DeclareWinnerRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	res, err := api.svc.DeclareWinner(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "declaring winner")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *programApi) winner(ctx echo.Context) error {
	id, err := intParam(ctx, "programId")
	if err != nil {
		return err
	}
	w, found, err := api.svc.GetProgramWinner(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding program winner")
	}
	if !found {
		return errNoWinner
	}
	return ctx.JSON(http.StatusOK, w)
}
