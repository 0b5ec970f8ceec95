package echoapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
	"github.com/meryambn/mimiScaleUp-sub005/services/realtime"
)

type realtimeApi struct {
	hub      *realtime.Hub
	handler  realtime.Handler
	svc      user.ServiceInterface
	logger   core.Logger
	upgrader websocket.Upgrader
}

// registerRealtimeAPI serves `GET /ws?token=<jwt>`. Browsers cannot set headers on websocket requests,
// hence the token in the query string.
func registerRealtimeAPI(
	e *echo.Echo,
	jwt echo.MiddlewareFunc,
	hub *realtime.Hub,
	handler realtime.Handler,
	svc user.ServiceInterface,
	logger core.Logger,
	conf *core.Config,
) {
	api := realtimeApi{
		hub:     hub,
		handler: handler,
		svc:     svc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(conf.Server.AllowOrigins),
		},
	}
	e.GET("/ws", api.connect, jwt)
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // not a browser
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func (api *realtimeApi) connect(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		api.logger.Debug("websocket upgrade failed", err)
		return nil
	}
	if err := api.hub.ServeConn(ctx.Request().Context(), conn, usr.Identity(), api.handler); err != nil {
		api.logger.Debug("serving websocket connection", err, usr.Identity())
	}
	return nil
}
