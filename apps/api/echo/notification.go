package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
)

type notificationApi struct {
	svc notification.ServiceInterface
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc notification.ServiceInterface) {
	api := notificationApi{svc: svc}

	ng := g.Group("/notifications", jwt)
	ng.PUT("/:id/read", api.markAsRead)

	rg := ng.Group("/:userId/:userRole", identityMiddleware())
	rg.GET("", api.fetch)
	rg.GET("/unread-count", api.unreadCount)
	rg.PUT("/read-all", api.markAllAsRead)
}

func (api *notificationApi) fetch(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	ns, err := api.svc.Fetch(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "fetching notifications")
	}
	if ns == nil {
		ns = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	count, err := api.svc.UnreadCount(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, notification.UnreadCount{Count: count})
}

// markAsRead only lets the recipient (or an admin) through; other users get a 404.
func (api *notificationApi) markAsRead(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	n, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding notification")
	}
	if n.Recipient() != claims.Identity() && !claims.IsAdmin() {
		return errHttpNotFound
	}

	if n, err = api.svc.MarkAsRead(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "marking notification as read")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) markAllAsRead(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	count, err := api.svc.MarkAllAsRead(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "marking notifications as read")
	}
	return ctx.JSON(http.StatusOK, MarkedResponse{Marked: count})
}
