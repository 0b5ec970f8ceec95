package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/message"
)

type messageApi struct {
	svc message.ServiceInterface
}

func registerMessageAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc message.ServiceInterface) {
	api := messageApi{svc: svc}

	mg := g.Group("/messages", jwt)
	mg.POST("", api.send)
	mg.PUT("/:id/read", api.markRead)
	mg.PUT("/read-all/:senderId/:senderRole", api.markAllRead)

	mg.GET("/contacts/:userId/:userRole", api.contacts, identityMiddleware())
	mg.GET("/conversations/:userId/:userRole", api.conversations, identityMiddleware())
	mg.GET("/conversation/:userId/:userRole/:otherId/:otherRole", api.conversation, identityMiddleware())
}

// send is the REST fallback of the `private-message` event. The sender is the token's identity.
func (api *messageApi) send(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data message.PrivateMessagePayload
	if err := bind(ctx, &data); err != nil {
		return err
	}

	msg, err := api.svc.Send(ctx.Request().Context(), message.NewMessage{
		Sender:    claims.Identity(),
		Recipient: core.NewIdentity(data.ReceiverID, data.ReceiverRole),
		Content:   data.Content,
		TempID:    data.TempID,
	})
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	msg, err := api.svc.MarkRead(ctx.Request().Context(), claims.Identity(), id)
	if err != nil {
		return errors.Wrap(err, "marking message as read")
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *messageApi) markAllRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sender, err := core.ParseIdentity(ctx.Param("senderId"), ctx.Param("senderRole"))
	if err != nil {
		return err
	}
	ids, err := api.svc.MarkAllRead(ctx.Request().Context(), claims.Identity(), sender)
	if err != nil {
		return errors.Wrap(err, "marking messages as read")
	}
	return ctx.JSON(http.StatusOK, MarkedResponse{Marked: len(ids)})
}

func (api *messageApi) contacts(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	cs, err := api.svc.Contacts(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying contacts")
	}
	if cs == nil {
		cs = []message.Contact{}
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *messageApi) conversations(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	convs, err := api.svc.Conversations(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying conversations")
	}
	if convs == nil {
		convs = []message.Conversation{}
	}
	return ctx.JSON(http.StatusOK, convs)
}

func (api *messageApi) conversation(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	other, err := core.ParseIdentity(ctx.Param("otherId"), ctx.Param("otherRole"))
	if err != nil {
		return err
	}
	msgs, err := api.svc.Conversation(ctx.Request().Context(), id, other)
	if err != nil {
		return errors.Wrap(err, "querying conversation")
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}
