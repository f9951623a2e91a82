package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/messaging"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type messagingApi struct {
	svc       messaging.ServiceInterface
	userSvc   user.ServiceInterface
	schoolSvc school.ServiceInterface
}

func registerMessagingAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc messaging.ServiceInterface,
	userSvc user.ServiceInterface,
	schoolSvc school.ServiceInterface,
) {
	api := messagingApi{svc: svc, userSvc: userSvc, schoolSvc: schoolSvc}

	mg := g.Group("/messages", jwt)
	mg.POST("", api.send)
	mg.GET("/inbox", api.inbox)
	mg.GET("/sent", api.sent)
	mg.POST("/:id/read", api.markRead)
}

// send resolves recipients from explicit user IDs and/or a class roster
// (active students only) before handing off to the service.
func (api *messagingApi) send(ctx echo.Context) error {
	var data messaging.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sender, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reqCtx := ctx.Request().Context()
	recipients := make([]user.User, 0, len(data.To))
	for _, id := range data.To {
		usr, err := api.userSvc.GetByID(reqCtx, id)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return core.NewValidationError(nil, core.FieldError{Field: "to", Error: "unknown recipient: " + id})
			}
			return errors.Wrap(err, "finding recipient by ID")
		}
		recipients = append(recipients, usr)
	}
	if data.ClassID != "" {
		enrs, err := api.schoolSvc.Roster(reqCtx, data.ClassID, false)
		if err != nil {
			if errors.Cause(err) == school.ErrClassNotFound {
				return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: school.ErrClassNotFound.Error()})
			}
			return errors.Wrap(err, "querying roster")
		}
		for _, enr := range enrs {
			usr, err := api.userSvc.GetByID(reqCtx, enr.StudentID)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					continue
				}
				return errors.Wrap(err, "finding student by ID")
			}
			recipients = append(recipients, usr)
		}
	}

	msg, err := api.svc.Send(reqCtx, sender, data, recipients)
	if err != nil {
		if errors.Cause(err) == messaging.ErrNoRecipients {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messagingApi) inbox(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	items, err := api.svc.Inbox(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying inbox")
	}
	if items == nil {
		items = []messaging.InboxItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *messagingApi) sent(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	messages, err := api.svc.Sent(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying sent messages")
	}
	if messages == nil {
		messages = []messaging.Message{}
	}
	return ctx.JSON(http.StatusOK, messages)
}

func (api *messagingApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rcp, err := api.svc.MarkRead(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		if errors.Cause(err) == messaging.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "marking message read")
	}
	return ctx.JSON(http.StatusOK, rcp)
}
