package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/achievement"
)

type achievementApi struct {
	svc achievement.ServiceInterface
}

func registerAchievementAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc achievement.ServiceInterface) {
	api := achievementApi{svc: svc}

	ag := g.Group("/achievements", jwt)
	ag.POST("", api.create, adminMiddleware())
	ag.GET("", api.query)
	ag.DELETE("", api.destroy, adminMiddleware())
	ag.GET("/leaderboard", api.leaderboard)
	ag.GET("/:id", api.retrieve)
	ag.POST("/awards", api.award, staffMiddleware())
	ag.DELETE("/awards", api.revoke, staffMiddleware())

	g.GET("/students/:id/achievements", api.studentAchievements, jwt)
}

func (api *achievementApi) create(ctx echo.Context) error {
	var data achievement.NewAchievement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAchievement")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ach, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == achievement.ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return errors.Wrap(err, "creating achievement")
	}
	return ctx.JSON(http.StatusCreated, ach)
}

func (api *achievementApi) query(ctx echo.Context) error {
	achs, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying achievements")
	}
	if achs == nil {
		achs = []achievement.Achievement{}
	}
	return ctx.JSON(http.StatusOK, achs)
}

func (api *achievementApi) retrieve(ctx echo.Context) error {
	ach, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == achievement.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding achievement by ID")
	}
	return ctx.JSON(http.StatusOK, ach)
}

func (api *achievementApi) destroy(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting achievements")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *achievementApi) award(ctx echo.Context) error {
	var data achievement.NewAward
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAward")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.AwardedBy = claims.Subject

	if err := data.Validate(); err != nil {
		return err
	}

	awd, err := api.svc.Award(ctx.Request().Context(), data)
	if err != nil {
		switch errors.Cause(err) {
		case achievement.ErrNotFound:
			return errHttpNotFound
		case achievement.ErrAlreadyAwarded:
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "awarding achievement")
	}
	return ctx.JSON(http.StatusCreated, awd)
}

func (api *achievementApi) revoke(ctx echo.Context) error {
	var data RevokeAwardRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RevokeAwardRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.Revoke(ctx.Request().Context(), data.AchievementID, data.StudentID); err != nil {
		if errors.Cause(err) == achievement.ErrAwardNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "revoking award")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *achievementApi) studentAchievements(ctx echo.Context) error {
	studentID := ctx.Param("id")
	if err := checkStudentScope(ctx, studentID); err != nil {
		return err
	}

	out, err := api.svc.StudentAchievements(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying student achievements")
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *achievementApi) leaderboard(ctx echo.Context) error {
	topN, _ := strconv.Atoi(ctx.QueryParam("top"))

	board, err := api.svc.Leaderboard(ctx.Request().Context(), topN)
	if err != nil {
		return errors.Wrap(err, "building leaderboard")
	}
	if board == nil {
		board = []achievement.LeaderboardEntry{}
	}
	return ctx.JSON(http.StatusOK, board)
}

type RevokeAwardRequest struct {
	AchievementID string `query:"achievement_id" validate:"required"`
	StudentID     string `query:"student_id" validate:"required"`
}

func (rr *RevokeAwardRequest) Validate() error { return core.Validate.Struct(rr) }
