package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/mastery"
)

type masteryApi struct {
	svc mastery.ServiceInterface
}

func registerMasteryAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc mastery.ServiceInterface) {
	api := masteryApi{svc: svc}

	mg := g.Group("/mastery", jwt)
	mg.POST("/assessments", api.recordAssessment, staffMiddleware())
	mg.GET("/topics/:id", api.topicAggregate, staffMiddleware())
	mg.GET("/topics/:id/leaderboard", api.leaderboard)

	g.GET("/students/:id/mastery", api.studentSummary, jwt)
	g.GET("/students/:id/mastery/:topicID", api.topicMastery, jwt)
}

func (api *masteryApi) recordAssessment(ctx echo.Context) error {
	var data mastery.AssessmentResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssessmentResult")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	m, err := api.svc.RecordAssessment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording assessment")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *masteryApi) topicMastery(ctx echo.Context) error {
	studentID := ctx.Param("id")
	if err := checkStudentScope(ctx, studentID); err != nil {
		return err
	}

	m, err := api.svc.GetTopicMastery(ctx.Request().Context(), studentID, ctx.Param("topicID"))
	if err != nil {
		if errors.Cause(err) == mastery.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding mastery record")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *masteryApi) studentSummary(ctx echo.Context) error {
	studentID := ctx.Param("id")
	if err := checkStudentScope(ctx, studentID); err != nil {
		return err
	}

	sum, err := api.svc.StudentSummary(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "summarizing student mastery")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *masteryApi) topicAggregate(ctx echo.Context) error {
	agg, err := api.svc.TopicAggregate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "aggregating topic mastery")
	}
	return ctx.JSON(http.StatusOK, agg)
}

func (api *masteryApi) leaderboard(ctx echo.Context) error {
	topN, _ := strconv.Atoi(ctx.QueryParam("top"))

	board, err := api.svc.Leaderboard(ctx.Request().Context(), ctx.Param("id"), topN)
	if err != nil {
		return errors.Wrap(err, "building leaderboard")
	}
	if board == nil {
		board = []mastery.LeaderboardEntry{}
	}
	return ctx.JSON(http.StatusOK, board)
}
