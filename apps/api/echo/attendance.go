package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/attendance"
)

type attendanceApi struct {
	svc attendance.ServiceInterface
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc attendance.ServiceInterface) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance", jwt)
	ag.POST("/sheets", api.recordSheet, staffMiddleware())
	ag.GET("/records", api.query, staffMiddleware())
	ag.PUT("/records/:id", api.update, staffMiddleware())

	g.GET("/students/:id/attendance-summary", api.studentSummary, jwt)
}

// recordSheet takes a whole class register for one day; retaking the
// register overwrites the previous marks.
func (api *attendanceApi) recordSheet(ctx echo.Context) error {
	var data attendance.NewSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSheet")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.RecordedBy = claims.Subject

	if err := data.Validate(); err != nil {
		return err
	}

	records, err := api.svc.RecordSheet(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording attendance sheet")
	}
	return ctx.JSON(http.StatusCreated, records)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	var data attendance.UpdateRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating attendance record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	var filter attendance.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}

	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) studentSummary(ctx echo.Context) error {
	studentID := ctx.Param("id")
	if err := checkStudentScope(ctx, studentID); err != nil {
		return err
	}

	var from, to time.Time
	if v := ctx.QueryParam("from"); v != "" {
		from, _ = time.Parse(time.RFC3339, v)
	}
	if v := ctx.QueryParam("to"); v != "" {
		to, _ = time.Parse(time.RFC3339, v)
	}

	sum, err := api.svc.StudentSummary(ctx.Request().Context(), studentID, from, to)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, sum)
}
