package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type schoolApi struct {
	svc school.ServiceInterface
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc school.ServiceInterface) {
	api := schoolApi{svc: svc}

	cg := g.Group("/campuses", jwt)
	cg.POST("", api.createCampus, adminMiddleware())
	cg.GET("", api.queryCampuses)
	cg.GET("/:id", api.retrieveCampus)
	cg.PUT("/:id", api.updateCampus, adminMiddleware())
	cg.DELETE("", api.destroyCampuses, adminMiddleware())

	kg := g.Group("/classes", jwt)
	kg.POST("", api.createClass, adminMiddleware())
	kg.GET("", api.queryClasses)
	kg.GET("/:id", api.retrieveClass)
	kg.PUT("/:id", api.updateClass, adminMiddleware())
	kg.DELETE("", api.destroyClasses, adminMiddleware())
	kg.GET("/:id/roster", api.roster, staffMiddleware())
	kg.POST("/:id/enroll", api.enroll, adminMiddleware())
	kg.POST("/:id/withdraw", api.withdraw, adminMiddleware())
	kg.GET("/:id/topics", api.queryTopics)

	tg := g.Group("/topics", jwt)
	tg.POST("", api.createTopic, staffMiddleware())
	tg.GET("/:id", api.retrieveTopic)
	tg.DELETE("", api.destroyTopics, staffMiddleware())

	g.GET("/students/:id/enrollments", api.studentEnrollments, jwt)
}

// Campus handlers

func (api *schoolApi) createCampus(ctx echo.Context) error {
	var data school.NewCampus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCampus")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	campus, err := api.svc.CreateCampus(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating campus")
	}
	return ctx.JSON(http.StatusCreated, campus)
}

func (api *schoolApi) queryCampuses(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	campuses, err := api.svc.QueryCampuses(ctx.Request().Context(), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying campuses")
	}
	if campuses == nil {
		campuses = []school.Campus{}
	}
	return ctx.JSON(http.StatusOK, campuses)
}

func (api *schoolApi) retrieveCampus(ctx echo.Context) error {
	campus, err := api.svc.GetCampus(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrCampusNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding campus by ID")
	}
	return ctx.JSON(http.StatusOK, campus)
}

func (api *schoolApi) updateCampus(ctx echo.Context) error {
	var data school.UpdateCampus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCampus")
	}

	campus, err := api.svc.UpdateCampus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == school.ErrCampusNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, campus)
}

func (api *schoolApi) destroyCampuses(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.DeleteCampuses(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting campuses")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Class handlers

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	class, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == school.ErrCampusNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "campus_id", Error: school.ErrCampusNotFound.Error()})
		}
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, class)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	filter := new(school.ClassQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Class{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	class, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *schoolApi) updateClass(ctx echo.Context) error {
	var data school.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}

	class, err := api.svc.UpdateClass(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *schoolApi) destroyClasses(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.DeleteClasses(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting classes")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Enrollment handlers

func (api *schoolApi) enroll(ctx echo.Context) error {
	var data EnrollmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollmentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), ctx.Param("id"), data.StudentID)
	if err != nil {
		switch errors.Cause(err) {
		case school.ErrClassNotFound:
			return errHttpNotFound
		case school.ErrAlreadyEnrolled:
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *schoolApi) withdraw(ctx echo.Context) error {
	var data EnrollmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollmentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	enr, err := api.svc.Withdraw(ctx.Request().Context(), ctx.Param("id"), data.StudentID)
	if err != nil {
		if errors.Cause(err) == school.ErrEnrollmentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "withdrawing student")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *schoolApi) roster(ctx echo.Context) error {
	includeWithdrawn, _ := strconv.ParseBool(ctx.QueryParam("include_withdrawn"))

	enrs, err := api.svc.Roster(ctx.Request().Context(), ctx.Param("id"), includeWithdrawn)
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying roster")
	}
	if enrs == nil {
		enrs = []school.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *schoolApi) studentEnrollments(ctx echo.Context) error {
	studentID := ctx.Param("id")
	if err := checkStudentScope(ctx, studentID); err != nil {
		return err
	}

	enrs, err := api.svc.StudentEnrollments(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []school.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

// Topic handlers

func (api *schoolApi) createTopic(ctx echo.Context) error {
	var data school.NewTopic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTopic")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	topic, err := api.svc.CreateTopic(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: school.ErrClassNotFound.Error()})
		}
		return errors.Wrap(err, "creating topic")
	}
	return ctx.JSON(http.StatusCreated, topic)
}

func (api *schoolApi) retrieveTopic(ctx echo.Context) error {
	topic, err := api.svc.GetTopic(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrTopicNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding topic by ID")
	}
	return ctx.JSON(http.StatusOK, topic)
}

func (api *schoolApi) queryTopics(ctx echo.Context) error {
	topics, err := api.svc.QueryTopicsByClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	if topics == nil {
		topics = []school.Topic{}
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *schoolApi) destroyTopics(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.DeleteTopics(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting topics")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type EnrollmentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (er *EnrollmentRequest) Validate() error {
	er.StudentID = core.CleanString(er.StudentID)
	return core.Validate.Struct(er)
}
