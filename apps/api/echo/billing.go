package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/billing"
)

type billingApi struct {
	svc billing.ServiceInterface
}

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc billing.ServiceInterface) {
	api := billingApi{svc: svc}

	fg := g.Group("/fees", jwt, adminMiddleware())
	fg.POST("", api.createFee)
	fg.GET("", api.queryFees)
	fg.DELETE("", api.destroyFees)

	ig := g.Group("/invoices", jwt)
	ig.POST("", api.issueInvoice, adminMiddleware())
	ig.GET("/overdue", api.overdueInvoices, adminMiddleware())
	ig.GET("/:id", api.retrieveInvoice)
	ig.POST("/:id/void", api.voidInvoice, adminMiddleware())
	ig.GET("/:id/payments", api.invoicePayments)

	g.POST("/payments", api.recordPayment, jwt, adminMiddleware())

	g.GET("/students/:id/invoices", api.studentInvoices, jwt)
	g.GET("/students/:id/balance", api.studentBalance, jwt)
}

// Fee structure handlers

func (api *billingApi) createFee(ctx echo.Context) error {
	var data billing.NewFeeStructure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeeStructure")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	fee, err := api.svc.CreateFeeStructure(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee structure")
	}
	return ctx.JSON(http.StatusCreated, fee)
}

func (api *billingApi) queryFees(ctx echo.Context) error {
	fees, err := api.svc.QueryFeeStructures(ctx.Request().Context(), ctx.QueryParam("campus_id"))
	if err != nil {
		return errors.Wrap(err, "querying fee structures")
	}
	if fees == nil {
		fees = []billing.FeeStructure{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *billingApi) destroyFees(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.DeleteFeeStructures(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting fee structures")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Invoice handlers

func (api *billingApi) issueInvoice(ctx echo.Context) error {
	var data billing.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	inv, err := api.svc.IssueInvoice(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == billing.ErrFeeNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "fee_structure_id", Error: billing.ErrFeeNotFound.Error()})
		}
		return errors.Wrap(err, "issuing invoice")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *billingApi) retrieveInvoice(ctx echo.Context) error {
	inv, err := api.svc.GetInvoice(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == billing.ErrInvoiceNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding invoice by ID")
	}
	if err := checkStudentScope(ctx, inv.StudentID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) voidInvoice(ctx echo.Context) error {
	inv, err := api.svc.VoidInvoice(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case billing.ErrInvoiceNotFound:
			return errHttpNotFound
		case billing.ErrInvoiceHasPayments:
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "voiding invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) invoicePayments(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	inv, err := api.svc.GetInvoice(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == billing.ErrInvoiceNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding invoice by ID")
	}
	if err := checkStudentScope(ctx, inv.StudentID); err != nil {
		return err
	}

	payments, err := api.svc.InvoicePayments(reqCtx, inv.ID)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []billing.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *billingApi) overdueInvoices(ctx echo.Context) error {
	asOf := time.Now().UTC()
	if v := ctx.QueryParam("as_of"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			asOf = t
		}
	}

	invoices, err := api.svc.OverdueInvoices(ctx.Request().Context(), asOf)
	if err != nil {
		return errors.Wrap(err, "querying overdue invoices")
	}
	if invoices == nil {
		invoices = []billing.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}

// Payment handlers

func (api *billingApi) recordPayment(ctx echo.Context) error {
	var data billing.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	pmt, err := api.svc.RecordPayment(ctx.Request().Context(), data)
	if err != nil {
		switch errors.Cause(err) {
		case billing.ErrInvoiceNotFound:
			return errHttpNotFound
		case billing.ErrInvoiceNotPayable, billing.ErrPaymentExceedsBalance:
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

// Student views

func (api *billingApi) studentInvoices(ctx echo.Context) error {
	studentID := ctx.Param("id")
	if err := checkStudentScope(ctx, studentID); err != nil {
		return err
	}

	invoices, err := api.svc.StudentInvoices(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	if invoices == nil {
		invoices = []billing.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *billingApi) studentBalance(ctx echo.Context) error {
	studentID := ctx.Param("id")
	if err := checkStudentScope(ctx, studentID); err != nil {
		return err
	}

	bal, err := api.svc.StudentBalance(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "computing student balance")
	}
	return ctx.JSON(http.StatusOK, bal)
}
