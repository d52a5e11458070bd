package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core/debt"
	"github.com/trezcool/tuition/core/group"
	"github.com/trezcool/tuition/core/payment"
	"github.com/trezcool/tuition/core/student"
)

type studentApi struct {
	svc        *student.Service
	grpSvc     *group.Service
	paySvc     *payment.Service
	debtSvc    *debt.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerStudentAPI(g *echo.Group, deps ServerDeps) {
	api := studentApi{
		svc:        deps.StudentSvc,
		grpSvc:     deps.GroupSvc,
		paySvc:     deps.PaymentSvc,
		debtSvc:    deps.DebtSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create)

	// detail endpoints
	dg := sg.Group("/:id", objectMiddleware(api.svc.Get))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/groups", api.groups)
	dg.GET("/payments", api.payments)
	dg.GET("/debt", api.debt)
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := contextObject[student.Student](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	std, err := contextObject[student.Student](ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err = (&echo.DefaultBinder{}).BindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(std, api.validate); err != nil {
		return err
	}

	if std, err = api.svc.Update(ctx.Request().Context(), std.ID, data); err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	std, err := contextObject[student.Student](ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), std.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) groups(ctx echo.Context) error {
	std, err := contextObject[student.Student](ctx)
	if err != nil {
		return err
	}

	groups, err := api.grpSvc.Query(ctx.Request().Context(), &group.QueryFilter{StudentID: std.ID}, nil)
	if err != nil {
		return errors.Wrap(err, "querying student groups")
	}
	if groups == nil {
		groups = []group.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *studentApi) payments(ctx echo.Context) error {
	std, err := contextObject[student.Student](ctx)
	if err != nil {
		return err
	}

	payments, err := api.paySvc.Query(ctx.Request().Context(), &payment.QueryFilter{StudentID: std.ID})
	if err != nil {
		return errors.Wrap(err, "querying student payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *studentApi) debt(ctx echo.Context) error {
	std, err := contextObject[student.Student](ctx)
	if err != nil {
		return err
	}

	debts, err := api.debtSvc.StudentMonthlyDebts(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "computing student debt")
	}
	if len(debts) == 0 { // deleted in between
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, debts[0])
}
