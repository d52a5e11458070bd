package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core/debt"
	"github.com/trezcool/tuition/core/stats"
	"github.com/trezcool/tuition/services/export"
)

type reportApi struct {
	debtSvc  *debt.Service
	statsSvc *stats.Service
}

func registerReportAPI(g *echo.Group, deps ServerDeps) {
	api := reportApi{
		debtSvc:  deps.DebtSvc,
		statsSvc: deps.StatsSvc,
	}

	rg := g.Group("/reports")
	rg.GET("/overdue", api.overdue)
	rg.GET("/overdue.xlsx", api.overdueXLSX)
	rg.GET("/upcoming", api.upcoming)
	rg.GET("/dashboard", api.dashboard)
	rg.GET("/groups/overdue", api.groupsOverdue)
	rg.GET("/debts", api.debts)
	rg.GET("/debts.xlsx", api.debtsXLSX)
	rg.GET("/debtors/summary", api.debtorSummary)
	rg.GET("/critical", api.critical)

	sg := rg.Group("/stats")
	sg.GET("/students", api.monthlyStudents)
	sg.GET("/groups", api.monthlyGroups)
	sg.GET("/payments", api.monthlyPayments)
	sg.GET("/top-paying", api.topPaying)
	sg.GET("/capacity", api.capacity)
}

func attachXLSX(ctx echo.Context, filename string) {
	ctx.Response().Header().Set(echo.HeaderContentType, exportsvc.ContentType)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	ctx.Response().WriteHeader(http.StatusOK)
}

// Debt reports

func (api *reportApi) overdue(ctx echo.Context) error {
	records, err := api.debtSvc.OverdueStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing overdue students")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *reportApi) overdueXLSX(ctx echo.Context) error {
	records, err := api.debtSvc.OverdueStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing overdue students")
	}
	attachXLSX(ctx, "overdue.xlsx")
	return exportsvc.WriteOverdue(ctx.Response(), records)
}

func (api *reportApi) upcoming(ctx echo.Context) error {
	days, err := queryInt(ctx, "days", -1 /* configured default */)
	if err != nil {
		return err
	}
	records, err := api.debtSvc.UpcomingPayments(ctx.Request().Context(), days)
	if err != nil {
		return errors.Wrap(err, "computing upcoming payments")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *reportApi) dashboard(ctx echo.Context) error {
	st, err := api.debtSvc.DashboardStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing dashboard stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *reportApi) groupsOverdue(ctx echo.Context) error {
	records, err := api.debtSvc.GroupOverdueRates(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing group overdue rates")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *reportApi) debts(ctx echo.Context) error {
	studentID, err := queryInt(ctx, "student_id", 0)
	if err != nil {
		return err
	}
	var ids []int
	if studentID > 0 {
		ids = append(ids, studentID)
	}

	records, err := api.debtSvc.StudentMonthlyDebts(ctx.Request().Context(), ids...)
	if err != nil {
		return errors.Wrap(err, "computing monthly debts")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *reportApi) debtsXLSX(ctx echo.Context) error {
	records, err := api.debtSvc.StudentMonthlyDebts(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing monthly debts")
	}
	attachXLSX(ctx, "debts.xlsx")
	return exportsvc.WriteMonthlyDebts(ctx.Response(), records)
}

func (api *reportApi) debtorSummary(ctx echo.Context) error {
	sum, err := api.debtSvc.DebtorSummary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing debtor summary")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *reportApi) critical(ctx echo.Context) error {
	minDays, err := queryInt(ctx, "min_days", 0 /* configured default */)
	if err != nil {
		return err
	}
	alerts, err := api.debtSvc.CriticalAlerts(ctx.Request().Context(), minDays)
	if err != nil {
		return errors.Wrap(err, "computing critical alerts")
	}
	return ctx.JSON(http.StatusOK, alerts)
}

// Statistics

func (api *reportApi) monthlyStudents(ctx echo.Context) error {
	months, err := queryMonths(ctx, stats.DefaultMonths)
	if err != nil {
		return err
	}
	counts, err := api.statsSvc.MonthlyStudents(ctx.Request().Context(), months)
	if err != nil {
		return errors.Wrap(err, "computing monthly students")
	}
	return ctx.JSON(http.StatusOK, counts)
}

func (api *reportApi) monthlyGroups(ctx echo.Context) error {
	months, err := queryMonths(ctx, stats.DefaultMonths)
	if err != nil {
		return err
	}
	counts, err := api.statsSvc.MonthlyGroups(ctx.Request().Context(), months)
	if err != nil {
		return errors.Wrap(err, "computing monthly groups")
	}
	return ctx.JSON(http.StatusOK, counts)
}

func (api *reportApi) monthlyPayments(ctx echo.Context) error {
	months, err := queryMonths(ctx, 12)
	if err != nil {
		return err
	}
	counts, err := api.statsSvc.MonthlyPayments(ctx.Request().Context(), months)
	if err != nil {
		return errors.Wrap(err, "computing monthly payments")
	}
	return ctx.JSON(http.StatusOK, counts)
}

func (api *reportApi) topPaying(ctx echo.Context) error {
	limit, err := queryInt(ctx, "limit", stats.DefaultTopLimit)
	if err != nil {
		return err
	}
	payers, err := api.statsSvc.TopPayingStudents(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "computing top paying students")
	}
	return ctx.JSON(http.StatusOK, payers)
}

func (api *reportApi) capacity(ctx echo.Context) error {
	capacity, err := queryInt(ctx, "capacity", 0 /* configured default */)
	if err != nil {
		return err
	}
	groups, err := api.statsSvc.GroupCapacity(ctx.Request().Context(), capacity)
	if err != nil {
		return errors.Wrap(err, "computing group capacity")
	}
	return ctx.JSON(http.StatusOK, groups)
}
