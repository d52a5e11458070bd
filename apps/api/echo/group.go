package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core/group"
	"github.com/trezcool/tuition/core/student"
)

type groupApi struct {
	svc      *group.Service
	validate *validator.Validate
}

func registerGroupAPI(g *echo.Group, deps ServerDeps) {
	api := groupApi{
		svc:      deps.GroupSvc,
		validate: deps.Validate,
	}

	gg := g.Group("/groups")
	gg.GET("", api.query)
	gg.POST("", api.create)

	// detail endpoints
	dg := gg.Group("/:id", objectMiddleware(api.svc.Get))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/students", api.students)
	dg.POST("/students", api.addStudent)
	dg.DELETE("/students/:studentID", api.removeStudent)
}

type AddStudentRequest struct {
	StudentID int `json:"student_id" validate:"required,gt=0"`
}

// Handlers

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *groupApi) query(ctx echo.Context) error {
	filter := new(group.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []group.Group{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	groups, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []group.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	grp, err := contextObject[group.Group](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) update(ctx echo.Context) error {
	grp, err := contextObject[group.Group](ctx)
	if err != nil {
		return err
	}

	var data group.UpdateGroup
	if err = (&echo.DefaultBinder{}).BindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err = data.Validate(grp, api.validate); err != nil {
		return err
	}

	if grp, err = api.svc.Update(ctx.Request().Context(), grp.ID, data); err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) destroy(ctx echo.Context) error {
	grp, err := contextObject[group.Group](ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), grp.ID); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) students(ctx echo.Context) error {
	grp, err := contextObject[group.Group](ctx)
	if err != nil {
		return err
	}

	students, err := api.svc.Students(ctx.Request().Context(), grp.ID)
	if err != nil {
		return errors.Wrap(err, "querying group students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *groupApi) addStudent(ctx echo.Context) error {
	grp, err := contextObject[group.Group](ctx)
	if err != nil {
		return err
	}

	var data AddStudentRequest
	if err = (&echo.DefaultBinder{}).BindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to AddStudentRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	if err = api.svc.AddStudent(ctx.Request().Context(), grp.ID, data.StudentID); err != nil {
		return errors.Wrap(err, "adding student to group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) removeStudent(ctx echo.Context) error {
	grp, err := contextObject[group.Group](ctx)
	if err != nil {
		return err
	}
	studentID, err := pathID(ctx, "studentID")
	if err != nil {
		return err
	}

	if err = api.svc.RemoveStudent(ctx.Request().Context(), grp.ID, studentID); err != nil {
		return errors.Wrap(err, "removing student from group")
	}
	return ctx.NoContent(http.StatusNoContent)
}
