package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
	"github.com/trezcool/projex/core/user"
	"github.com/trezcool/projex/core/workflow"
)

type adminApi struct {
	deps ServerDeps
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := adminApi{deps: deps}

	ag := g.Group("/admin", jwt, roleMiddleware(user.CapManageProjects))
	ag.GET("/dashboard/stats", api.dashboard)
	ag.GET("/projects", api.projects)
	ag.POST("/projects", api.createProject)
	ag.PUT("/projects/:id/assign-incharge", api.assignIncharge)
	ag.PUT("/projects/:id/update-students", api.updateStudents)
	ag.DELETE("/projects/:id", api.deleteProject)
	ag.GET("/teachers", api.teachers, roleMiddleware(user.CapManageAccounts))
	ag.GET("/students", api.students, roleMiddleware(user.CapManageAccounts))
}

// Handlers

func (api *adminApi) dashboard(ctx echo.Context) error {
	dash, err := api.deps.Workflow.DashboardStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *adminApi) projects(ctx echo.Context) error {
	page := bindPage(ctx)
	projects, total, err := api.deps.Projects.Query(ctx.Request().Context(), bindProjectFilter(ctx), page)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	return ctx.JSON(http.StatusOK, Paginated{Results: projects, Pagination: core.NewPagination(page, total)})
}

func (api *adminApi) createProject(ctx echo.Context) error {
	var data workflow.AdminProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminProject")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	p, err := api.deps.Workflow.CreateProject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *adminApi) assignIncharge(ctx echo.Context) error {
	var data workflow.AssignIncharge
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignIncharge")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	p, err := api.deps.Workflow.AssignIncharge(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning incharge")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *adminApi) updateStudents(ctx echo.Context) error {
	var data workflow.UpdateStudents
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudents")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	p, err := api.deps.Workflow.UpdateStudents(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating students")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *adminApi) deleteProject(ctx echo.Context) error {
	if err := api.deps.Workflow.DeleteProject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting project")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) teachers(ctx echo.Context) error {
	page := bindPage(ctx)
	teachers, total, err := api.deps.Teachers.Query(ctx.Request().Context(), bindTeacherFilter(ctx), page)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, Paginated{Results: teacher.Summaries(teachers), Pagination: core.NewPagination(page, total)})
}

func (api *adminApi) students(ctx echo.Context) error {
	page := bindPage(ctx)
	students, total, err := api.deps.Students.Query(ctx.Request().Context(), bindStudentFilter(ctx), page)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, Paginated{Results: student.Summaries(students), Pagination: core.NewPagination(page, total)})
}
