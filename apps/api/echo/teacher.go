package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/teacher"
	"github.com/trezcool/projex/core/user"
	"github.com/trezcool/projex/core/workflow"
)

const ctxProjectKey = "project"

type teacherApi struct {
	deps ServerDeps
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := teacherApi{deps: deps}

	tg := g.Group("/teacher", jwt, roleMiddleware(user.CapReviewProjects))
	tg.GET("/profile", api.profile)
	tg.PUT("/profile", api.updateProfile)
	tg.GET("/updates/latest", api.latestUpdates)
	tg.GET("/projects", api.projects)
	tg.POST("/projects", api.createProject)
	tg.GET("/stats", api.stats)
	tg.GET("/incharge-requests", api.inchargeRequests, roleMiddleware(user.CapRespondIncharge))
	tg.POST("/respond-incharge-request", api.respondInchargeRequest, roleMiddleware(user.CapRespondIncharge))

	// detail endpoints
	dg := tg.Group("/projects/:id", api.inchargeProjectMiddleware)
	dg.GET("", api.project)
	dg.PUT("", api.updateProject)
	dg.GET("/updates", api.projectUpdates)
	dg.POST("/updates/:updateId/comment", api.comment)
	dg.PUT("/targets", api.replaceTargets)
	dg.POST("/targets", api.addTarget)
	dg.PATCH("/targets/:targetId", api.toggleTarget)
}

// inchargeProjectMiddleware loads the project of the :id param into the context.
// Projects incharged by another teacher are not found.
func (api *teacherApi) inchargeProjectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := getContextIdentity(ctx)
		if err != nil {
			return err
		}
		p, err := api.deps.Projects.GetForIncharge(ctx.Request().Context(), ctx.Param("id"), id.ID)
		if err != nil {
			return err
		}
		ctx.Set(ctxProjectKey, p)
		return next(ctx)
	}
}

func ctxProject(ctx echo.Context) (project.Project, error) {
	p, ok := ctx.Get(ctxProjectKey).(project.Project)
	if !ok {
		return project.Project{}, errors.New("project not found in echo.Context")
	}
	return p, nil
}

func (api *teacherApi) ctxTeacher(ctx echo.Context) (teacher.Teacher, error) {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return teacher.Teacher{}, err
	}
	t, err := api.deps.Teachers.Get(ctx.Request().Context(), id.ID)
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "getting context teacher")
	}
	return t, nil
}

// Handlers

func (api *teacherApi) profile(ctx echo.Context) error {
	t, err := api.ctxTeacher(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teacherApi) updateProfile(ctx echo.Context) error {
	var data teacher.UpdateTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	t, err := api.ctxTeacher(ctx)
	if err != nil {
		return err
	}
	if err := data.Validate(api.deps.Validate, t, api.deps.Teachers); err != nil {
		return err
	}
	t, err = api.deps.Teachers.UpdateProfile(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teacherApi) latestUpdates(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	updates, pagination, err := api.deps.Projects.LatestUpdates(ctx.Request().Context(), id.ID, bindPage(ctx))
	if err != nil {
		return errors.Wrap(err, "listing latest updates")
	}
	return ctx.JSON(http.StatusOK, Paginated{Results: updates, Pagination: pagination})
}

func (api *teacherApi) projects(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	filter := bindProjectFilter(ctx)
	filter.Incharge = id.ID
	projects, _, err := api.deps.Projects.Query(ctx.Request().Context(), filter, core.Page{})
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *teacherApi) createProject(ctx echo.Context) error {
	var data project.NewProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	p, err := api.deps.Workflow.OpenProject(ctx.Request().Context(), id.ID, data)
	if err != nil {
		return errors.Wrap(err, "opening project")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *teacherApi) stats(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	stats, err := api.deps.Projects.InchargeStats(ctx.Request().Context(), id.ID)
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *teacherApi) inchargeRequests(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	reqs, err := api.deps.Workflow.ReceivedInchargeRequests(ctx.Request().Context(), id.ID)
	if err != nil {
		return errors.Wrap(err, "listing incharge requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *teacherApi) respondInchargeRequest(ctx echo.Context) error {
	var data workflow.RespondRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RespondRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	res, err := api.deps.Workflow.RespondInchargeRequest(ctx.Request().Context(), id.ID, data)
	if err != nil {
		return errors.Wrap(err, "responding to incharge request")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *teacherApi) project(ctx echo.Context) error {
	p, err := ctxProject(ctx)
	if err != nil {
		return err
	}
	p.Updates = p.UpdatesNewestFirst()
	return ctx.JSON(http.StatusOK, p)
}

func (api *teacherApi) updateProject(ctx echo.Context) error {
	var data project.UpdateProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProject")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	p, err := ctxProject(ctx)
	if err != nil {
		return err
	}
	p, err = api.deps.Projects.UpdateDetails(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "updating project")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *teacherApi) projectUpdates(ctx echo.Context) error {
	p, err := ctxProject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.UpdatesNewestFirst())
}

func (api *teacherApi) comment(ctx echo.Context) error {
	var data project.Comment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Comment")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	p, err := ctxProject(ctx)
	if err != nil {
		return err
	}
	upd, err := api.deps.Projects.CommentUpdate(ctx.Request().Context(), p, ctx.Param("updateId"), data)
	if err != nil {
		return errors.Wrap(err, "commenting update")
	}
	return ctx.JSON(http.StatusOK, upd)
}

func (api *teacherApi) replaceTargets(ctx echo.Context) error {
	var data project.ReplaceTargets
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReplaceTargets")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	p, err := ctxProject(ctx)
	if err != nil {
		return err
	}
	p, err = api.deps.Projects.ReplaceTargets(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "replacing targets")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *teacherApi) addTarget(ctx echo.Context) error {
	var data project.NewTarget
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTarget")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	p, err := ctxProject(ctx)
	if err != nil {
		return err
	}
	p, err = api.deps.Projects.AddTarget(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "adding target")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *teacherApi) toggleTarget(ctx echo.Context) error {
	var data project.ToggleTarget
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ToggleTarget")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	p, err := ctxProject(ctx)
	if err != nil {
		return err
	}
	p, err = api.deps.Projects.SetTargetCompleted(ctx.Request().Context(), p, ctx.Param("targetId"), *data.Completed)
	if err != nil {
		return errors.Wrap(err, "toggling target")
	}
	return ctx.JSON(http.StatusOK, p)
}
