package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
	"github.com/trezcool/projex/core/user"
	"github.com/trezcool/projex/core/workflow"
)

type studentApi struct {
	deps ServerDeps
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{deps: deps}

	sg := g.Group("/student", jwt, roleMiddleware(user.CapSendRequests))
	sg.GET("/profile", api.profile)
	sg.PUT("/project/update", api.addUpdate, roleMiddleware(user.CapPostUpdates))
	sg.PUT("/project/update/:updateId", api.editUpdate, roleMiddleware(user.CapPostUpdates))
	sg.GET("/project/progress", api.progress)
	sg.GET("/daily-updates", api.dailyUpdates)
	sg.GET("/teachers", api.teachers)
	sg.POST("/request/incharge", api.requestIncharge)
	sg.GET("/incharge-requests", api.inchargeRequests)
	sg.POST("/send-partner-request", api.sendPartnerRequest)
	sg.POST("/respond-partner-request", api.respondPartnerRequest)
	sg.GET("/partner-requests", api.partnerRequests)
	sg.GET("/available-students", api.availableStudents)
}

type (
	StudentProfile struct {
		student.Student
		PartnerProfiles []student.Summary `json:"partner_profiles"`
		ProjectDetails  *project.Project  `json:"project_details,omitempty"`
	}

	ProjectProgress struct {
		ProjectID        string           `json:"project_id"`
		Progress         int              `json:"progress"`
		CompletedTargets int              `json:"completed_targets"`
		TotalTargets     int              `json:"total_targets"`
		Targets          []project.Target `json:"targets"`
	}

	UpdateResponse struct {
		Project project.Project `json:"project"`
		Update  project.Update  `json:"update"`
	}
)

func (api *studentApi) ctxStudent(ctx echo.Context) (student.Student, error) {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return student.Student{}, err
	}
	s, err := api.deps.Students.Get(ctx.Request().Context(), id.ID)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting context student")
	}
	return s, nil
}

func (api *studentApi) ctxProject(ctx echo.Context) (student.Student, project.Project, error) {
	s, err := api.ctxStudent(ctx)
	if err != nil {
		return student.Student{}, project.Project{}, err
	}
	p, err := api.deps.Projects.GetForStudent(ctx.Request().Context(), s.Project, s.ID)
	if err != nil {
		return student.Student{}, project.Project{}, err
	}
	return s, p, nil
}

// Handlers

func (api *studentApi) profile(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	s, err := api.deps.Workflow.Reconcile(rctx, id.ID)
	if err != nil {
		return errors.Wrap(err, "reconciling student")
	}

	partners, err := api.deps.Students.GetMany(rctx, s.Partners)
	if err != nil {
		return errors.Wrap(err, "getting partners")
	}
	out := StudentProfile{Student: s, PartnerProfiles: student.Summaries(partners)}
	if s.HasProject() {
		p, err := api.deps.Projects.GetForStudent(rctx, s.Project, s.ID)
		switch {
		case err == nil:
			out.ProjectDetails = &p
		case !core.IsNotFound(err):
			return errors.Wrap(err, "getting project")
		}
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *studentApi) addUpdate(ctx echo.Context) error {
	var data project.NewUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUpdate")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	s, p, err := api.ctxProject(ctx)
	if err != nil {
		return err
	}
	p, upd, err := api.deps.Projects.AddUpdate(ctx.Request().Context(), p, s.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding update")
	}
	return ctx.JSON(http.StatusOK, UpdateResponse{Project: p, Update: upd})
}

func (api *studentApi) editUpdate(ctx echo.Context) error {
	var data project.EditUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditUpdate")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	s, p, err := api.ctxProject(ctx)
	if err != nil {
		return err
	}
	upd, err := api.deps.Projects.EditUpdate(ctx.Request().Context(), p, ctx.Param("updateId"), s.ID, data)
	if err != nil {
		return errors.Wrap(err, "editing update")
	}
	return ctx.JSON(http.StatusOK, upd)
}

func (api *studentApi) progress(ctx echo.Context) error {
	_, p, err := api.ctxProject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ProjectProgress{
		ProjectID:        p.ID,
		Progress:         p.Progress,
		CompletedTargets: p.CompletedTargets(),
		TotalTargets:     len(p.Targets),
		Targets:          p.Targets,
	})
}

func (api *studentApi) dailyUpdates(ctx echo.Context) error {
	_, p, err := api.ctxProject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.UpdatesNewestFirst())
}

func (api *studentApi) teachers(ctx echo.Context) error {
	teachers, _, err := api.deps.Teachers.Query(ctx.Request().Context(), bindTeacherFilter(ctx), core.Page{})
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teacher.Summaries(teachers))
}

func (api *studentApi) requestIncharge(ctx echo.Context) error {
	var data workflow.NewInchargeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInchargeRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	req, err := api.deps.Workflow.SendInchargeRequest(ctx.Request().Context(), id.ID, data)
	if err != nil {
		return errors.Wrap(err, "sending incharge request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *studentApi) inchargeRequests(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	reqs, err := api.deps.Workflow.InchargeRequests(ctx.Request().Context(), id.ID)
	if err != nil {
		return errors.Wrap(err, "listing incharge requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *studentApi) sendPartnerRequest(ctx echo.Context) error {
	var data workflow.NewPartnerRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPartnerRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	req, err := api.deps.Workflow.SendPartnerRequest(ctx.Request().Context(), id.ID, data)
	if err != nil {
		return errors.Wrap(err, "sending partner request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *studentApi) respondPartnerRequest(ctx echo.Context) error {
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
	res, err := api.deps.Workflow.RespondPartnerRequest(ctx.Request().Context(), id.ID, data)
	if err != nil {
		return errors.Wrap(err, "responding to partner request")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) partnerRequests(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	reqs, err := api.deps.Workflow.PartnerRequests(ctx.Request().Context(), id.ID)
	if err != nil {
		return errors.Wrap(err, "listing partner requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *studentApi) availableStudents(ctx echo.Context) error {
	s, err := api.ctxStudent(ctx)
	if err != nil {
		return err
	}
	students, err := api.deps.Students.Available(ctx.Request().Context(), s, ctx.QueryParam("search"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}
