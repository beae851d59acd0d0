package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
	"github.com/trezcool/projex/core/workflow"
)

func Test_adminApi_projects(t *testing.T) {
	app := setup(t)
	admin := app.adminToken(t)
	t1 := app.registerTeacher(t, "mrsmith")
	t2 := app.registerTeacher(t, "mrsjones")
	a := app.registerStudent(t, "CS001")
	b := app.registerStudent(t, "CS002")
	c := app.registerStudent(t, "CS003")

	var p project.Project
	rec := app.do(t, http.MethodPost, "/v1/admin/projects", admin, echoMap{
		"name":        "Library system",
		"teacher_id":  t1.id,
		"student_ids": []string{a.id, b.id},
	}, &p)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, t1.id, p.Incharge)
	assert.Equal(t, []string{a.id, b.id}, p.Students)
	assert.Len(t, app.mail.SentMessages(), 1)

	var list struct {
		Results    []project.Project `json:"results"`
		Pagination core.Pagination   `json:"pagination"`
	}
	rec = app.do(t, http.MethodGet, "/v1/admin/projects?search=library", admin, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, list.Results, 1)
	assert.Equal(t, core.Pagination{Page: 1, Limit: core.DefaultPageSize, Total: 1, Pages: 1}, list.Pagination)

	rec = app.do(t, http.MethodPut, "/v1/admin/projects/"+p.ID+"/assign-incharge", admin, echoMap{"teacher_id": t2.id}, &p)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, t2.id, p.Incharge)

	// the new incharge sees the project, the previous one does not
	runHTTPTests(t, app, []httpTest{
		{name: "new incharge", path: "/v1/teacher/projects/" + p.ID, token: t2.token, wantCode: http.StatusOK},
		{name: "previous incharge", path: "/v1/teacher/projects/" + p.ID, token: t1.token, wantCode: http.StatusNotFound},
	})

	rec = app.do(t, http.MethodPut, "/v1/admin/projects/"+p.ID+"/update-students", admin, echoMap{"student_ids": []string{b.id, c.id}}, &p)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{b.id, c.id}, p.Students)

	runHTTPTests(t, app, []httpTest{
		{
			name: "removed student has no project", path: "/v1/student/project/progress", token: a.token,
			wantCode: http.StatusNotFound,
		},
		{name: "added student sees the project", path: "/v1/student/project/progress", token: c.token, wantCode: http.StatusOK},
		{
			name: "students already assigned", method: http.MethodPost, path: "/v1/admin/projects", token: admin,
			body:     marshalObj(t, echoMap{"name": "Other", "teacher_id": t1.id, "student_ids": []string{c.id}}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown teacher", method: http.MethodPost, path: "/v1/admin/projects", token: admin,
			body: marshalObj(t, echoMap{"name": "Other", "teacher_id": "nope"}), wantCode: http.StatusNotFound,
		},
		{
			name: "missing name", method: http.MethodPost, path: "/v1/admin/projects", token: admin,
			body:     marshalObj(t, echoMap{"teacher_id": t1.id}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, echoMap{"name": "this field is required"}),
		},
		{
			name: "assign to unknown project", method: http.MethodPut, path: "/v1/admin/projects/nope/assign-incharge", token: admin,
			body: marshalObj(t, echoMap{"teacher_id": t1.id}), wantCode: http.StatusNotFound,
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/admin/projects/" + p.ID, token: admin, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: "/v1/admin/projects/" + p.ID, token: admin, wantCode: http.StatusNotFound},
		{name: "detached after delete", path: "/v1/student/project/progress", token: b.token, wantCode: http.StatusNotFound},
	})

	var tch teacher.Teacher
	rec = app.do(t, http.MethodGet, "/v1/teacher/profile", t2.token, nil, &tch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, tch.AssignedProjects)
}

func Test_adminApi_dashboardAndLists(t *testing.T) {
	app := setup(t)
	admin := app.adminToken(t)
	tch := app.registerTeacher(t, "mrsmith")
	app.registerTeacher(t, "mrsjones")
	a := app.registerStudent(t, "CS001")
	app.registerStudent(t, "CS002")
	app.registerStudent(t, "EE001")
	app.assignIncharge(t, a, tch)

	var dash workflow.Dashboard
	rec := app.do(t, http.MethodGet, "/v1/admin/dashboard/stats", admin, nil, &dash)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(3), dash.Students)
	assert.Equal(t, int64(2), dash.Teachers)
	assert.Equal(t, int64(1), dash.Projects)
	assert.Equal(t, int64(2), dash.StudentsWithoutProject)
	assert.Equal(t, 1, dash.ProjectsByStatus[project.StatusActive])

	var students struct {
		Results    []student.Summary `json:"results"`
		Pagination core.Pagination   `json:"pagination"`
	}
	rec = app.do(t, http.MethodGet, "/v1/admin/students?has_project=false&limit=1", admin, nil, &students)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, students.Results, 1)
	assert.False(t, students.Results[0].HasProject)
	assert.Equal(t, core.Pagination{Page: 1, Limit: 1, Total: 2, Pages: 2}, students.Pagination)

	rec = app.do(t, http.MethodGet, "/v1/admin/students?search=ee0", admin, nil, &students)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, students.Results, 1)
	assert.Equal(t, "EE001", students.Results[0].RollNo)

	var teachers struct {
		Results    []teacher.Summary `json:"results"`
		Pagination core.Pagination   `json:"pagination"`
	}
	rec = app.do(t, http.MethodGet, "/v1/admin/teachers", admin, nil, &teachers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, teachers.Results, 2)
	assert.Equal(t, int64(2), teachers.Pagination.Total)
	for _, sum := range teachers.Results {
		if sum.ID == tch.id {
			assert.Equal(t, 1, sum.ProjectCount)
		}
	}
}
