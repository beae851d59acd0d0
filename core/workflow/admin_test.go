package workflow_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/workflow"
)

func TestService_AdminProjectLifecycle(t *testing.T) {
	f := newFixture()
	t1 := f.newTeacher(t, "mrsmith")
	t2 := f.newTeacher(t, "mrsjones")
	a := f.newStudent(t, "CS001")
	b := f.newStudent(t, "CS002")
	c := f.newStudent(t, "CS003")

	p, err := f.svc.CreateProject(f.ctx, workflow.AdminProject{
		Name:       "Library system",
		TeacherID:  t1.ID,
		StudentIDs: []string{a.ID, b.ID, a.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, p.Students)
	assert.Equal(t, p.ID, f.student(t, a.ID).Project)
	assert.Equal(t, p.ID, f.student(t, b.ID).Project)
	assert.Equal(t, []string{p.ID}, f.teacher(t, t1.ID).AssignedProjects)
	assert.Len(t, f.mail.sent, 1)

	t.Run("students must be projectless", func(t *testing.T) {
		_, err := f.svc.CreateProject(f.ctx, workflow.AdminProject{Name: "Other", TeacherID: t2.ID, StudentIDs: []string{b.ID}})
		var assignedErr *workflow.AlreadyAssignedError
		assert.True(t, errors.As(err, &assignedErr), "CreateProject() error = %v", err)
	})

	t.Run("students must exist", func(t *testing.T) {
		_, err := f.svc.CreateProject(f.ctx, workflow.AdminProject{Name: "Other", TeacherID: t2.ID, StudentIDs: []string{"nope"}})
		assert.True(t, core.IsNotFound(err), "CreateProject() error = %v", err)
	})

	p, err = f.svc.AssignIncharge(f.ctx, p.ID, workflow.AssignIncharge{TeacherID: t2.ID})
	require.NoError(t, err)
	assert.Equal(t, t2.ID, p.Incharge)
	assert.Empty(t, f.teacher(t, t1.ID).AssignedProjects)
	assert.Equal(t, []string{p.ID}, f.teacher(t, t2.ID).AssignedProjects)

	p, err = f.svc.UpdateStudents(f.ctx, p.ID, workflow.UpdateStudents{StudentIDs: []string{b.ID, c.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, p.Students)
	assert.False(t, f.student(t, a.ID).HasProject())
	assert.Equal(t, p.ID, f.student(t, c.ID).Project)

	require.NoError(t, f.svc.DeleteProject(f.ctx, p.ID))
	_, err = f.projects.Get(f.ctx, p.ID)
	assert.True(t, core.IsNotFound(err))
	for _, id := range []string{a.ID, b.ID, c.ID} {
		assert.False(t, f.student(t, id).HasProject())
	}
	assert.Empty(t, f.teacher(t, t2.ID).AssignedProjects)

	err = f.svc.DeleteProject(f.ctx, p.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_DashboardStats(t *testing.T) {
	f := newFixture()
	tch := f.newTeacher(t, "mrsmith")
	a := f.newStudent(t, "CS001")
	f.newStudent(t, "CS002")
	f.newStudent(t, "CS003")

	f.incharge(t, a.ID, tch.ID, "")
	done, err := f.svc.OpenProject(f.ctx, tch.ID, project.NewProject{Name: "Done"})
	require.NoError(t, err)
	_, err = f.projects.UpdateDetails(f.ctx, done, project.UpdateProject{Status: project.StatusCompleted})
	require.NoError(t, err)

	dash, err := f.svc.DashboardStats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), dash.Students)
	assert.Equal(t, int64(1), dash.Teachers)
	assert.Equal(t, int64(2), dash.Projects)
	assert.Equal(t, int64(2), dash.StudentsWithoutProject)
	assert.Equal(t, map[project.Status]int{
		project.StatusActive:    1,
		project.StatusCompleted: 1,
		project.StatusOnHold:    0,
	}, dash.ProjectsByStatus)
}

func TestService_ReconcileAll(t *testing.T) {
	f := newFixture()
	a := f.newStudent(t, "CS001")
	b := f.newStudent(t, "CS002")
	f.newStudent(t, "CS003")

	// one-sided partner link
	s := f.student(t, a.ID)
	s.AddPartner(b.ID)
	_, err := f.stRepo.Repository.Save(f.ctx, s)
	require.NoError(t, err)

	n, err := f.svc.ReconcileAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{a.ID}, f.student(t, b.ID).Partners)

	// a second pass has nothing to do
	before := f.student(t, b.ID)
	_, err = f.svc.ReconcileAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, before, f.student(t, b.ID))
}

func TestService_ReconcileProjectLink(t *testing.T) {
	f := newFixture()
	tch := f.newTeacher(t, "mrsmith")
	a := f.newStudent(t, "CS001")
	b := f.newStudent(t, "CS002")

	p, err := f.svc.OpenProject(f.ctx, tch.ID, project.NewProject{Name: "Shared"})
	require.NoError(t, err)
	p.AddStudent(a.ID)
	_, err = f.projects.Save(f.ctx, p)
	require.NoError(t, err)

	dangling := f.student(t, b.ID)
	dangling.Project = "gone"
	_, err = f.stRepo.Repository.Save(f.ctx, dangling)
	require.NoError(t, err)

	got, err := f.svc.Reconcile(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.Project)

	got, err = f.svc.Reconcile(f.ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.HasProject())
}

func TestService_AdminProjectKeepsPartnerGroups(t *testing.T) {
	f := newFixture()
	tch := f.newTeacher(t, "mrsmith")
	other := f.newTeacher(t, "mrsjones")
	a := f.newStudent(t, "CS001")
	b := f.newStudent(t, "CS002")
	c := f.newStudent(t, "CS003")
	f.partner(t, a.ID, b.ID)

	p, err := f.svc.CreateProject(f.ctx, workflow.AdminProject{Name: "Library system", TeacherID: tch.ID, StudentIDs: []string{a.ID}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, p.Students)
	assert.Equal(t, p.ID, f.student(t, b.ID).Project, "partner follows into the project")

	t.Run("partner cannot request another incharge", func(t *testing.T) {
		_, err := f.svc.SendInchargeRequest(f.ctx, b.ID, workflow.NewInchargeRequest{TeacherID: other.ID})
		var valErr *core.ValidationError
		assert.True(t, errors.As(err, &valErr), "SendInchargeRequest() error = %v", err)
	})

	p, err = f.svc.UpdateStudents(f.ctx, p.ID, workflow.UpdateStudents{StudentIDs: []string{c.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, p.Students)
	assert.False(t, f.student(t, a.ID).HasProject())
	assert.False(t, f.student(t, b.ID).HasProject())

	p, err = f.svc.UpdateStudents(f.ctx, p.ID, workflow.UpdateStudents{StudentIDs: []string{b.ID}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, p.Students)
	assert.Equal(t, p.ID, f.student(t, a.ID).Project)
	assert.False(t, f.student(t, c.ID).HasProject())
}

func TestService_SendInchargeRequest_partnerAssigned(t *testing.T) {
	f := newFixture()
	tch := f.newTeacher(t, "mrsmith")
	a := f.newStudent(t, "CS001")
	b := f.newStudent(t, "CS002")
	f.pair(t, a.ID, b.ID)

	// b got a project while a did not, e.g. after a partial write
	drifted := f.student(t, b.ID)
	drifted.Project = "p1"
	_, err := f.stRepo.Repository.Save(f.ctx, drifted)
	require.NoError(t, err)

	_, err = f.svc.SendInchargeRequest(f.ctx, a.ID, workflow.NewInchargeRequest{TeacherID: tch.ID})
	var valErr *core.ValidationError
	require.True(t, errors.As(err, &valErr), "SendInchargeRequest() error = %v", err)
	assert.Empty(t, f.student(t, a.ID).InchargeRequests)
	assert.Empty(t, f.teacher(t, tch.ID).InchargeRequests)
}
