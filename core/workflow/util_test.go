package workflow_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
	"github.com/trezcool/projex/core/workflow"
	inmemdb "github.com/trezcool/projex/storage/database/inmem"
)

var errSaveFailed = errors.New("connection reset")

type logEntry struct {
	level string
	msg   string
}

type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

var _ core.Logger = (*testLogger)(nil)

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *testLogger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *testLogger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *testLogger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *testLogger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *testLogger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

func (l *testLogger) has(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && strings.Contains(e.msg, substr) {
			return true
		}
	}
	return false
}

type recordingMail struct {
	mu   sync.Mutex
	sent []core.EmailMessage
}

func (m *recordingMail) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		_ = msg.Render()
		m.sent = append(m.sent, *msg)
	}
}

// flakyStudents fails every Save of the students in fail.
type flakyStudents struct {
	student.Repository
	fail map[string]bool
}

func (r *flakyStudents) Save(ctx context.Context, s student.Student) (student.Student, error) {
	if r.fail[s.ID] {
		return student.Student{}, errSaveFailed
	}
	return r.Repository.Save(ctx, s)
}

type flakyTeachers struct {
	teacher.Repository
	fail map[string]bool
}

func (r *flakyTeachers) Save(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	if r.fail[t.ID] {
		return teacher.Teacher{}, errSaveFailed
	}
	return r.Repository.Save(ctx, t)
}

type fixture struct {
	ctx      context.Context
	svc      *workflow.Service
	students *student.Service
	teachers *teacher.Service
	projects *project.Service
	stRepo   *flakyStudents
	tRepo    *flakyTeachers
	logger   *testLogger
	mail     *recordingMail
}

func newFixture() *fixture {
	db := inmemdb.Open()
	f := &fixture{
		ctx:    context.Background(),
		stRepo: &flakyStudents{Repository: inmemdb.NewStudentRepository(db), fail: map[string]bool{}},
		tRepo:  &flakyTeachers{Repository: inmemdb.NewTeacherRepository(db), fail: map[string]bool{}},
		logger: &testLogger{},
		mail:   &recordingMail{},
	}
	f.students = student.NewService(f.stRepo)
	f.teachers = teacher.NewService(f.tRepo)
	f.projects = project.NewService(inmemdb.NewProjectRepository(db))
	f.svc = workflow.NewService(f.students, f.teachers, f.projects, f.mail, f.logger)
	return f
}

func (f *fixture) newStudent(t *testing.T, rollNo string) student.Student {
	t.Helper()
	s, err := f.stRepo.Repository.Save(f.ctx, student.Student{
		ID:               uuid.New().String(),
		RollNo:           rollNo,
		Username:         strings.ToLower(rollNo),
		Partners:         []string{},
		PartnerRequests:  ledger.Ledger{},
		InchargeRequests: ledger.Ledger{},
		CreatedAt:        time.Now().UTC(),
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) newTeacher(t *testing.T, username string) teacher.Teacher {
	t.Helper()
	tch, err := f.tRepo.Repository.Save(f.ctx, teacher.Teacher{
		ID:               uuid.New().String(),
		Username:         username,
		Email:            username + "@projex.test",
		AssignedProjects: []string{},
		InchargeRequests: ledger.Ledger{},
		CreatedAt:        time.Now().UTC(),
	})
	require.NoError(t, err)
	return tch
}

func (f *fixture) student(t *testing.T, id string) student.Student {
	t.Helper()
	s, err := f.students.Get(f.ctx, id)
	require.NoError(t, err)
	return s
}

func (f *fixture) teacher(t *testing.T, id string) teacher.Teacher {
	t.Helper()
	tch, err := f.teachers.Get(f.ctx, id)
	require.NoError(t, err)
	return tch
}

func (f *fixture) project(t *testing.T, id string) project.Project {
	t.Helper()
	p, err := f.projects.Get(f.ctx, id)
	require.NoError(t, err)
	return p
}

// pair makes a and b partners directly in the store.
func (f *fixture) pair(t *testing.T, a, b string) {
	t.Helper()
	for _, ids := range [][2]string{{a, b}, {b, a}} {
		s := f.student(t, ids[0])
		s.AddPartner(ids[1])
		_, err := f.stRepo.Repository.Save(f.ctx, s)
		require.NoError(t, err)
	}
}

// partner sends a partner request from sender to receiver and accepts it.
func (f *fixture) partner(t *testing.T, sender, receiver string) workflow.PartnerResponse {
	t.Helper()
	f.sendPartner(t, sender, receiver)
	res, err := f.svc.RespondPartnerRequest(f.ctx, receiver, workflow.RespondRequest{
		RequestID: f.pendingID(t, receiver, sender),
		Status:    ledger.StatusAccepted,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) sendPartner(t *testing.T, sender, receiver string) ledger.Request {
	t.Helper()
	req, err := f.svc.SendPartnerRequest(f.ctx, sender, workflow.NewPartnerRequest{PartnerID: receiver, Message: "team up?"})
	require.NoError(t, err)
	return req
}

// pendingID returns the id of the pending partner request owner received from counterpart.
func (f *fixture) pendingID(t *testing.T, owner, counterpart string) string {
	t.Helper()
	req, ok := f.student(t, owner).PartnerRequests.FindPending(counterpart, ledger.Received)
	require.True(t, ok, fmt.Sprintf("no pending request from %s", counterpart))
	return req.ID
}

// incharge has student request and teacher accept, optionally into projectID.
func (f *fixture) incharge(t *testing.T, studentID, teacherID, projectID string) workflow.InchargeResponse {
	t.Helper()
	_, err := f.svc.SendInchargeRequest(f.ctx, studentID, workflow.NewInchargeRequest{TeacherID: teacherID})
	require.NoError(t, err)
	req, ok := f.teacher(t, teacherID).InchargeRequests.FindPending(studentID, ledger.Received)
	require.True(t, ok)
	res, err := f.svc.RespondInchargeRequest(f.ctx, teacherID, workflow.RespondRequest{
		RequestID: req.ID,
		Status:    ledger.StatusAccepted,
		ProjectID: projectID,
	})
	require.NoError(t, err)
	return res
}
