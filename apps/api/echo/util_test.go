package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
	"github.com/trezcool/projex/core/user"
	"github.com/trezcool/projex/core/workflow"
	emailsvc "github.com/trezcool/projex/services/email"
	"github.com/trezcool/projex/storage/cache"
	inmemdb "github.com/trezcool/projex/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func init() {
	user.PasswordCost = bcrypt.MinCost
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+msg)
}

func (l *testLogger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *testLogger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *testLogger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *testLogger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *testLogger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

func (l *testLogger) has(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

type testApp struct {
	server   *Server
	conf     *core.Config
	students *student.Service
	teachers *teacher.Service
	projects *project.Service
	workflow *workflow.Service
	mail     *emailsvc.ConsoleServiceMock
	logger   *testLogger
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := core.NewTestConfig()
	logger := &testLogger{}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	teacher.InitValidators(validate, translator)
	project.InitValidators(validate, translator)
	workflow.InitValidators(validate, translator)

	db := inmemdb.Open()
	app := &testApp{
		conf:     conf,
		students: student.NewService(inmemdb.NewStudentRepository(db)),
		teachers: teacher.NewService(inmemdb.NewTeacherRepository(db)),
		projects: project.NewService(inmemdb.NewProjectRepository(db)),
		mail:     emailsvc.NewConsoleServiceMock(conf.DefaultFromEmail, conf.AppName, logger),
		logger:   logger,
	}
	app.workflow = workflow.NewService(app.students, app.teachers, app.projects, app.mail, logger)

	mem := cache.NewMemoryCache()
	app.server = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Students:       app.students,
		Teachers:       app.teachers,
		Projects:       app.projects,
		Workflow:       app.workflow,
		Revoker:        cache.NewTokenRevoker(mem),
		Limiter:        cache.NewLoginLimiter(mem, conf.Server.LoginMaxAttempts, conf.Server.LoginLockout),
		DisableReqLogs: true,
	})
	return app
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do sends obj as JSON body and decodes the response into out when set.
func (app *testApp) do(t *testing.T, method, path, token string, obj interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if obj != nil {
		data = marshalObj(t, obj)
	}
	req, rec := newAuthRequest(method, path, token, data)
	app.server.ServeHTTP(rec, req)
	if out != nil && rec.Code < http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func (app *testApp) token(t *testing.T, id user.Identity) string {
	t.Helper()
	token, err := app.server.Auth().Token(id)
	require.NoError(t, err)
	return token
}

func (app *testApp) adminToken(t *testing.T) string {
	return app.token(t, adminIdentity(app.conf))
}

type account struct {
	id    string
	token string
}

func (app *testApp) registerStudent(t *testing.T, rollNo string) account {
	t.Helper()
	var res struct {
		Token string        `json:"token"`
		User  user.Identity `json:"user"`
	}
	rec := app.do(t, http.MethodPost, "/v1/auth/student/register", "", echoMap{
		"roll_no":    rollNo,
		"username":   "user " + rollNo,
		"password":   "s3cure-pass",
		"department": "CS",
	}, &res)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return account{id: res.User.ID, token: res.Token}
}

func (app *testApp) registerTeacher(t *testing.T, username string) account {
	t.Helper()
	var res struct {
		Token string        `json:"token"`
		User  user.Identity `json:"user"`
	}
	rec := app.do(t, http.MethodPost, "/v1/auth/teacher/register", "", echoMap{
		"username": username,
		"email":    username + "@projex.test",
		"password": "s3cure-pass",
	}, &res)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return account{id: res.User.ID, token: res.Token}
}

type echoMap map[string]interface{}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.method == "" {
				tt.method = http.MethodGet
			}
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
