package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/projex/apps/api/echo"
	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
	"github.com/trezcool/projex/core/workflow"
	emailsvc "github.com/trezcool/projex/services/email"
	logsvc "github.com/trezcool/projex/services/logger"
	"github.com/trezcool/projex/services/reconcile"
	"github.com/trezcool/projex/storage/cache"
	inmemdb "github.com/trezcool/projex/storage/database/inmem"
	mongodb "github.com/trezcool/projex/storage/database/mongo"
)

// inMemoryURI selects the in-memory store instead of MongoDB.
const inMemoryURI = "memory://"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// closers are released in reverse order on shutdown.
type closers []func(ctx context.Context) error

type repositories struct {
	dig.Out
	Students student.Repository
	Teachers teacher.Repository
	Projects project.Repository
	Closer   func(ctx context.Context) error `name:"dbCloser"`
}

type authStores struct {
	dig.Out
	Revoker core.TokenRevoker
	Limiter core.LoginLimiter
	Closer  func(ctx context.Context) error `name:"cacheCloser"`
}

type closerParams struct {
	dig.In
	DB    func(ctx context.Context) error `name:"dbCloser"`
	Cache func(ctx context.Context) error `name:"cacheCloser"`
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Students   *student.Service
	Teachers   *teacher.Service
	Projects   *project.Service
	Workflow   *workflow.Service
	Revoker    core.TokenRevoker
	Limiter    core.LoginLimiter
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) repositories {
	if conf.Database.URI == inMemoryURI {
		loggerParam.Logger.Warn("using the in-memory store, data is lost on exit")
		db := inmemdb.Open()
		return repositories{
			Students: inmemdb.NewStudentRepository(db),
			Teachers: inmemdb.NewTeacherRepository(db),
			Projects: inmemdb.NewProjectRepository(db),
			Closer:   func(context.Context) error { return nil },
		}
	}

	setUp := func() (*mongodb.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
		defer cancel()
		db, err := mongodb.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return repositories{
		Students: mongodb.NewStudentRepository(db),
		Teachers: mongodb.NewTeacherRepository(db),
		Projects: mongodb.NewProjectRepository(db),
		Closer:   db.Close,
	}
}

// newAuthStores keeps revocations and login attempts in redis.
// In debug mode an unreachable redis falls back to a process-local cache.
func newAuthStores(conf *core.Config, logger core.Logger) authStores {
	limit, lockout := conf.Server.LoginMaxAttempts, conf.Server.LoginLockout

	rc, err := cache.NewRedisCache(conf.Redis.URL)
	if err == nil {
		return authStores{
			Revoker: cache.NewTokenRevoker(rc),
			Limiter: cache.NewLoginLimiter(rc, limit, lockout),
			Closer:  func(context.Context) error { return rc.Close() },
		}
	}
	if !conf.Debug {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	logger.Warn(fmt.Sprintf("redis unavailable (%v), using the in-memory cache", err))
	mem := cache.NewMemoryCache()
	return authStores{
		Revoker: cache.NewTokenRevoker(mem),
		Limiter: cache.NewLoginLimiter(mem, limit, lockout),
		Closer:  func(context.Context) error { return nil },
	}
}

func newClosers(p closerParams) closers {
	return closers{p.DB, p.Cache}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf.DefaultFromEmail, conf.AppName, logger)
	}
	return emailsvc.NewSendgridService(conf.SendgridApiKey, conf.DefaultFromEmail, conf.AppName, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newScheduler(conf *core.Config, svc *workflow.Service, logger core.Logger) *reconcile.Scheduler {
	return reconcile.NewScheduler(svc, logger, conf.Reconcile.Schedule, conf.Database.Timeout*10)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		Students:   p.Students,
		Teachers:   p.Teachers,
		Projects:   p.Projects,
		Workflow:   p.Workflow,
		Revoker:    p.Revoker,
		Limiter:    p.Limiter,
	})
}

// newContainer returns a new dependency injection dig.Container
func newContainer() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newAuthStores))
	must(c.Provide(newClosers))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(student.NewService))
	must(c.Provide(teacher.NewService))
	must(c.Provide(project.NewService))
	must(c.Provide(workflow.NewService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
