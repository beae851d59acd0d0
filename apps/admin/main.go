package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
	"github.com/trezcool/projex/core/user"
	"github.com/trezcool/projex/core/workflow"
	emailsvc "github.com/trezcool/projex/services/email"
	logsvc "github.com/trezcool/projex/services/logger"
	mongodb "github.com/trezcool/projex/storage/database/mongo"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	db, err := mongodb.Open(ctx, conf)
	cancel()
	errAndDie(err)

	// start CLI
	cli := newCommandLine(conf, db,
		mongodb.NewStudentRepository(db),
		mongodb.NewTeacherRepository(db),
		mongodb.NewProjectRepository(db),
	)
	err = cli.run(os.Args)
	if cerr := db.Close(context.Background()); cerr != nil {
		logger.Error("closing database", cerr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("error: " + err.Error())
		}
		os.Exit(1)
	}
}

func newCommandLine(conf *core.Config, db indexer, sr student.Repository, tr teacher.Repository, pr project.Repository) *commandLine {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	teacher.InitValidators(validate, translator)

	students := student.NewService(sr)
	teachers := teacher.NewService(tr)
	projects := project.NewService(pr)
	mail := emailsvc.NewConsoleService(conf.DefaultFromEmail, conf.AppName, logger)

	return &commandLine{
		db:         db,
		validate:   validate,
		students:   students,
		teachers:   teachers,
		reconciler: workflow.NewService(students, teachers, projects, mail, logger),
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
