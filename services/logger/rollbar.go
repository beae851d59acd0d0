// Package logsvc provides the app loggers.
package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/user"
)

// RollbarLogger prints to std and reports to rollbar (when enabled).
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// person maps an identity onto rollbar's id, username and email; only teachers log in by email.
func person(id user.Identity) (string, string, string) {
	username := id.Name
	if username == "" {
		username = id.Identifier
	}
	var email string
	if id.Role == user.Teacher {
		email = id.Identifier
	}
	return id.ID, username, email
}

// expected fmt: msg | error, map[string]interface{}, user.Identity
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var idSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		if id, ok := arg.(user.Identity); ok {
			if !idSet { // only set one person
				rollbar.SetPerson(person(id))
				idSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !idSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

// print writes the prepared args to std; prepared[0] is the message.
func (l RollbarLogger) print(level string, prepared []interface{}) {
	l.std.Printf("[%s] %s", level, prepared[0])
	for _, arg := range prepared[1:] {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	prepared := l.prepare(msg, args)
	rollbar.Debug(prepared...)
	l.print("DEBUG", prepared)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	prepared := l.prepare(msg, args)
	rollbar.Info(prepared...)
	l.print("INFO", prepared)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	prepared := l.prepare(msg, args)
	rollbar.Warning(prepared...)
	l.print("WARN", prepared)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	prepared := l.prepare(msg, args)
	rollbar.Error(prepared...)
	l.print("ERROR", prepared)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	prepared := l.prepare(msg, args)
	rollbar.Critical(prepared...)
	l.print("FATAL", prepared)
	l.std.Fatal(msg)
}
