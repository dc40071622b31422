package logsvc

import (
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/auth"
)

type RollbarLogger struct {
	std *log.Logger
}

var (
	_ core.Logger        = (*RollbarLogger)(nil)
	_ core.ErrorReporter = (*RollbarLogger)(nil)
)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	host, _ := os.Hostname()
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, auth.Claims
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var personSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set the caller
		if claims, ok := arg.(auth.Claims); ok {
			if !personSet { // only set one person
				rollbar.SetPerson(claims.Subject, claims.Subject, "")
				personSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(msg, args)
	l.std.Fatal(msg)
}

// CaptureException sends err to rollbar under tag and returns the report id
// attached to the item.
func (l RollbarLogger) CaptureException(tag string, err error) string {
	reportID := uuid.New().String()
	rollbar.ErrorWithExtras(rollbar.ERR, err, map[string]interface{}{
		"tag":          tag,
		"error_report": reportID,
	})
	l.std.Printf("[%s] error_report=%s: %+v\n", tag, reportID, err)
	return reportID
}

// Flush blocks until every queued rollbar item is sent.
func (l RollbarLogger) Flush() {
	rollbar.Wait()
}
