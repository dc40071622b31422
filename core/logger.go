package core

// Logger is any service that can log messages.
// expected args: error, map[string]interface{} (extras)
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// ErrorReporter captures an error under a symbolic tag and returns the id of the
// resulting report, for correlation in log lines.
type ErrorReporter interface {
	CaptureException(tag string, err error) string
}
