package ports

// Logger is the logging abstraction used across the module.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	// Fatal logs and terminates the process.
	Fatal(msg string, args ...interface{})
	// Printf logs at info level; it lets a Logger stand in where a printf-style func is expected.
	Printf(format string, args ...interface{})
	// WithField returns a Logger that adds key=value to every entry.
	WithField(key string, value interface{}) Logger
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{})  {}
func (NopLogger) Info(string, ...interface{})   {}
func (NopLogger) Warn(string, ...interface{})   {}
func (NopLogger) Error(string, ...interface{})  {}
func (NopLogger) Fatal(string, ...interface{})  {}
func (NopLogger) Printf(string, ...interface{}) {}

func (n NopLogger) WithField(string, interface{}) Logger { return n }
