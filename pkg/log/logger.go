package log

// Logger receives the trace of a sync session. Log is called on the fold
// goroutine, so implementations must be safe for concurrent use and must
// return quickly.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event. Its zero value is ready to use.
type NoopLogger struct{}

// Log does nothing.
func (NoopLogger) Log(Event) {}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) { f(event) }

var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
