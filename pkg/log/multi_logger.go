package log

// Combine returns a Logger that hands each event to every non-nil logger in
// order. With no loggers it returns NoopLogger, with one it returns that
// logger unchanged.
func Combine(loggers ...Logger) Logger {
	var kept fanout
	for _, l := range loggers {
		if l != nil {
			kept = append(kept, l)
		}
	}
	switch len(kept) {
	case 0:
		return NoopLogger{}
	case 1:
		return kept[0]
	}
	return kept
}

type fanout []Logger

func (f fanout) Log(event Event) {
	for _, l := range f {
		l.Log(event)
	}
}
