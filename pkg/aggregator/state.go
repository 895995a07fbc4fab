package aggregator

// State is the lifecycle state of a scan.
type State string

const (
	StatePending         State = "pending"
	StateRunning         State = "running"
	StateCompleted       State = "completed"
	StatePartiallyFailed State = "partially_failed"
	StateAborted         State = "aborted"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StatePartiallyFailed, StateAborted:
		return true
	}
	return false
}

// Label returns the display form used in terminal output.
func (s State) Label() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StatePartiallyFailed:
		return "Partially failed"
	case StateAborted:
		return "Aborted"
	}
	return string(s)
}

// Status tags a plugin outcome.
type Status string

const (
	StatusOK       Status = "ok"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
)

// ErrorKind classifies why a plugin did not produce an Ok outcome.
type ErrorKind string

const (
	KindPluginError      ErrorKind = "plugin_error"
	KindPluginPanic      ErrorKind = "plugin_panic"
	KindHTTPError        ErrorKind = "http_error"
	KindTimeout          ErrorKind = "timeout"
	KindDeadlineExceeded ErrorKind = "deadline_exceeded"
	KindCanceled         ErrorKind = "canceled"
)
