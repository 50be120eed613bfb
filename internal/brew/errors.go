package brew

import "errors"

// ErrorKind classifies why a brew invocation did not produce usable output.
type ErrorKind int

const (
	NotFound ErrorKind = iota + 1
	ExecutionFailed
	TimedOut
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case ExecutionFailed:
		return "execution failed"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against a *CommandError of the same kind.
var (
	ErrNotFound        = errors.New("package manager not found on this system")
	ErrExecutionFailed = errors.New("command failed")
	ErrTimedOut        = errors.New("command timed out")

	// ErrParseFailed is returned when brew exited successfully but its
	// report could not be decoded.
	ErrParseFailed = errors.New("unable to parse brew outdated report")
)

// unknownErrorDetail is used when a failed command wrote nothing at all.
const unknownErrorDetail = "Unknown error"

// CommandError is the failure half of a bounded brew invocation.
type CommandError struct {
	Kind   ErrorKind
	Args   []string
	Detail string
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case NotFound:
		return ErrNotFound.Error()
	case TimedOut:
		return ErrTimedOut.Error()
	default:
		if e.Detail == "" {
			return unknownErrorDetail
		}
		return e.Detail
	}
}

// Is makes errors.Is(err, ErrTimedOut) and friends work on wrapped values.
func (e *CommandError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == NotFound
	case ErrExecutionFailed:
		return e.Kind == ExecutionFailed
	case ErrTimedOut:
		return e.Kind == TimedOut
	}
	return false
}

func notFoundError(args []string) *CommandError {
	return &CommandError{Kind: NotFound, Args: args}
}

func timedOutError(args []string) *CommandError {
	return &CommandError{Kind: TimedOut, Args: args}
}

func executionError(args []string, detail string) *CommandError {
	if detail == "" {
		detail = unknownErrorDetail
	}
	return &CommandError{Kind: ExecutionFailed, Args: args, Detail: detail}
}

// Describe returns the text a UI should show in place of the update list.
// Execution and parse failures carry their own detail; not-found and timeout
// use fixed descriptions.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Error()
	}
	return err.Error()
}
