package session

import "fmt"

// Kind tags the variant held by State.
type Kind int

const (
	NotStarted Kind = iota
	Initializing
	Initialized
	Launching
	Running
	Stopped
	Terminated
	Exited
	Failed
)

func (k Kind) String() string {
	switch k {
	case NotStarted:
		return "NotStarted"
	case Initializing:
		return "Initializing"
	case Initialized:
		return "Initialized"
	case Launching:
		return "Launching"
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Terminated:
		return "Terminated"
	case Exited:
		return "Exited"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is a tagged union. Only the fields relevant to Kind are
// populated.
type State struct {
	Kind Kind

	// Stopped
	Reason            string
	ThreadID          int
	HasThreadID       bool
	HitBreakpointIDs  []int

	// Exited
	ExitCode int

	// Failed
	Err error
}

func (s State) String() string {
	switch s.Kind {
	case Stopped:
		return fmt.Sprintf("Stopped{reason=%s thread=%d hit=%v}", s.Reason, s.ThreadID, s.HitBreakpointIDs)
	case Exited:
		return fmt.Sprintf("Exited{code=%d}", s.ExitCode)
	case Failed:
		return fmt.Sprintf("Failed{err=%v}", s.Err)
	default:
		return s.Kind.String()
	}
}

// terminal reports whether no further transition is permitted.
func (k Kind) terminal() bool {
	return k == Terminated || k == Exited || k == Failed
}

// validTransition enforces the monotonic state diagram, including the
// one controlled back-edge Stopped -> Running.
func validTransition(from, to Kind) bool {
	if from.terminal() {
		return false
	}
	if from == to {
		return true
	}

	switch from {
	case NotStarted:
		return to == Initializing || to == Failed
	case Initializing:
		return to == Initialized || to == Failed
	case Initialized:
		return to == Launching || to == Failed
	case Launching:
		return to == Running || to == Stopped || to == Failed || to == Terminated || to == Exited
	case Running:
		return to == Stopped || to == Terminated || to == Exited || to == Failed
	case Stopped:
		return to == Running || to == Terminated || to == Exited || to == Failed
	default:
		return false
	}
}
