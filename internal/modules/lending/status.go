package lending

import (
	"errors"
	"fmt"
)

// ErrInvalidStatusTransition is returned for a transition the workflow does not allow
var ErrInvalidStatusTransition = errors.New("invalid status transition")

// ApplicationStatus is the lifecycle stage of a loan application
type ApplicationStatus struct {
	value string
}

const (
	statusPending         = "PENDING"
	statusPendingApproval = "PENDING_APPROVAL"
	statusRejected        = "REJECTED"
)

var (
	StatusPending         = ApplicationStatus{value: statusPending}
	StatusPendingApproval = ApplicationStatus{value: statusPendingApproval}
	StatusRejected        = ApplicationStatus{value: statusRejected}
)

var validStatuses = map[string]ApplicationStatus{
	statusPending:         StatusPending,
	statusPendingApproval: StatusPendingApproval,
	statusRejected:        StatusRejected,
}

// Only PENDING moves; both outcomes are terminal for the engine
var transitions = map[string][]string{
	statusPending: {statusPendingApproval, statusRejected},
}

// NewApplicationStatus parses a raw status
func NewApplicationStatus(s string) (ApplicationStatus, error) {
	v, ok := validStatuses[s]
	if !ok {
		return ApplicationStatus{}, fmt.Errorf("invalid loan application status: %q", s)
	}
	return v, nil
}

func (s ApplicationStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s ApplicationStatus) IsZero() bool { return s.value == "" }

// IsTerminal reports whether no further automated transition exists
func (s ApplicationStatus) IsTerminal() bool { return len(transitions[s.value]) == 0 }

// CanTransitionTo reports whether s -> next is allowed
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range transitions[s.value] {
		if allowed == next.value {
			return true
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler
func (s ApplicationStatus) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *ApplicationStatus) UnmarshalText(b []byte) error {
	v, err := NewApplicationStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
