package claims

import (
	"errors"
	"fmt"
)

// ErrInvalidStatusTransition is returned for a transition the workflow does not allow
var ErrInvalidStatusTransition = errors.New("invalid status transition")

// Status is the lifecycle stage of an insurance claim
type Status struct {
	value string
}

const (
	statusFiled                = "FILED"
	statusPendingAssessment    = "PENDING_ASSESSMENT"
	statusApproved             = "APPROVED"
	statusRejected             = "REJECTED"
	statusRequiresManualReview = "REQUIRES_MANUAL_REVIEW"
)

var (
	StatusFiled                = Status{value: statusFiled}
	StatusPendingAssessment    = Status{value: statusPendingAssessment}
	StatusApproved             = Status{value: statusApproved}
	StatusRejected             = Status{value: statusRejected}
	StatusRequiresManualReview = Status{value: statusRequiresManualReview}
)

var validStatuses = map[string]Status{
	statusFiled:                StatusFiled,
	statusPendingAssessment:    StatusPendingAssessment,
	statusApproved:             StatusApproved,
	statusRejected:             StatusRejected,
	statusRequiresManualReview: StatusRequiresManualReview,
}

// The automated assessment is the only engine-owned decision. Manual review is
// resolved outside the engine, so it has no outgoing transition here.
var transitions = map[string][]string{
	statusFiled:             {statusPendingAssessment},
	statusPendingAssessment: {statusApproved, statusRejected, statusRequiresManualReview},
}

// NewStatus parses a raw status
func NewStatus(s string) (Status, error) {
	v, ok := validStatuses[s]
	if !ok {
		return Status{}, fmt.Errorf("invalid claim status: %q", s)
	}
	return v, nil
}

func (s Status) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s Status) IsZero() bool { return s.value == "" }

// IsTerminal reports whether the engine can move the claim any further
func (s Status) IsTerminal() bool { return len(transitions[s.value]) == 0 }

// CanTransitionTo reports whether s -> next is allowed
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s.value] {
		if allowed == next.value {
			return true
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(b []byte) error {
	v, err := NewStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
