// Package events provides the in-process event bus and typed event payloads.
package events

// EventType represents different event types
type EventType string

const (
	// Evaluation pipeline
	EvaluationCompleted EventType = "EVALUATION_COMPLETED"
	EligibilityRejected EventType = "ELIGIBILITY_REJECTED"
	EvaluationsExpired  EventType = "EVALUATIONS_EXPIRED"

	// Workflows
	LoanApplicationDecided EventType = "LOAN_APPLICATION_DECIDED"
	ClaimAssessed          EventType = "CLAIM_ASSESSED"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every known event type, in a stable order
func AllEventTypes() []EventType {
	return []EventType{
		EvaluationCompleted,
		EligibilityRejected,
		EvaluationsExpired,
		LoanApplicationDecided,
		ClaimAssessed,
		ErrorOccurred,
	}
}
