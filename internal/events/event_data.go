package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// EvaluationCompletedData contains data for EvaluationCompleted events
type EvaluationCompletedData struct {
	Eligible        *bool   `json:"eligible,omitempty"`
	EvaluationID    string  `json:"evaluation_id"`
	Domain          string  `json:"domain"`
	EntityID        string  `json:"entity_id"`
	Rating          string  `json:"rating"`
	Direction       string  `json:"direction,omitempty"`
	TotalScore      float64 `json:"total_score"`
	Recommendations int     `json:"recommendations"`
}

// EventType returns the event type for EvaluationCompletedData
func (d *EvaluationCompletedData) EventType() EventType {
	return EvaluationCompleted
}

// EligibilityRejectedData contains data for EligibilityRejected events
type EligibilityRejectedData struct {
	EvaluationID     string  `json:"evaluation_id"`
	Domain           string  `json:"domain"`
	EntityID         string  `json:"entity_id"`
	Reason           string  `json:"reason"`
	Score            float64 `json:"score"`
	MinimumThreshold float64 `json:"minimum_threshold"`
}

// EventType returns the event type for EligibilityRejectedData
func (d *EligibilityRejectedData) EventType() EventType {
	return EligibilityRejected
}

// EvaluationsExpiredData contains data for EvaluationsExpired events
type EvaluationsExpiredData struct {
	Before time.Time `json:"before"`
	Count  int       `json:"count"`
}

// EventType returns the event type for EvaluationsExpiredData
func (d *EvaluationsExpiredData) EventType() EventType {
	return EvaluationsExpired
}

// LoanApplicationDecidedData contains data for LoanApplicationDecided events
type LoanApplicationDecidedData struct {
	ApplicationID string  `json:"application_id"`
	FarmerID      string  `json:"farmer_id"`
	Status        string  `json:"status"`
	Amount        string  `json:"amount"`
	MonthlyEMI    string  `json:"monthly_emi,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	InterestRate  float64 `json:"interest_rate,omitempty"`
}

// EventType returns the event type for LoanApplicationDecidedData
func (d *LoanApplicationDecidedData) EventType() EventType {
	return LoanApplicationDecided
}

// ClaimAssessedData contains data for ClaimAssessed events
type ClaimAssessedData struct {
	ClaimID         string  `json:"claim_id"`
	PolicyID        string  `json:"policy_id"`
	Status          string  `json:"status"`
	Payout          string  `json:"payout"`
	AssessmentScore float64 `json:"assessment_score"`
}

// EventType returns the event type for ClaimAssessedData
func (d *ClaimAssessedData) EventType() EventType {
	return ClaimAssessed
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Context map[string]interface{} `json:"context,omitempty"`
	Error   string                 `json:"error"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// EventWithData represents an event with typed data
type EventWithData struct {
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
	Type      EventType `json:"type"`
	Module    string    `json:"module"`
}

// MarshalJSON customizes JSON serialization for EventWithData
func (e *EventWithData) MarshalJSON() ([]byte, error) {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for EventWithData
func (e *EventWithData) UnmarshalJSON(data []byte) error {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.Data) == 0 {
		return nil
	}

	eventData := newEventData(aux.Type)
	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}

func newEventData(t EventType) EventData {
	switch t {
	case EvaluationCompleted:
		return &EvaluationCompletedData{}
	case EligibilityRejected:
		return &EligibilityRejectedData{}
	case EvaluationsExpired:
		return &EvaluationsExpiredData{}
	case LoanApplicationDecided:
		return &LoanApplicationDecidedData{}
	case ClaimAssessed:
		return &ClaimAssessedData{}
	case ErrorOccurred:
		return &ErrorEventData{}
	default:
		return &GenericEventData{Type: t}
	}
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Data map[string]interface{} `json:"-"`
	Type EventType              `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}
