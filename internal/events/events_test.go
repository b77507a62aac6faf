package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestBus_SubscribeAndUnsubscribe(t *testing.T) {
	bus := NewBus(testLogger())

	var typed, all []EventType
	id := bus.Subscribe(ClaimAssessed, func(e *Event) { typed = append(typed, e.Type) })
	bus.SubscribeAll(func(e *Event) { all = append(all, e.Type) })

	bus.Publish(&Event{Type: ClaimAssessed})
	bus.Publish(&Event{Type: EvaluationCompleted})
	assert.Equal(t, []EventType{ClaimAssessed}, typed)
	assert.Equal(t, []EventType{ClaimAssessed, EvaluationCompleted}, all)
	assert.Equal(t, 2, bus.SubscriberCount(ClaimAssessed))

	bus.Unsubscribe(id)
	bus.Publish(&Event{Type: ClaimAssessed})
	assert.Len(t, typed, 1)
	assert.Len(t, all, 3)
}

func TestBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(testLogger())
	delivered := false
	bus.Subscribe(ErrorOccurred, func(*Event) { panic("boom") })
	bus.Subscribe(ErrorOccurred, func(*Event) { delivered = true })

	assert.NotPanics(t, func() { bus.Publish(&Event{Type: ErrorOccurred}) })
	assert.True(t, delivered)
}

func TestManager_EmitTyped(t *testing.T) {
	bus := NewBus(testLogger())
	manager := NewManager(bus, testLogger())

	var got *Event
	bus.Subscribe(EvaluationCompleted, func(e *Event) { got = e })

	manager.EmitTyped("evaluation", &EvaluationCompletedData{EvaluationID: "ev-1", Domain: "credit", TotalScore: 78, Rating: "good"})

	require.NotNil(t, got)
	assert.Equal(t, "evaluation", got.Module)
	data, ok := got.Data.(*EvaluationCompletedData)
	require.True(t, ok)
	assert.Equal(t, "good", data.Rating)
	assert.False(t, got.Timestamp.IsZero())
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus(testLogger())
	manager := NewManager(bus, testLogger())

	var got *Event
	bus.Subscribe(ErrorOccurred, func(e *Event) { got = e })
	manager.EmitError("providers", errors.New("redis unavailable"), map[string]interface{}{"domain": "market_price"})

	require.NotNil(t, got)
	assert.Equal(t, "redis unavailable", got.Data.(*ErrorEventData).Error)
}

func TestEventWithData_RoundTrip(t *testing.T) {
	original := &EventWithData{
		Type:      ClaimAssessed,
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Module:    "claims",
		Data:      &ClaimAssessedData{ClaimID: "c-1", Status: "APPROVED", Payout: "25000", AssessmentScore: 82},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded EventWithData
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original.Type, decoded.Type)
	assert.Equal(t, original.Data, decoded.Data)

	raw = []byte(`{"type":"SOMETHING_NEW","module":"x","data":{"k":"v"}}`)
	require.NoError(t, json.Unmarshal(raw, &decoded))
	generic, ok := decoded.Data.(*GenericEventData)
	require.True(t, ok)
	assert.Equal(t, "v", generic.Data["k"])
}

type recordingWriter struct {
	messages []kafkago.Message
	mu       sync.Mutex
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestKafkaForwarder_ForwardsAndStops(t *testing.T) {
	bus := NewBus(testLogger())
	manager := NewManager(bus, testLogger())
	writer := &recordingWriter{}

	forwarder := NewKafkaForwarder(bus, writer, testLogger())
	forwarder.Start()

	manager.EmitTyped("lending", &LoanApplicationDecidedData{ApplicationID: "a-1", Status: "REJECTED"})
	manager.EmitTyped("scheduler", &EvaluationsExpiredData{Count: 3})

	require.NoError(t, forwarder.Stop())
	require.NoError(t, forwarder.Stop())

	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Len(t, writer.messages, 2)
	assert.Equal(t, string(LoanApplicationDecided), string(writer.messages[0].Key))
	assert.True(t, writer.closed)

	var decoded EventWithData
	require.NoError(t, json.Unmarshal(writer.messages[1].Value, &decoded))
	assert.Equal(t, 3, decoded.Data.(*EvaluationsExpiredData).Count)

	assert.Equal(t, 0, bus.SubscriberCount(ClaimAssessed))
}

func TestKafkaForwarder_StopWithoutStart(t *testing.T) {
	writer := &recordingWriter{}
	forwarder := NewKafkaForwarder(NewBus(testLogger()), writer, testLogger())

	done := make(chan error, 1)
	go func() { done <- forwarder.Stop() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without Start")
	}
	assert.True(t, writer.closed)

	forwarder.Start()
	assert.Equal(t, 0, forwarder.bus.SubscriberCount(""))
}

func TestKafkaForwarder_LateDeliveryAfterStop(t *testing.T) {
	writer := &recordingWriter{}
	forwarder := NewKafkaForwarder(NewBus(testLogger()), writer, testLogger())
	forwarder.Start()
	require.NoError(t, forwarder.Stop())

	// A publish that snapshotted its targets before Unsubscribe still calls the handler
	assert.NotPanics(t, func() {
		forwarder.enqueue(&Event{Type: ClaimAssessed, Module: "claims", Timestamp: time.Now()})
	})

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.Empty(t, writer.messages)
}
