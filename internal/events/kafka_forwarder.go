package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	forwarderBuffer       = 256
	forwarderWriteTimeout = 5 * time.Second
)

// MessageWriter is the subset of *kafka.Writer the forwarder uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewKafkaWriter builds a writer for topic on brokers
func NewKafkaWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
	}
}

// KafkaForwarder copies every bus event onto a Kafka topic.
// Events are keyed by type and dropped when the buffer is full.
type KafkaForwarder struct {
	writer MessageWriter
	bus    *Bus
	queue  chan kafkago.Message
	done   chan struct{}
	log    zerolog.Logger
	subID  SubscriptionID
	once   sync.Once

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewKafkaForwarder creates a forwarder; call Start to begin forwarding
func NewKafkaForwarder(bus *Bus, writer MessageWriter, log zerolog.Logger) *KafkaForwarder {
	return &KafkaForwarder{
		writer: writer,
		bus:    bus,
		queue:  make(chan kafkago.Message, forwarderBuffer),
		done:   make(chan struct{}),
		log:    log.With().Str("component", "kafka_forwarder").Logger(),
	}
}

// Start subscribes to the bus and launches the writer goroutine
func (f *KafkaForwarder) Start() {
	f.mu.Lock()
	if f.started || f.closed {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.mu.Unlock()

	f.subID = f.bus.SubscribeAll(f.enqueue)
	go f.run()
	f.log.Info().Msg("Kafka event forwarding started")
}

func (f *KafkaForwarder) enqueue(event *Event) {
	value, err := json.Marshal(&EventWithData{
		Type:      event.Type,
		Timestamp: event.Timestamp,
		Module:    event.Module,
		Data:      event.Data,
	})
	if err != nil {
		f.log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("Failed to encode event")
		return
	}

	msg := kafkago.Message{
		Key:   []byte(event.Type),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafkago.Header{
			{Key: "module", Value: []byte(event.Module)},
		},
	}

	// Late deliveries after Stop are dropped
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.queue <- msg:
	default:
		f.log.Warn().Str("event_type", string(event.Type)).Msg("Kafka queue full, dropping event")
	}
}

func (f *KafkaForwarder) run() {
	defer close(f.done)
	for msg := range f.queue {
		ctx, cancel := context.WithTimeout(context.Background(), forwarderWriteTimeout)
		if err := f.writer.WriteMessages(ctx, msg); err != nil {
			f.log.Error().Err(err).Str("key", string(msg.Key)).Msg("Failed to forward event to Kafka")
		}
		cancel()
	}
}

// Stop unsubscribes, drains the queue and closes the writer
func (f *KafkaForwarder) Stop() error {
	var err error
	f.once.Do(func() {
		f.mu.Lock()
		started := f.started
		f.closed = true
		close(f.queue)
		f.mu.Unlock()

		if started {
			f.bus.Unsubscribe(f.subID)
			<-f.done
		}
		err = f.writer.Close()
	})
	return err
}
