package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// EventType names a committed change in the ride/booking ledger
type EventType string

const (
	RideCreated      EventType = "ride.created"
	RideCancelled    EventType = "ride.cancelled"
	BookingRequested EventType = "booking.requested"
	BookingAccepted  EventType = "booking.accepted"
	BookingDenied    EventType = "booking.denied"
	BookingDeleted   EventType = "booking.deleted"
)

// BookingEvent is published after the ledger transaction commits
type BookingEvent struct {
	Type           EventType `json:"type"`
	RideID         string    `json:"ride_id"`
	BookingID      string    `json:"booking_id,omitempty"`
	PassengerID    string    `json:"passenger_id,omitempty"`
	ActorID        string    `json:"actor_id"`
	AvailableSeats int       `json:"available_seats"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher delivers ledger events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by ride id, so every
// event of one ride lands on the same partition in commit order
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event BookingEvent) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

func encodeEvent(event BookingEvent) (kafka.Message, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}
	return kafka.Message{
		Key:     []byte(event.RideID),
		Value:   body,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(event.Type)}},
		Time:    event.OccurredAt,
	}, nil
}

// LogPublisher records events in the application log when no broker is configured
type LogPublisher struct {
	logger *logrus.Logger
}

// NewLogPublisher creates a log-only publisher
func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (l *LogPublisher) Publish(ctx context.Context, event BookingEvent) error {
	l.logger.WithFields(logrus.Fields{
		"event":           event.Type,
		"ride_id":         event.RideID,
		"booking_id":      event.BookingID,
		"passenger_id":    event.PassengerID,
		"actor_id":        event.ActorID,
		"available_seats": event.AvailableSeats,
	}).Info("Ledger event")
	return nil
}

func (l *LogPublisher) Close() error { return nil }
