package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var ErrSinkFull = errors.New("event sink buffer full")

// MessageWriter is the part of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// KafkaSink forwards bus events to a Kafka topic from a background loop, so
// publishers never wait on the broker.
type KafkaSink struct {
	writer  MessageWriter
	queue   chan kafka.Message
	logger  *zerolog.Logger
	timeout time.Duration
}

func NewKafkaSink(writer MessageWriter, buffer int, logger *zerolog.Logger) *KafkaSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &KafkaSink{
		writer:  writer,
		queue:   make(chan kafka.Message, buffer),
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Handle is an EventHandler. Messages are keyed by booking number so one
// booking's events stay in one partition; events without it use the type.
func (s *KafkaSink) Handle(event *Event) error {
	msg := kafka.Message{
		Key:   messageKey(event),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	select {
	case s.queue <- msg:
		return nil
	default:
		return ErrSinkFull
	}
}

func messageKey(event *Event) []byte {
	var ref struct {
		BookingNumber string `json:"booking_number"`
	}
	if err := json.Unmarshal(event.Payload, &ref); err == nil && ref.BookingNumber != "" {
		return []byte(ref.BookingNumber)
	}
	return []byte(event.Type)
}

// Run drains the queue until ctx is done, then flushes what is left.
func (s *KafkaSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return s.writer.Close()
		case msg := <-s.queue:
			s.write(context.Background(), msg)
		}
	}
}

func (s *KafkaSink) flush() {
	for {
		select {
		case msg := <-s.queue:
			s.write(context.Background(), msg)
		default:
			return
		}
	}
}

func (s *KafkaSink) write(ctx context.Context, msg kafka.Message) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("event_type", string(msg.Key)).Msg("Failed to write event to kafka")
	}
}
