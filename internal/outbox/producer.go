package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// producerBatchTimeout bounds how long a dispatcher batch waits in the writer.
const producerBatchTimeout = 20 * time.Millisecond

// KafkaProducer keeps one writer per topic. Records are hashed by key, which the
// outbox sets to the track's user id, so a user's events stay in order on one partition.
type KafkaProducer struct {
	brokers []string
	logger  *slog.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer. WithLogger receives writer errors.
func NewKafkaProducer(brokers []string, opts ...Option) *KafkaProducer {
	o := applyOptions(opts)
	return &KafkaProducer{
		brokers: brokers,
		logger:  o.logger,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes a batch of track events to topic.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer(topic).WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), topic, err)
	}
	return nil
}

func (p *KafkaProducer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	log := p.logger.With(slog.String("topic", topic))
	errorLogger := kafka.LoggerFunc(func(msg string, args ...interface{}) {
		log.Error(fmt.Sprintf(msg, args...))
	})
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: producerBatchTimeout,
		ErrorLogger:  errorLogger,
	}
	p.writers[topic] = w
	return w
}

// Close flushes and releases every writer.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
