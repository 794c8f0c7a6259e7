// Package usage publishes connector usage events to Kafka for the dashboard
// aggregation pipeline. Reporting is fire-and-forget; a broker outage never
// blocks or fails a connector operation.
package usage

import (
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	jsonx "github.com/genialabs/conduit/pkg/json"
	"github.com/genialabs/conduit/pkg/logger"
)

// Event is one connector operation observed by the usage pipeline
type Event struct {
	UserID     string `json:"user_id"`
	Platform   string `json:"platform"`
	Operation  string `json:"operation"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"duration_ms"`
	At         string `json:"at"`
}

// Reporter publishes usage events through an async Kafka producer.
type Reporter struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *zap.Logger
}

// ReporterConfig configures the Kafka usage reporter
type ReporterConfig struct {
	Brokers []string
	Topic   string
}

// DefaultReporterConfig returns local-broker defaults
func DefaultReporterConfig() ReporterConfig {
	return ReporterConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "conduit.usage",
	}
}

// NewReporter creates a usage reporter connected to the given brokers
func NewReporter(cfg ReporterConfig) (*Reporter, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 500 * time.Millisecond
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, err
	}

	r := &Reporter{
		producer: producer,
		topic:    cfg.Topic,
		logger:   logger.Get().With(zap.String("component", "usage_reporter")),
	}

	// Drain producer errors so delivery failures surface in the logs
	go func() {
		for err := range producer.Errors() {
			r.logger.Warn("usage event delivery failed", zap.Error(err.Err))
		}
	}()

	return r, nil
}

// Report publishes one usage event. Encoding failures are logged and
// swallowed.
func (r *Reporter) Report(event Event) {
	if event.At == "" {
		event.At = time.Now().UTC().Format(time.RFC3339)
	}

	payload, err := jsonx.Marshal(event)
	if err != nil {
		r.logger.Warn("failed to encode usage event", zap.Error(err))
		return
	}

	r.producer.Input() <- &sarama.ProducerMessage{
		Topic: r.topic,
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(payload),
	}
}

// Close flushes pending events and stops the producer
func (r *Reporter) Close() error {
	return r.producer.Close()
}
