package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces completed risk reports to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one report. Reports are keyed by city so a city's
// assessments stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, report domain.PublishedReport) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report %s: %w", report.ID, err)
	}
	p.logger.Debug("report published", "id", report.ID, "city", report.City, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a PublishedReport into a Kafka message.
func serializeToMessage(report domain.PublishedReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.City),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "report_id", Value: []byte(report.ID)},
			{Key: "assessed_at", Value: []byte(report.AssessedAt.Format(time.RFC3339))},
			{Key: "alert", Value: []byte(strconv.FormatBool(alert(report)))},
		},
	}, nil
}

func alert(r domain.PublishedReport) bool {
	return r.FloodProb >= domain.MediumThreshold || r.CycloneProb >= domain.MediumThreshold
}
