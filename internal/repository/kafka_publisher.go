package repository

import (
	"context"

	"github.com/segmentio/kafka-go"

	"ContractScan/internal/domain/models"
	applogger "ContractScan/pkg/logger"
)

// Publisher is the subset of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value any, headers ...kafka.Header) error
	Close() error
}

// KafkaReportPublisher publishes report summaries keyed by contract stamp. It also ships
// log digests, so one producer serves both topics.
type KafkaReportPublisher struct {
	producer Publisher
	topic    string
}

func NewKafkaReportPublisher(producer Publisher, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) PublishReport(ctx context.Context, r *models.AnalysisReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(models.Stamp(r.ContractDate)), r.Summary(),
		kafka.Header{Key: "content_type", Value: []byte("application/json")},
		kafka.Header{Key: "schema", Value: []byte("report_summary.v1")},
	)
}

func (p *KafkaReportPublisher) PublishDigest(ctx context.Context, topic string, entries []applogger.DigestEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return p.producer.Publish(ctx, topic, nil, entries)
}

func (p *KafkaReportPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
