// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"upload-ai-service/internal/models"
	"upload-ai-service/internal/observability/metrics"
	"upload-ai-service/internal/schema"
)

// Publisher publishes video lifecycle events to Kafka topics.
// When Kafka is disabled events are only logged.
type Publisher struct {
	writerTranscript *kafka.Writer
	writerCompletion *kafka.Writer
	principal        string
	topicTranscript  string
	topicCompletion  string
	enabled          bool
	metrics          *metrics.Metrics
	validator        *schema.Validator
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TopicTranscript string
	TopicCompletion string
	Principal       string
	Enabled         bool
	Metrics         *metrics.Metrics
}

// New creates a new Kafka event publisher.
func New(cfg *Config) *Publisher {
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled:   false,
			metrics:   metrics.DefaultMetrics,
			validator: schema.New(),
		}
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.DefaultMetrics
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:       cfg.Principal,
			topicTranscript: cfg.TopicTranscript,
			topicCompletion: cfg.TopicCompletion,
			enabled:         false,
			metrics:         m,
			validator:       schema.New(),
		}
	}

	// Longer dial timeout for DNS resolution inside Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscript", cfg.TopicTranscript).
		Str("topicCompletion", cfg.TopicCompletion).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTranscript: newWriter(cfg.TopicTranscript),
		writerCompletion: newWriter(cfg.TopicCompletion),
		principal:        cfg.Principal,
		topicTranscript:  cfg.TopicTranscript,
		topicCompletion:  cfg.TopicCompletion,
		enabled:          true,
		metrics:          m,
		validator:        schema.New(),
	}
}

// PublishTranscript publishes a video.transcribed event keyed by video id.
func (p *Publisher) PublishTranscript(ctx context.Context, event models.TranscriptEvent) error {
	return p.publish(ctx, p.writerTranscript, p.topicTranscript, event.EventType, event.VideoID, event)
}

// PublishCompletion publishes a completion.finished event keyed by video id.
func (p *Publisher) PublishCompletion(ctx context.Context, event models.CompletionEvent) error {
	return p.publish(ctx, p.writerCompletion, p.topicCompletion, event.EventType, event.VideoID, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	if err := p.validator.Validate(event); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Event failed schema validation")
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscript != nil {
		if e := p.writerTranscript.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcript writer")
			err = e
		}
	}
	if p.writerCompletion != nil {
		if e := p.writerCompletion.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing completion writer")
			err = e
		}
	}
	return err
}
