package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is one record of a batch. Value is sent as is when it is []byte or
// string, JSON encoded otherwise.
type Message struct {
	Key     []byte
	Value   any
	Headers map[string]string
}

// Producer publishes to any topic through one kafka-go writer.
type Producer struct {
	writer messageWriter
	comp   string
}

func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg, err := newProducerConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Producer{writer: cfg.writer(), comp: cfg.Compression}, nil
}

// Publish sends one keyed message. A nil key lets the balancer choose.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value any) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishMessage sends an unkeyed message; it satisfies logger.Publisher.
func (p *Producer) PublishMessage(ctx context.Context, topic string, payload any) error {
	return p.Publish(ctx, topic, nil, payload)
}

// PublishBatch writes messages in one call. Nothing is written when any value
// fails to encode.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	start := time.Now()
	out := make([]kafka.Message, len(messages))
	var size int64
	for i, m := range messages {
		v, err := encodeValue(m.Value)
		if err != nil {
			return err
		}
		out[i] = kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: start, Headers: headers(m.Headers)}
		size += int64(len(v))
	}

	err := p.writer.WriteMessages(ctx, out...)
	producerStats().observe(topic, p.comp, len(out), size, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish %s (%d messages): %w", topic, len(out), err)
	}
	return nil
}

// Close flushes pending async writes and closes the writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encodeValue(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return b, nil
}

func headers(h map[string]string) []kafka.Header {
	if len(h) == 0 {
		return nil
	}
	out := make([]kafka.Header, 0, len(h))
	for k, v := range h {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

type producerMetrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var producerStats = sync.OnceValue(func() *producerMetrics {
	return &producerMetrics{
		messages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fincast_kafka_producer_messages_total",
			Help: "Messages written to Kafka by result",
		}, []string{"topic", "compression", "result"}),
		bytes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fincast_kafka_producer_bytes_total",
			Help: "Payload bytes written to Kafka",
		}, []string{"topic", "compression"}),
		latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fincast_kafka_producer_publish_seconds",
			Help:    "Time spent in one WriteMessages call",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
	}
})

func (m *producerMetrics) observe(topic, comp string, n int, size int64, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.messages.WithLabelValues(topic, comp, result).Add(float64(n))
	if err == nil {
		m.bytes.WithLabelValues(topic, comp).Add(float64(size))
	}
	m.latency.WithLabelValues(topic).Observe(took.Seconds())
}
