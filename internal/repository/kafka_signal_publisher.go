package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

// messagePublisher is the subset of pkg/kafka.Producer used here.
type messagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value any) error
	Close() error
}

// AnalysisMessage is the payload published for each finished analysis.
type AnalysisMessage struct {
	Symbol      string          `json:"symbol"`
	Profile     string          `json:"risk_profile"`
	GeneratedAt time.Time       `json:"generated_at"`
	NextDay     *models.NextDay `json:"next_day,omitempty"`
	Records     []models.Record `json:"records"`
}

// KafkaSignalPublisher publishes analyses keyed by symbol. A circuit breaker
// stops hammering the broker after repeated failures.
type KafkaSignalPublisher struct {
	producer messagePublisher
	topic    string
	cb       *gobreaker.CircuitBreaker
	l        *applogger.Logger
}

func NewKafkaSignalPublisher(producer messagePublisher, topic string, l *applogger.Logger) *KafkaSignalPublisher {
	if l == nil {
		l = applogger.Nop()
	}
	st := gobreaker.Settings{
		Name:        "kafka-signals",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	}
	return &KafkaSignalPublisher{producer: producer, topic: topic, cb: gobreaker.NewCircuitBreaker(st), l: l}
}

func (p *KafkaSignalPublisher) PublishAnalysis(ctx context.Context, a *models.Analysis) error {
	msg := AnalysisMessage{
		Symbol:      a.Symbol,
		Profile:     string(a.Profile),
		GeneratedAt: a.GeneratedAt,
		Records:     a.Records(),
	}
	if nd, ok := a.NextDay(); ok {
		msg.NextDay = &nd
	}
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.producer.Publish(ctx, p.topic, []byte(a.Symbol), msg)
	})
	if err != nil {
		return fmt.Errorf("publish analysis %s: %w", a.Symbol, err)
	}
	return nil
}

// State reports the breaker state.
func (p *KafkaSignalPublisher) State() gobreaker.State { return p.cb.State() }

func (p *KafkaSignalPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
