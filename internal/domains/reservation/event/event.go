// Package event publishes reservation lifecycle changes. Cancellation deletes
// the row, so these events are the only durable record of what happened.
package event

//go:generate go run go.uber.org/mock/mockgen -source=./event.go -destination=../mocks/event_mock.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"innkeeper/config"
	"innkeeper/infras/kafka"
	"innkeeper/infras/otel"
	"innkeeper/internal/domains/reservation/model/dto"
	"innkeeper/shared/constant"
	"innkeeper/shared/timezone"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const breakerName = "reservation-events"

const (
	TypeCreated       = "reservation.created"
	TypeUpdated       = "reservation.updated"
	TypeStatusChanged = "reservation.status_changed"
	TypeCancelled     = "reservation.cancelled"
)

type Event struct {
	Type        string                  `json:"type"`
	Reservation dto.ReservationResponse `json:"reservation"`
	// PreviousStatus is set on status changes only.
	PreviousStatus string    `json:"previous_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
	Actor          string    `json:"actor"`
}

func New(eventType string, reservation dto.ReservationResponse, actor string) Event {
	return Event{
		Type:        eventType,
		Reservation: reservation,
		OccurredAt:  timezone.Now(),
		Actor:       actor,
	}
}

type Publisher interface {
	// Publish sends evt in the background. It never blocks the caller and
	// failures are only logged.
	Publish(ctx context.Context, evt Event)
}

type publisherImpl struct {
	client  kafka.Client
	topic   string
	breaker *gobreaker.CircuitBreaker
	otel    otel.Otel
}

func NewPublisher(cfg *config.Config, client kafka.Client, otel otel.Otel) Publisher {
	breakerCfg := cfg.Reservation.Breaker

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: breakerCfg.MaxRequests,
		Interval:    time.Duration(breakerCfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(breakerCfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerCfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &publisherImpl{
		client:  client,
		topic:   cfg.Kafka.Topics.Reservation,
		breaker: breaker,
		otel:    otel,
	}
}

func (p *publisherImpl) Publish(ctx context.Context, evt Event) {
	if !p.client.Enabled() {
		return
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := p.send(c, evt); err != nil {
			log.Error().Err(err).Str("type", evt.Type).Str("reservation", evt.Reservation.ID).Msg("failed to publish reservation event")
		}
	}()
}

func (p *publisherImpl) send(ctx context.Context, evt Event) (err error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Publish")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttribute("event.type", evt.Type)

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.client.SendMessages(ctx, p.topic, kafka.Message{
			Key:   evt.Reservation.ID,
			Value: evt,
		})
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Warn().Str("type", evt.Type).Msg("reservation event dropped, breaker open")
	}

	return err
}
