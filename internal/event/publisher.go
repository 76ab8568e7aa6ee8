package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mdobak/go-xerrors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

const (
	DefaultAlertQueue = "cowbelt.alerts"
	AlertCreatedType  = "AlertCreated"
)

// AlertCreatedEvent is the message body published for every new alert.
type AlertCreatedEvent struct {
	Event      string     `json:"event"`
	AlertID    string     `json:"alertId"`
	CowID      string     `json:"cowId,omitempty"`
	Severity   string     `json:"severity"`
	Alert      data.Alert `json:"alert"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AlertPublisher publishes AlertCreated events to a durable queue.
type AlertPublisher struct {
	ch    Channel
	queue string

	declareOnce sync.Once
	declareErr  error

	messagesPublished atomic.Int64
	messagesFailed    atomic.Int64
}

func NewAlertPublisher(ch Channel, queue string) *AlertPublisher {
	if queue == "" {
		queue = DefaultAlertQueue
	}
	return &AlertPublisher{ch: ch, queue: queue}
}

// Publish sends one AlertCreated event.
func (p *AlertPublisher) Publish(ctx context.Context, alert data.Alert) error {
	p.declareOnce.Do(func() {
		_, p.declareErr = p.ch.QueueDeclare(
			p.queue, // queue name
			true,    // durable
			false,   // delete when unused
			false,   // exclusive
			false,   // no-wait
			nil,     // arguments
		)
	})
	if p.declareErr != nil {
		p.messagesFailed.Add(1)
		return fmt.Errorf("failed to declare queue: %w", p.declareErr)
	}

	body, err := json.Marshal(AlertCreatedEvent{
		Event:      AlertCreatedType,
		AlertID:    alert.AlertID,
		CowID:      alert.Source.CowID,
		Severity:   string(alert.Severity),
		Alert:      alert,
		OccurredAt: alert.CreatedAt,
	})
	if err != nil {
		p.messagesFailed.Add(1)
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	err = p.ch.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    alert.AlertID,
			Type:         AlertCreatedType,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed.Add(1)
		return fmt.Errorf("failed to publish alert event: %w", err)
	}

	p.messagesPublished.Add(1)
	slog.Info("Alert event published", "queue", p.queue, "alertId", alert.AlertID)
	return nil
}

// AlertCreated publishes the alert and logs failures. Delivery is best effort.
func (p *AlertPublisher) AlertCreated(ctx context.Context, alert data.Alert) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Publish(ctx, alert); err != nil {
		slog.Error("publish alert event", slog.String("alertId", alert.AlertID), slog.Any("error", xerrors.New(err)))
	}
}

// Stats returns the published and failed message counters.
func (p *AlertPublisher) Stats() (published, failed int64) {
	return p.messagesPublished.Load(), p.messagesFailed.Load()
}
