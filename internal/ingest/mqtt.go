package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mdobak/go-xerrors"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

const (
	DefaultTopic   = "cowbelt/+/data"
	messageTimeout = 10 * time.Second
)

// SubscriberConfig describes the broker connection.
type SubscriberConfig struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
}

// Subscriber feeds readings published by belt devices into a Processor.
type Subscriber struct {
	cfg       SubscriberConfig
	processor *Processor
	client    mqtt.Client
}

func NewSubscriber(cfg SubscriberConfig, processor *Processor) *Subscriber {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	s := &Subscriber{cfg: cfg, processor: processor}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c mqtt.Client) {
			// Subscriptions are lost on reconnect with a clean session.
			if token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.onMessage); token.Wait() && token.Error() != nil {
				slog.Error("mqtt subscribe failed", slog.String("topic", s.cfg.Topic), slog.Any("error", xerrors.New(token.Error())))
				return
			}
			slog.Info("Listening on MQTT topic", slog.String("topic", s.cfg.Topic))
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("mqtt connection lost", slog.Any("error", xerrors.New(err)))
		})
	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker. Subscribing happens in the connect handler.
func (s *Subscriber) Start() error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect mqtt broker %s: %w", s.cfg.Broker, token.Error())
	}
	slog.Info("Connected to MQTT", slog.String("broker", s.cfg.Broker))
	return nil
}

// Stop disconnects, waiting at most 250ms for in-flight work.
func (s *Subscriber) Stop() {
	s.client.Disconnect(250)
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()

	if _, err := s.HandleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
		slog.Warn("mqtt reading rejected", slog.String("topic", msg.Topic()), slog.Any("error", xerrors.New(err)))
	}
}

// HandleMessage parses one payload and processes it. A payload without cowId takes the
// cow id from the topic.
func (s *Subscriber) HandleMessage(ctx context.Context, topic string, payload []byte) (*Result, error) {
	reading, err := data.Parse(payload)
	if errors.Is(err, data.ErrMissingCowID) {
		reading.CowID = CowIDFromTopic(topic)
		if reading.CowID == "" {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return s.processor.Process(ctx, *reading)
}

// CowIDFromTopic extracts the cow id from a cowbelt/{cowId}/data topic.
func CowIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "cowbelt" || parts[2] != "data" {
		return ""
	}
	return parts[1]
}
