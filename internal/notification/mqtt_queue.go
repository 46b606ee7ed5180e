package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/logger"
)

const (
	mqttConnectTimeout = 30 * time.Second
	mqttPublishTimeout = 10 * time.Second
	mqttDisconnectWait = 250 // milliseconds
)

// mqttClient is the part of the paho client used by MQTTQueue.
type mqttClient interface {
	Connect() mqtt.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTQueue publishes messages as JSON to a broker topic. A delivery
// service subscribed to the topic sends the emails; Consume lets this
// process act as that service.
type MQTTQueue struct {
	client mqttClient
	broker string
	topic  string
	qos    byte
	log    logger.Logger
}

// NewMQTTQueue creates a queue for the configured broker. Call Connect
// before use.
func NewMQTTQueue(cfg *conf.MQTTQueueSettings) *MQTTQueue {
	q := &MQTTQueue{broker: cfg.Broker, topic: cfg.Topic, qos: cfg.QoS, log: getLogger()}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		q.log.Info("connected to MQTT broker", logger.String("broker", q.broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		q.log.Warn("connection to MQTT broker lost", logger.String("broker", q.broker), logger.Error(err))
	})

	q.client = mqtt.NewClient(opts)
	return q
}

func newMQTTQueueWithClient(client mqttClient, topic string, qos byte) *MQTTQueue {
	return &MQTTQueue{client: client, topic: topic, qos: qos, log: getLogger()}
}

// Name returns "mqtt".
func (q *MQTTQueue) Name() string { return "mqtt" }

// Connect connects to the broker, waiting at most mqttConnectTimeout.
func (q *MQTTQueue) Connect(ctx context.Context) error {
	token := q.client.Connect()
	if err := waitToken(ctx, token, mqttConnectTimeout); err != nil {
		return dispatchError(q.Name(), fmt.Errorf("connect to %s: %w", q.broker, err))
	}
	return nil
}

// Enqueue publishes msg and waits for the broker to acknowledge it.
func (q *MQTTQueue) Enqueue(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return dispatchError(q.Name(), err)
	}
	if !q.client.IsConnected() {
		return dispatchError(q.Name(), fmt.Errorf("not connected to MQTT broker"))
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return dispatchError(q.Name(), err)
	}
	token := q.client.Publish(q.topic, q.qos, false, payload)
	if err := waitToken(ctx, token, mqttPublishTimeout); err != nil {
		return dispatchError(q.Name(), err)
	}
	return nil
}

// Consume subscribes to the topic and returns decoded messages. Messages
// arriving after ctx is done are dropped, as are undecodable payloads.
func (q *MQTTQueue) Consume(ctx context.Context, buffer int) (<-chan *Message, error) {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	out := make(chan *Message, buffer)
	done := make(chan struct{})

	handler := func(_ mqtt.Client, m mqtt.Message) {
		var msg Message
		if err := json.Unmarshal(m.Payload(), &msg); err != nil {
			q.log.Warn("dropping undecodable notification", logger.String("topic", m.Topic()), logger.Error(err))
			return
		}
		select {
		case out <- &msg:
		case <-done:
		}
	}

	token := q.client.Subscribe(q.topic, q.qos, handler)
	if err := waitToken(ctx, token, mqttConnectTimeout); err != nil {
		return nil, dispatchError(q.Name(), fmt.Errorf("subscribe to %s: %w", q.topic, err))
	}

	go func() {
		<-ctx.Done()
		close(done)
	}()
	return out, nil
}

// Close disconnects from the broker.
func (q *MQTTQueue) Close() error {
	if q.client.IsConnected() {
		q.client.Disconnect(mqttDisconnectWait)
	}
	return nil
}

// waitToken waits for token to complete, for timeout or for ctx.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
