package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/testutil"
)

// doneToken is an already completed mqtt.Token.
type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeMQTTMessage struct {
	topic   string
	payload []byte
}

func (m fakeMQTTMessage) Duplicate() bool   { return false }
func (m fakeMQTTMessage) Qos() byte         { return 1 }
func (m fakeMQTTMessage) Retained() bool    { return false }
func (m fakeMQTTMessage) Topic() string     { return m.topic }
func (m fakeMQTTMessage) MessageID() uint16 { return 1 }
func (m fakeMQTTMessage) Payload() []byte   { return m.payload }
func (m fakeMQTTMessage) Ack()              {}

// loopbackClient delivers published payloads to its subscriber.
type loopbackClient struct {
	mu         sync.Mutex
	connected  bool
	publishErr error
	handler    mqtt.MessageHandler
	published  [][]byte
}

func (c *loopbackClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return doneToken{}
}

func (c *loopbackClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *loopbackClient) Publish(topic string, _ byte, _ bool, payload any) mqtt.Token {
	c.mu.Lock()
	data, _ := payload.([]byte)
	c.published = append(c.published, data)
	handler, err := c.handler, c.publishErr
	c.mu.Unlock()

	if err != nil {
		return doneToken{err: err}
	}
	if handler != nil {
		handler(nil, fakeMQTTMessage{topic: topic, payload: data})
	}
	return doneToken{}
}

func (c *loopbackClient) Subscribe(_ string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = callback
	return doneToken{}
}

func (c *loopbackClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func TestMQTTQueue_PublishAndConsume(t *testing.T) {
	client := &loopbackClient{}
	q := newMQTTQueueWithClient(client, "debatetab/notifications", 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := NewTemplateEmail(4, EventAdjudicator, map[string]any{"round_id": 12}, []uint{1, 2})
	err := q.Enqueue(ctx, msg)
	require.ErrorIs(t, err, ErrDispatch, "not connected yet")

	require.NoError(t, q.Connect(ctx))
	messages, err := q.Consume(ctx, 4)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ctx, msg))
	got := testutil.ReceiveWithin(t, messages, testutil.ShortTestTimeout, "no message consumed")
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, TypeEmail, got.Type)
	assert.Equal(t, EventAdjudicator, got.Event)
	assert.Equal(t, []uint{1, 2}, got.RecipientIDs())
	assert.EqualValues(t, 12, got.Extra["round_id"])

	require.NoError(t, q.Close())
	assert.False(t, client.IsConnected())
}

func TestMQTTQueue_PublishError(t *testing.T) {
	client := &loopbackClient{connected: true, publishErr: errors.NewStd("broker unavailable")}
	q := newMQTTQueueWithClient(client, "t", 0)

	err := q.Enqueue(context.Background(), NewCustomEmail(1, "s", "b", nil))
	require.ErrorIs(t, err, ErrDispatch)
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestWebhookQueue_Enqueue(t *testing.T) {
	q := NewWebhookQueue(&conf.WebhookQueueSettings{
		URL:     "https://channels.example.org/notifications",
		Timeout: time.Second,
		Headers: map[string]string{"X-Channel-Token": "secret"},
	})
	defer func() { _ = q.Close() }()
	httpmock.ActivateNonDefault(q.client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	var received Message
	httpmock.RegisterResponder(http.MethodPost, "https://channels.example.org/notifications",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.Equal(t, "secret", req.Header.Get("X-Channel-Token"))
			if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, "bad json"), nil
			}
			return httpmock.NewStringResponse(http.StatusAccepted, ""), nil
		})

	msg := NewCustomEmail(3, "Briefing", "Briefing at 9am", []Recipient{{ID: 5, Email: "e@example.org"}})
	require.NoError(t, q.Enqueue(context.Background(), msg))

	assert.Equal(t, TypeCustomEmail, received.Type)
	assert.Equal(t, uint(3), received.Tournament)
	assert.Equal(t, []Recipient{{ID: 5, Email: "e@example.org"}}, received.SendTo)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestWebhookQueue_ErrorStatus(t *testing.T) {
	q := NewWebhookQueue(&conf.WebhookQueueSettings{URL: "https://channels.example.org/notifications"})
	httpmock.ActivateNonDefault(q.client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost, "https://channels.example.org/notifications",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "channel layer down"))

	err := q.Enqueue(context.Background(), NewTemplateEmail(1, EventURL, nil, []uint{1}))
	require.ErrorIs(t, err, ErrDispatch)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "channel layer down")
}

func TestNewQueue_SelectsBackend(t *testing.T) {
	q, err := NewQueue(context.Background(), &conf.QueueSettings{Type: conf.QueueMemory, BufferSize: 2})
	require.NoError(t, err)
	assert.Equal(t, "memory", q.Name())
	require.NoError(t, q.Close())

	q, err = NewQueue(context.Background(), &conf.QueueSettings{
		Type:    conf.QueueWebhook,
		Webhook: conf.WebhookQueueSettings{URL: "https://example.org/hook"},
	})
	require.NoError(t, err)
	assert.Equal(t, "webhook", q.Name())

	_, err = NewQueue(context.Background(), &conf.QueueSettings{Type: "carrier-pigeon"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
