package mqtt

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"aq-backend/internal/models"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type subscription struct {
	topic string
	qos   byte
}

// fakeClient records subscriptions. Each connect to a clean-session broker
// starts with none, so the broker side is not modelled.
type fakeClient struct {
	subscriptions []subscription
	subscribeErr  error
	disconnects   int
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() mqtt.Token    { return doneToken{} }
func (c *fakeClient) Disconnect(uint)        { c.disconnects++ }
func (c *fakeClient) Publish(string, byte, bool, interface{}) mqtt.Token {
	return doneToken{}
}
func (c *fakeClient) Subscribe(topic string, qos byte, _ mqtt.MessageHandler) mqtt.Token {
	c.subscriptions = append(c.subscriptions, subscription{topic: topic, qos: qos})
	return doneToken{err: c.subscribeErr}
}
func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return doneToken{}
}
func (c *fakeClient) Unsubscribe(...string) mqtt.Token        { return doneToken{} }
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler)    {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

type countingRejects struct{ n int }

func (c *countingRejects) ReadingRejected() { c.n++ }

func newTestSubscriber(buf int) (*Subscriber, *countingRejects) {
	rejects := &countingRejects{}
	s := NewSubscriber(SubscriberConfig{ReadingTopic: "airquality/+/reading"},
		make(chan *models.Reading, buf), rejects, zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.sendTimeout = 10 * time.Millisecond
	return s, rejects
}

func TestHandleReadingForwardsValidPayload(t *testing.T) {
	s, rejects := newTestSubscriber(1)

	s.handleReading(nil, fakeMessage{
		topic:   "airquality/pi-kitchen/reading",
		payload: []byte(`{"temp_c": 22.5, "hum_pct": 41.2, "mq2": 612, "mq135": "480"}`),
	})

	select {
	case r := <-s.ReadingChan:
		if r.DeviceID != "pi-kitchen" {
			t.Errorf("device id = %q, want pi-kitchen", r.DeviceID)
		}
		if r.MQ2 != 612 || r.MQ135 != 480 || r.TempC != 22.5 || r.HumPct != 41.2 {
			t.Errorf("unexpected reading %+v", r)
		}
		if !r.Timestamp.Equal(s.now()) {
			t.Errorf("timestamp = %v, want server time", r.Timestamp)
		}
	default:
		t.Fatal("no reading forwarded")
	}
	if rejects.n != 0 {
		t.Errorf("rejects = %d, want 0", rejects.n)
	}
}

func TestHandleReadingRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `mq2=1`,
		"missing mq135": `{"temp_c": 22, "hum_pct": 40, "mq2": 100}`,
		"non numeric":   `{"temp_c": 22, "hum_pct": 40, "mq2": "high", "mq135": 100}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			s, rejects := newTestSubscriber(1)
			s.handleReading(nil, fakeMessage{topic: "airquality/a/reading", payload: []byte(payload)})
			if len(s.ReadingChan) != 0 {
				t.Fatal("malformed reading was forwarded")
			}
			if rejects.n != 1 {
				t.Errorf("rejects = %d, want 1", rejects.n)
			}
		})
	}
}

func TestHandleReadingDropsWhenChannelFull(t *testing.T) {
	s, _ := newTestSubscriber(0)
	done := make(chan struct{})
	go func() {
		s.handleReading(nil, fakeMessage{
			topic:   "airquality/a/reading",
			payload: []byte(`{"temp_c": 22, "hum_pct": 40, "mq2": 100, "mq135": 100}`),
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler blocked on a full channel")
	}
}

func TestSubscriberResubscribesOnEveryConnect(t *testing.T) {
	s, _ := newTestSubscriber(1)
	opts := newClientOptions(ClientConfig{
		Broker:    "tcp://localhost:1883",
		OnConnect: []ConnectHandler{s.OnConnect},
	}, zap.NewNop())
	if opts.OnConnect == nil {
		t.Fatal("no connect handler installed")
	}

	client := &fakeClient{}
	// Initial connect followed by two automatic reconnects
	for i := 0; i < 3; i++ {
		opts.OnConnect(client)
	}

	if len(client.subscriptions) != 3 {
		t.Fatalf("subscriptions = %d, want one per connect", len(client.subscriptions))
	}
	for _, sub := range client.subscriptions {
		if sub.topic != "airquality/+/reading" || sub.qos != 1 {
			t.Errorf("subscription = %+v", sub)
		}
	}
}

func TestSubscribeReportsBrokerError(t *testing.T) {
	s, _ := newTestSubscriber(1)
	client := &fakeClient{subscribeErr: errors.New("not authorized")}

	if err := s.Subscribe(client); err == nil {
		t.Fatal("expected subscribe error")
	}
	// OnConnect only logs; the connection stays up for the next reconnect
	s.OnConnect(client)
	if client.disconnects != 0 {
		t.Errorf("disconnects = %d, want 0", client.disconnects)
	}
}

func TestExtractDeviceID(t *testing.T) {
	if got := extractDeviceID("airquality/pi-livingroom/reading"); got != "pi-livingroom" {
		t.Errorf("got %q", got)
	}
	if got := extractDeviceID("reading"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestFormatTopic(t *testing.T) {
	if got := formatTopic("airquality/{device_id}/prediction", "pi-1"); got != "airquality/pi-1/prediction" {
		t.Errorf("got %q", got)
	}
	if got := formatTopic("airquality/{device_id}/prediction", ""); got != "airquality/default/prediction" {
		t.Errorf("got %q", got)
	}
}
