package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/garage-sensor/internal/logic"
)

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	BufferSize  int
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are held in a backlog and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	prefix string
	log    *zap.SugaredLogger

	mu      sync.Mutex
	pending *backlog
}

// NewRealPublisher creates a publisher for the given broker. The broker's
// last will marks the sensor OFFLINE. An unreachable broker is not fatal:
// the client keeps retrying in the background.
func NewRealPublisher(opts Options, log *zap.SugaredLogger) *RealPublisher {
	p := &RealPublisher{
		prefix:  opts.TopicPrefix,
		log:     log,
		pending: newBacklog(opts.BufferSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})
	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(p.topic(TopicSystem), will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.flush() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt connection lost", "error", err)
		})

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Warnw("mqtt broker not reachable yet, retrying in background", "broker", opts.Broker)
	} else if err := token.Error(); err != nil {
		log.Warnw("mqtt connect failed, retrying in background", "broker", opts.Broker, "error", err)
	}

	return p
}

func (p *RealPublisher) topic(suffix string) string {
	return p.prefix + "/" + suffix
}

// IsConnected reports whether the client currently has a live connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// PublishTransition sends a door transition, retained so new subscribers
// see the current state.
func (p *RealPublisher) PublishTransition(t logic.Transition) error {
	payload, err := FormatTransition(t)
	if err != nil {
		return fmt.Errorf("format transition payload: %w", err)
	}
	return p.publish(pendingMsg{topic: p.topic(TopicState), payload: payload, qos: 1, retained: true})
}

// PublishAlert sends a fired alarm.
func (p *RealPublisher) PublishAlert(a Alert) error {
	payload, err := FormatAlert(a)
	if err != nil {
		return fmt.Errorf("format alert payload: %w", err)
	}
	return p.publish(pendingMsg{topic: p.topic(TopicAlerts), payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(pendingMsg{topic: p.topic(TopicSystem), payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg pendingMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		if p.pending.push(msg) {
			p.log.Debugw("mqtt backlog full, dropped oldest message", "capacity", len(p.pending.slots))
		}
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// flush replays the backlog after (re)connecting. Runs on paho's goroutine,
// so it does not wait for acknowledgements.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	msgs, dropped := p.pending.drain()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	p.log.Infow("mqtt connected, replaying backlog", "messages", len(msgs), "dropped", dropped)
	for _, m := range msgs {
		p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
