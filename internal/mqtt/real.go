package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// messageBuffer is how many received messages may queue before the paho
// callback blocks.
const messageBuffer = 64

// SubscriberConfig configures a RealSubscriber.
type SubscriberConfig struct {
	Broker   string // e.g. tcp://broker.emqx.io:1883
	ClientID string
	Topic    string
	QoS      byte
}

// RealSubscriber receives messages from an actual MQTT broker.
type RealSubscriber struct {
	client paho.Client
	topic  string
	qos    byte
	msgs   chan Message
	now    func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewRealSubscriber connects to the broker and subscribes to the topic on every
// (re)connect. Reconnection is left to the paho client.
func NewRealSubscriber(cfg SubscriberConfig) (*RealSubscriber, error) {
	s := &RealSubscriber{
		topic: cfg.Topic,
		qos:   cfg.QoS,
		msgs:  make(chan Message, messageBuffer),
		now:   time.Now,
		done:  make(chan struct{}),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		}).
		SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
			log.Printf("mqtt: reconnecting to %s", cfg.Broker)
		})

	s.client = paho.NewClient(opts)
	log.Printf("mqtt: connecting to %s, topic %q", cfg.Broker, cfg.Topic)
	token := s.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// With connect retry enabled the client keeps trying in the background.
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", cfg.Broker)
		return s, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return s, nil
}

func (s *RealSubscriber) onConnect(c paho.Client) {
	log.Printf("mqtt: connected to broker")
	token := c.Subscribe(s.topic, s.qos, s.onMessage)
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("mqtt: subscribe to %q timed out", s.topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt: subscribe to %q: %v", s.topic, err)
		return
	}
	log.Printf("mqtt: subscribed to %q", s.topic)
}

func (s *RealSubscriber) onMessage(_ paho.Client, m paho.Message) {
	s.deliver(Message{
		Topic:    m.Topic(),
		Payload:  m.Payload(),
		Received: s.now(),
	})
}

// deliver queues msg for the receive loop. Once the subscriber is stopped
// messages are dropped so the paho router never blocks on a reader that is gone.
func (s *RealSubscriber) deliver(msg Message) bool {
	select {
	case s.msgs <- msg:
		return true
	case <-s.done:
		return false
	}
}

func (s *RealSubscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Messages returns the channel received messages are delivered on.
func (s *RealSubscriber) Messages() <-chan Message {
	return s.msgs
}

// IsConnected reports whether the client currently has a broker connection.
func (s *RealSubscriber) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

// Close stops delivery and disconnects from the broker.
func (s *RealSubscriber) Close() error {
	s.stop()
	s.client.Disconnect(250)
	return nil
}
