package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	publishTimeout = 5 * time.Second
	commandBacklog = 8
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topics     Topics
	BufferSize int // messages held while disconnected
	MaxPayload int // unlock commands are truncated to this many bytes
}

// RealPublisher publishes to an actual MQTT broker and receives unlock
// commands from it. While the broker is unreachable outgoing messages are
// held in an outbox and replayed on reconnect.
type RealPublisher struct {
	client     paho.Client
	topics     Topics
	maxPayload int
	commands   chan Command
	now        func() time.Time

	// mu orders publishes against reconnect replay. While online is false
	// every message goes to the outbox.
	mu        sync.Mutex
	outbox    *outbox
	online    bool
	connected bool // set after the first successful connection
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. It never blocks on the broker: paho retries until it succeeds.
func NewRealPublisher(opts Options) *RealPublisher {
	p := newPublisher(nil, opts)

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(opts.Topics.System, FormatWillPayload(time.Now()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(clientOpts)
	p.client.Connect()
	return p
}

func newPublisher(client paho.Client, opts Options) *RealPublisher {
	return &RealPublisher{
		client:     client,
		topics:     opts.Topics,
		maxPayload: opts.MaxPayload,
		commands:   make(chan Command, commandBacklog),
		now:        time.Now,
		outbox:     newOutbox(opts.BufferSize),
	}
}

// onConnect runs on every (re)connection: it subscribes to the unlock topic,
// replays the outbox and announces reconnects.
// The replay holds mu, so publishes made meanwhile wait and go out after
// the older buffered messages.
func (p *RealPublisher) onConnect(c paho.Client) {
	token := c.Subscribe(p.topics.Unlock, 1, p.onMessage)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("mqtt: subscribe %s: timeout", p.topics.Unlock)
	} else if err := token.Error(); err != nil {
		log.Printf("mqtt: subscribe %s: %v", p.topics.Unlock, err)
	}

	p.mu.Lock()
	pending, dropped := p.outbox.drain()
	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages (%d dropped)", len(pending), dropped)
	}
	for _, m := range pending {
		if err := p.send(m); err != nil {
			log.Printf("mqtt: replay to %s: %v", m.topic, err)
		}
	}
	p.online = true
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		if err := p.send(outboxMsg{topic: p.topics.System, payload: payload, qos: 1}); err != nil {
			log.Printf("mqtt: publish reconnect: %v", err)
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	log.Printf("mqtt: connection lost: %v", err)
	p.mu.Lock()
	p.online = false
	p.mu.Unlock()
}

// onMessage hands an unlock command to the run loop. It never blocks the
// paho router: when the loop is behind, the command is dropped.
func (p *RealPublisher) onMessage(_ paho.Client, msg paho.Message) {
	cmd := Command{
		Payload:  TruncateCommand(msg.Payload(), p.maxPayload),
		Received: p.now(),
	}
	select {
	case p.commands <- cmd:
	default:
		log.Printf("mqtt: command backlog full, dropping unlock request")
	}
}

// Commands returns the channel of received unlock requests.
func (p *RealPublisher) Commands() <-chan Command {
	return p.commands
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// PublishState sends the lock state, retained so new subscribers see it.
func (p *RealPublisher) PublishState(event StateEvent) error {
	payload, err := FormatStatePayload(event)
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	return p.publish(outboxMsg{topic: p.topics.State, payload: payload, qos: 1, retained: true})
}

// PublishLog sends each chunk in order on the log topic.
func (p *RealPublisher) PublishLog(chunks []string) error {
	for i, chunk := range chunks {
		if err := p.publish(outboxMsg{topic: p.topics.Log, payload: []byte(chunk), qos: 1}); err != nil {
			return fmt.Errorf("log chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(outboxMsg{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	p.online = false
	p.mu.Unlock()
	p.client.Disconnect(1000) // 1 second grace
	return nil
}

// publish sends m, or buffers it until the next onConnect while offline.
func (p *RealPublisher) publish(m outboxMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.online {
		p.outbox.push(m)
		return nil
	}
	return p.send(m)
}

func (p *RealPublisher) send(m outboxMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}
