// Package publish mirrors tracking state to MQTT.
package publish

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/hold"
	"github.com/ayusman/holdfast/internal/route"
	"github.com/ayusman/holdfast/internal/tracker"
)

// DefaultPrefix is the topic prefix when none is configured.
const DefaultPrefix = "holdfast"

// publishTimeout bounds how long a publish may hold up the tracking loop.
const publishTimeout = 2 * time.Second

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Connect creates a client for opts and starts connecting in the
// background. An empty broker disables MQTT and returns a nil client.
func Connect(opts Options, logger *zap.Logger) mqtt.Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Broker == "" {
		logger.Info("MQTT disabled: no broker configured")
		return nil
	}

	clientID := opts.ClientID
	if clientID == "" {
		clientID = DefaultPrefix
	}

	o := mqtt.NewClientOptions()
	o.AddBroker(opts.Broker)
	o.SetClientID(clientID)
	if opts.Username != "" {
		o.SetUsername(opts.Username)
		o.SetPassword(opts.Password)
	}

	o.SetAutoReconnect(true)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(5 * time.Second)
	o.SetMaxReconnectInterval(60 * time.Second)
	o.SetKeepAlive(60 * time.Second)
	o.SetPingTimeout(10 * time.Second)
	o.SetOrderMatters(false)

	o.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("connected to MQTT broker", zap.String("broker", opts.Broker))
	})
	o.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(o)
	client.Connect()
	return client
}

// GrabMessage is published on <prefix>/grab for every new grab.
type GrabMessage struct {
	SessionID string         `json:"session_id"`
	Route     route.Label    `json:"route"`
	Frame     uint64         `json:"frame"`
	Time      time.Time      `json:"time"`
	Limb      detector.Limb  `json:"limb"`
	Hold      hold.Detection `json:"hold"`
	Distance  float64        `json:"distance"`
	Grabbed   int            `json:"grabbed"`
	Total     int            `json:"total"`
}

// Publisher publishes snapshots as retained JSON. With a nil or
// disconnected client every publish is skipped.
type Publisher struct {
	client mqtt.Client
	prefix string
	qos    byte
	retain bool
	logger *zap.Logger

	mu        sync.Mutex
	published uint64
}

// NewPublisher creates a Publisher writing under prefix.
func NewPublisher(client mqtt.Client, prefix string, logger *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client: client,
		prefix: prefix,
		qos:    0,
		retain: true,
		logger: logger,
	}
}

// Topic returns the full topic for name.
func (p *Publisher) Topic(name string) string {
	return fmt.Sprintf("%s/%s", p.prefix, name)
}

// Enabled reports whether publishes will be attempted.
func (p *Publisher) Enabled() bool {
	return p.client != nil && p.client.IsConnected()
}

// Published returns how many messages were sent successfully.
func (p *Publisher) Published() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}

// Observe publishes the snapshot state and any grabs it contains. Errors
// are logged; tracking never waits on the broker beyond publishTimeout.
func (p *Publisher) Observe(snap *tracker.Snapshot) {
	if snap == nil || !p.Enabled() {
		return
	}

	if err := p.PublishState(snap); err != nil {
		p.logger.Warn("publish state", zap.Error(err))
	}
	for _, r := range snap.NewGrabs() {
		if err := p.PublishGrab(snap, r); err != nil {
			p.logger.Warn("publish grab", zap.Error(err), zap.String("limb", string(r.Limb)))
		}
	}
}

// PublishState publishes snap to <prefix>/state.
func (p *Publisher) PublishState(snap *tracker.Snapshot) error {
	return p.publishJSON("state", snap)
}

// PublishGrab publishes one grab result to <prefix>/grab.
func (p *Publisher) PublishGrab(snap *tracker.Snapshot, r tracker.Result) error {
	if r.Target == nil {
		return fmt.Errorf("grab for %s has no hold", r.Limb)
	}
	return p.publishJSON("grab", GrabMessage{
		SessionID: snap.SessionID,
		Route:     snap.Route,
		Frame:     snap.Frame,
		Time:      snap.Time,
		Limb:      r.Limb,
		Hold:      *r.Target,
		Distance:  r.Distance,
		Grabbed:   len(snap.Grabbed),
		Total:     snap.RouteHolds,
	})
}

// PublishRoutes publishes the classified routes to <prefix>/routes.
func (p *Publisher) PublishRoutes(routes *route.Routes) error {
	if !p.Enabled() {
		return nil
	}
	return p.publishJSON("routes", routes)
}

func (p *Publisher) publishJSON(name string, v any) error {
	if !p.Enabled() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	topic := p.Topic(name)
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()
	return nil
}

// Close disconnects the client, if any.
func (p *Publisher) Close() error {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}
