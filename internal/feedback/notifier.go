package feedback

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/holdfast/internal/plugin"
)

// PlayAction is the plugin action that plays a tone sequence.
const PlayAction = "play"

// Notifier plays audio cues. Implementations must not block the caller.
type Notifier interface {
	Proximity(distance float64)
	Calibrated()
	Close() error
}

// Nop is a Notifier that stays silent.
type Nop struct{}

func (Nop) Proximity(float64) {}
func (Nop) Calibrated()       {}
func (Nop) Close() error      { return nil }

// Runner executes a plugin request. *plugin.Executor satisfies it.
type Runner interface {
	Execute(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error)
}

type playParams struct {
	Tones []Tone `json:"tones"`
}

// PluginNotifier sends tones to the tone plugin from a background
// goroutine. Only one sequence plays at a time; while it plays, newer
// sequences replace any that are still waiting.
type PluginNotifier struct {
	runner Runner
	plugin *plugin.Plugin
	logger *zap.Logger

	mu      sync.Mutex
	session string

	pending chan []Tone
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPluginNotifier starts a notifier that plays through p.
func NewPluginNotifier(runner Runner, p *plugin.Plugin, logger *zap.Logger) *PluginNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	n := &PluginNotifier{
		runner:  runner,
		plugin:  p,
		logger:  logger.With(zap.String("plugin", p.Manifest.Name)),
		pending: make(chan []Tone, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

// SetSession tags subsequent requests with a climb session ID.
func (n *PluginNotifier) SetSession(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.session = id
}

// Proximity queues a proximity tone for distance.
func (n *PluginNotifier) Proximity(distance float64) {
	n.enqueue([]Tone{ProximityTone(distance)})
}

// Calibrated queues the calibration chime.
func (n *PluginNotifier) Calibrated() {
	n.enqueue(CalibratedChime())
}

// enqueue replaces whatever is waiting with tones.
func (n *PluginNotifier) enqueue(tones []Tone) {
	if n.ctx.Err() != nil {
		return
	}
	for {
		select {
		case n.pending <- tones:
			return
		default:
		}
		select {
		case <-n.pending:
		default:
		}
	}
}

func (n *PluginNotifier) run() {
	defer close(n.done)
	for {
		select {
		case <-n.ctx.Done():
			return
		case tones := <-n.pending:
			n.play(tones)
		}
	}
}

func (n *PluginNotifier) play(tones []Tone) {
	params, err := json.Marshal(playParams{Tones: tones})
	if err != nil {
		n.logger.Error("encode tones", zap.Error(err))
		return
	}

	n.mu.Lock()
	session := n.session
	n.mu.Unlock()

	resp, err := n.runner.Execute(n.ctx, n.plugin, &plugin.Request{
		Action:  PlayAction,
		Session: session,
		Params:  params,
	})
	if err != nil {
		if n.ctx.Err() == nil {
			n.logger.Warn("tone plugin failed", zap.Error(err))
		}
		return
	}
	if !resp.Success {
		n.logger.Warn("tone plugin rejected request", zap.String("error", resp.Error))
	}
}

// Close stops the notifier and waits for any playing tone to finish or be
// cancelled.
func (n *PluginNotifier) Close() error {
	n.cancel()
	<-n.done
	return nil
}
