package dashboard

import (
	"log/slog"
	"sync"
	"time"

	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"

	"github.com/coder/quartz"
	"golang.org/x/time/rate"
)

// View is whatever renders the dashboard. Calls are serialized by the
// pipeline, so implementations need no locking of their own.
type View interface {
	Apply(message Message)
	// ApplyWatches receives every watch update of one drain at once,
	// keeping only the latest value per name.
	ApplyWatches(watches map[string]rooms.Watch)
	SetBacklogged(backlogged bool)
}

// Pipeline decouples message arrival from rendering. Control-like messages
// are applied on receipt; data messages are queued and drained in bounded
// batches on the next frame.
type Pipeline struct {
	clock  quartz.Clock
	view   View
	logger *slog.Logger

	mu         sync.Mutex
	queue      []Message
	drainTimer *quartz.Timer
	backlogged bool
	generation uint64

	applyMu         sync.Mutex
	reportedBacklog bool // guarded by applyMu

	backlogWarning rate.Sometimes
}

func NewPipeline(clock quartz.Clock, view View, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		clock:          clock,
		view:           view,
		logger:         logger,
		backlogWarning: rate.Sometimes{Interval: 5 * time.Second},
	}
}

func (p *Pipeline) Push(message Message) {
	if isBypass(message.Type) {
		p.applyMu.Lock()
		p.view.Apply(message)
		p.applyMu.Unlock()
		return
	}

	p.mu.Lock()
	p.queue = append(p.queue, message)
	raised := !p.backlogged && len(p.queue) > BacklogHighWater
	if raised {
		p.backlogged = true
	}
	depth := len(p.queue)
	p.scheduleDrainLocked()
	p.mu.Unlock()

	if raised {
		p.backlogWarning.Do(func() {
			p.logger.Warn("dashboard is falling behind", slog.Int("queueDepth", depth))
		})
		p.publishBacklog()
	}
}

func (p *Pipeline) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.queue)
}

func (p *Pipeline) IsBacklogged() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.backlogged
}

// Reset discards queued messages and cancels the pending drain. A drain
// already running stops at its next message.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.generation++
	discarded := len(p.queue)
	p.queue = nil
	if p.drainTimer != nil {
		p.drainTimer.Stop()
		p.drainTimer = nil
	}
	p.backlogged = false
	p.mu.Unlock()

	if discarded > 0 {
		p.logger.Debug("discarded queued messages", slog.Int("count", discarded))
	}
	p.publishBacklog()
}

func (p *Pipeline) scheduleDrainLocked() {
	if p.drainTimer != nil {
		return
	}

	generation := p.generation
	p.drainTimer = p.clock.AfterFunc(FrameInterval, func() {
		p.drain(generation)
	}, "pipeline", "drain")
}

func (p *Pipeline) drain(generation uint64) {
	p.applyMu.Lock()

	startedAt := p.clock.Now()
	watches := make(map[string]rooms.Watch)
	processed := 0

	for processed < MaxMessagesPerDrain && p.clock.Since(startedAt) < DrainBudget {
		message, ok := p.pop(generation)
		if !ok {
			break
		}
		processed++

		switch message.Type {
		case realtime.MessageTypeWatch:
			var payload realtime.WatchPayload
			if err := message.Decode(&payload); err != nil {
				p.logger.Warn("dropping malformed watch", slog.String("error", err.Error()))
				continue
			}
			watches[payload.Watch.Name] = payload.Watch
		case realtime.MessageTypeWatches:
			var payload realtime.WatchesPayload
			if err := message.Decode(&payload); err != nil {
				p.logger.Warn("dropping malformed watches", slog.String("error", err.Error()))
				continue
			}
			for name, watch := range payload.Watches {
				watches[name] = watch
			}
		default:
			p.view.Apply(message)
		}
	}

	if len(watches) > 0 {
		p.view.ApplyWatches(watches)
	}
	p.applyMu.Unlock()

	p.mu.Lock()
	if generation != p.generation {
		p.mu.Unlock()
		return
	}
	p.drainTimer = nil
	if p.backlogged && len(p.queue) < BacklogLowWater {
		p.backlogged = false
	}
	if len(p.queue) > 0 {
		p.scheduleDrainLocked()
	}
	p.mu.Unlock()

	p.publishBacklog()
}

func (p *Pipeline) pop(generation uint64) (Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != p.generation || len(p.queue) == 0 {
		return Message{}, false
	}

	message := p.queue[0]
	p.queue[0] = Message{}
	p.queue = p.queue[1:]
	if len(p.queue) == 0 {
		p.queue = nil
	}

	return message, true
}

// publishBacklog reports the current backlog flag to the view when it
// differs from what the view last saw.
func (p *Pipeline) publishBacklog() {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	p.mu.Lock()
	backlogged := p.backlogged
	p.mu.Unlock()

	if backlogged == p.reportedBacklog {
		return
	}
	p.reportedBacklog = backlogged
	p.view.SetBacklogged(backlogged)
}
