package timer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrCoordinatorStopped is returned by calls made after Run has returned.
var ErrCoordinatorStopped = errors.New("timer coordinator stopped")

// Clock is the time source the coordinator reads and ticks from.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// Observer receives every published snapshot. Notify is called from the
// coordinator's loop and must neither block nor call back into the
// Coordinator.
type Observer interface {
	Notify(snapshot Snapshot)
}

// CommandType names a state-mutating command.
type CommandType string

const (
	CommandStart          CommandType = "start"
	CommandPause          CommandType = "pause"
	CommandResume         CommandType = "resume"
	CommandReset          CommandType = "reset"
	CommandUpdateSettings CommandType = "updateSettings"
)

// Command is one request to mutate the timer. Settings is only read by
// CommandStart and CommandUpdateSettings.
type Command struct {
	Type     CommandType
	Settings Settings
}

// Result is the outcome of a command. Applied is false when the command
// was an invalid transition and nothing was published.
type Result struct {
	Snapshot Snapshot
	Applied  bool
}

// Config holds coordinator configuration.
type Config struct {
	Clock        Clock
	TickInterval time.Duration
	Defaults     Defaults
}

// DefaultConfig returns a real-clock, one-second-tick configuration.
func DefaultConfig() Config {
	return Config{
		Clock:        clockwork.NewRealClock(),
		TickInterval: DefaultTickInterval,
		Defaults:     DefaultDefaults(),
	}
}

// Coordinator owns the timer state for a single room. All reads and
// mutations are serialized through the goroutine running Run.
type Coordinator struct {
	clock        Clock
	tickInterval time.Duration

	state     State
	observers map[Observer]struct{}

	requests chan func()
	stopped  chan struct{}
	running  atomic.Bool
}

// NewCoordinator creates a coordinator holding a fresh stopped state.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &Coordinator{
		clock:        cfg.Clock,
		tickInterval: cfg.TickInterval,
		state:        NewState(cfg.Defaults),
		observers:    make(map[Observer]struct{}),
		requests:     make(chan func()),
		stopped:      make(chan struct{}),
	}
}

// Run processes commands and ticks until ctx is cancelled. It may only be
// called once.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("timer coordinator already running")
	}
	defer close(c.stopped)

	ticker := c.clock.NewTicker(c.tickInterval)
	defer ticker.Stop()

	log.Info().Dur("tick_interval", c.tickInterval).Msg("timer coordinator started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer coordinator shutting down")
			return nil
		case fn := <-c.requests:
			fn()
		case <-ticker.Chan():
			c.tick()
		}
	}
}

// Dispatch applies cmd and, if it changed anything, publishes the new
// snapshot to every observer before returning.
func (c *Coordinator) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	var res Result
	err := c.do(ctx, func() { res = c.apply(cmd) })
	return res, err
}

// Start begins a fresh run.
func (c *Coordinator) Start(ctx context.Context, opts Settings) (Result, error) {
	return c.Dispatch(ctx, Command{Type: CommandStart, Settings: opts})
}

// Pause freezes a running timer.
func (c *Coordinator) Pause(ctx context.Context) (Result, error) {
	return c.Dispatch(ctx, Command{Type: CommandPause})
}

// Resume continues a paused timer.
func (c *Coordinator) Resume(ctx context.Context) (Result, error) {
	return c.Dispatch(ctx, Command{Type: CommandResume})
}

// Reset stops the timer and clears run bookkeeping.
func (c *Coordinator) Reset(ctx context.Context) (Result, error) {
	return c.Dispatch(ctx, Command{Type: CommandReset})
}

// UpdateSettings applies a partial settings update.
func (c *Coordinator) UpdateSettings(ctx context.Context, opts Settings) (Result, error) {
	return c.Dispatch(ctx, Command{Type: CommandUpdateSettings, Settings: opts})
}

// Subscribe registers obs and immediately hands it the current snapshot.
func (c *Coordinator) Subscribe(ctx context.Context, obs Observer) error {
	return c.do(ctx, func() {
		c.observers[obs] = struct{}{}
		obs.Notify(c.state.Clone())
	})
}

// Unsubscribe removes obs. It has no effect on the timer.
func (c *Coordinator) Unsubscribe(ctx context.Context, obs Observer) error {
	return c.do(ctx, func() {
		delete(c.observers, obs)
	})
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func() { snap = c.state.Clone() })
	return snap, err
}

// Now returns the coordinator's clock reading.
func (c *Coordinator) Now() time.Time {
	return c.clock.Now()
}

// do hands fn to the run loop and waits for it to complete. Once the loop
// has accepted fn it always runs it to completion.
func (c *Coordinator) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	req := func() {
		defer close(done)
		fn()
	}
	select {
	case c.requests <- req:
	case <-c.stopped:
		return ErrCoordinatorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

func (c *Coordinator) apply(cmd Command) Result {
	now := c.clock.Now()

	var applied bool
	switch cmd.Type {
	case CommandStart:
		applied = c.state.Start(cmd.Settings, now)
	case CommandPause:
		applied = c.state.Pause(now)
	case CommandResume:
		applied = c.state.Resume(now)
	case CommandReset:
		applied = c.state.Reset()
	case CommandUpdateSettings:
		applied = c.state.UpdateSettings(cmd.Settings, now)
	default:
		log.Debug().Str("command", string(cmd.Type)).Msg("unknown timer command ignored")
	}

	snap := c.state.Clone()
	if !applied {
		log.Debug().
			Str("command", string(cmd.Type)).
			Str("mode", string(snap.Mode)).
			Msg("timer command not applicable in current mode")
		return Result{Snapshot: snap}
	}

	log.Debug().
		Str("command", string(cmd.Type)).
		Str("mode", string(snap.Mode)).
		Int64("duration_ms", snap.DurationMs).
		Float64("speed", snap.Speed).
		Msg("timer command applied")

	c.publish(snap)
	return Result{Snapshot: snap, Applied: true}
}

func (c *Coordinator) tick() {
	if c.state.Mode != ModeRunning {
		return
	}
	c.publish(c.state.Clone())
}

func (c *Coordinator) publish(snap Snapshot) {
	for obs := range c.observers {
		obs.Notify(snap.Clone())
	}
}
