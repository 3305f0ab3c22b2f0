package control

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"doorsync/command"
	"doorsync/indicator"
	"doorsync/logger"
)

// StateClient exchanges the command record with the remote service.
type StateClient interface {
	Fetch(ctx context.Context) (command.Record, error)
	Push(ctx context.Context, rec command.Record) error
}

// Mover moves the door.
type Mover interface {
	MoveDoor(ctx context.Context, dir command.Direction, d time.Duration) error
}

// Session is the part of the network session the loop needs.
type Session interface {
	IsConnected() bool
	Reconnect(ctx context.Context) error
}

// Signaler shows diagnostic events.
type Signaler interface {
	Signal(ctx context.Context, ev indicator.Event)
}

// Deps are the collaborators owned by the loop.
type Deps struct {
	Session Session
	Client  StateClient
	Door    Mover
	Signal  Signaler
}

// RetryConfig bounds the report retry. Unbounded ignores MaxAttempts and
// retries until acknowledged or the process stops.
type RetryConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	MaxAttempts     uint          `yaml:"max_attempts"`
	Unbounded       bool          `yaml:"unbounded"`
}

// Config holds loop timing.
type Config struct {
	Period         time.Duration `yaml:"period"`
	ReconnectTicks int           `yaml:"reconnect_ticks"`
	SyncExecuted   bool          `yaml:"sync_executed"`
	Retry          RetryConfig   `yaml:"retry"`
}

// Defaults fills in zero values.
func (c Config) Defaults() Config {
	if c.Period <= 0 {
		c.Period = 60 * time.Second
	}
	if c.ReconnectTicks <= 0 {
		c.ReconnectTicks = 720
	}
	if c.Retry.InitialInterval <= 0 {
		c.Retry.InitialInterval = time.Second
	}
	if c.Retry.MaxInterval <= 0 {
		c.Retry.MaxInterval = time.Minute
	}
	if c.Retry.MaxAttempts == 0 && !c.Retry.Unbounded {
		c.Retry.MaxAttempts = 10
	}
	return c
}

// Outcome is how a tick ended.
type Outcome int

const (
	Offline Outcome = iota
	FetchFailed
	AlreadyExecuted
	Synced
	SyncFailed
	ActuationFailed
	Reported
	ReportDeferred
)

func (o Outcome) String() string {
	switch o {
	case Offline:
		return "offline"
	case FetchFailed:
		return "fetch_failed"
	case AlreadyExecuted:
		return "already_executed"
	case Synced:
		return "synced"
	case SyncFailed:
		return "sync_failed"
	case ActuationFailed:
		return "actuation_failed"
	case Reported:
		return "reported"
	case ReportDeferred:
		return "report_deferred"
	default:
		return "unknown"
	}
}

// Loop polls the remote command, moves the door and reports back.
// It is not safe for concurrent use, apart from Kick.
type Loop struct {
	cfg  Config
	deps Deps
	log  *logger.Logger

	ticks   int
	pending *command.Record
	kick    chan struct{}
}

// New creates a Loop.
func New(cfg Config, deps Deps, log *logger.Logger) (*Loop, error) {
	if deps.Session == nil || deps.Client == nil || deps.Door == nil {
		return nil, errors.New("control: session, client and door are required")
	}
	if deps.Signal == nil {
		deps.Signal = indicator.Noop{}
	}
	return &Loop{
		cfg:  cfg.Defaults(),
		deps: deps,
		log:  log,
		kick: make(chan struct{}, 1),
	}, nil
}

// Kick asks Run to start the next tick now. Never blocks.
func (l *Loop) Kick() {
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

// Ticks returns the reconnect window counter.
func (l *Loop) Ticks() int { return l.ticks }

// Pending returns the update still waiting to be acknowledged, if any.
func (l *Loop) Pending() (command.Record, bool) {
	if l.pending == nil {
		return command.Record{}, false
	}
	return *l.pending, true
}

// Run ticks every period until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(l.cfg.Period)
	defer timer.Stop()

	for {
		out := l.Tick(ctx)
		l.log.Debugw("Tick done", "outcome", out, "ticks", l.ticks)

		timer.Reset(l.cfg.Period)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-l.kick:
			l.log.Infow("Early poll requested")
		}
	}
}

// Tick runs one iteration: reconnect window, connectivity gate, poll,
// act, report.
func (l *Loop) Tick(ctx context.Context) Outcome {
	l.reconnectWindow(ctx)

	if !l.deps.Session.IsConnected() {
		l.log.Infow("Waiting for network")
		l.signal(ctx, indicator.Waiting)
		return Offline
	}

	// An unacknowledged move is delivered before anything else; the remote
	// still says executed=0, so polling now would move the door again.
	if l.pending != nil {
		return l.deliver(ctx, *l.pending)
	}

	rec, err := l.deps.Client.Fetch(ctx)
	if err != nil {
		l.log.Warnw("Fetch failed", "class", Classify(err), "err", err)
		l.signal(ctx, fetchEvent(err))
		return FetchFailed
	}

	if rec.IsExecuted() {
		if !l.cfg.SyncExecuted {
			l.signal(ctx, indicator.Idle)
			return AlreadyExecuted
		}
		if err := l.deps.Client.Push(ctx, rec); err != nil {
			l.log.Warnw("Sync failed", "class", Classify(err), "err", err)
			l.signal(ctx, indicator.Retry)
			return SyncFailed
		}
		l.signal(ctx, indicator.Idle)
		return Synced
	}

	l.log.Infow("Moving door", "direction", rec.Direction(), "seconds", rec.Amount)
	l.signal(ctx, indicator.Executing)
	if err := l.deps.Door.MoveDoor(ctx, rec.Direction(), rec.Duration()); err != nil {
		l.log.Errorw("Move failed", "class", Classify(err), "err", err)
		l.signal(ctx, indicator.ActuationFailed)
		return ActuationFailed
	}

	rec.MarkExecuted()
	return l.deliver(ctx, rec)
}

func (l *Loop) deliver(ctx context.Context, rec command.Record) Outcome {
	if err := l.report(ctx, rec); err != nil {
		l.pending = &rec
		l.log.Errorw("Report deferred to next tick", "class", Classify(err), "err", err)
		l.signal(ctx, indicator.ReportDeferred)
		return ReportDeferred
	}
	l.pending = nil
	l.log.Infow("Reported", "record", rec)
	l.signal(ctx, indicator.Reported)
	return Reported
}

// report pushes rec until acknowledged, with exponential backoff between
// attempts.
func (l *Loop) report(ctx context.Context, rec command.Record) error {
	attempt := 0
	push := func() (struct{}, error) {
		attempt++
		err := l.deps.Client.Push(ctx, rec)
		if err != nil {
			l.log.Warnw("Report failed", "attempt", attempt, "class", Classify(err), "err", err)
			l.signal(ctx, indicator.Retry)
		}
		return struct{}{}, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.cfg.Retry.InitialInterval
	bo.MaxInterval = l.cfg.Retry.MaxInterval

	opts := []backoff.RetryOption{
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(0),
	}
	if !l.cfg.Retry.Unbounded {
		opts = append(opts, backoff.WithMaxTries(l.cfg.Retry.MaxAttempts))
	}
	_, err := backoff.Retry(ctx, push, opts...)
	return err
}

func (l *Loop) reconnectWindow(ctx context.Context) {
	l.ticks++
	if l.ticks < l.cfg.ReconnectTicks {
		return
	}
	l.ticks = 0

	l.log.Infow("Scheduled reconnect")
	l.signal(ctx, indicator.Reconnecting)
	if err := l.deps.Session.Reconnect(ctx); err != nil {
		l.log.Errorw("Scheduled reconnect failed", "err", err)
	}
}

func (l *Loop) signal(ctx context.Context, ev indicator.Event) {
	l.deps.Signal.Signal(ctx, ev)
}
