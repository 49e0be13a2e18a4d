// Package platform is the device side of time keeping: it owns the clock, applies timezone rules and keeps the clock
// in step with an NTP server in the background.
package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ajanata/timesvc/internal/filter"
	"github.com/ajanata/timesvc/internal/ntp"
	"github.com/ajanata/timesvc/internal/tz"
)

const (
	defaultBackoffInitial = 5 * time.Second
	defaultBackoffMax     = 5 * time.Minute
	smoothingWindow       = 8
)

var ErrClosed = errors.New("platform: closed")

// Logger is satisfied by *zap.SugaredLogger.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
}

// deviceClock is the raw clock before timezone rules are applied.
type deviceClock interface {
	Now() time.Time
	// Step moves the clock so that it reads time.Now() plus offset.
	Step(offset time.Duration)
}

type Health struct {
	Synced    bool
	Offset    time.Duration
	Smoothed  time.Duration
	LastSync  time.Time
	LastError error
}

type Platform struct {
	querier        ntp.Querier
	clock          deviceClock
	log            Logger
	backoffInitial time.Duration
	backoffMax     time.Duration

	wg sync.WaitGroup

	mu       sync.Mutex
	loc      *time.Location
	cancel   context.CancelFunc
	closed   bool
	smoother *filter.Kalman
	health   Health
}

type Option func(*Platform)

func WithLogger(l Logger) Option {
	return func(p *Platform) { p.log = l }
}

// WithBackoff bounds the wait between failed queries. The wait doubles after every failure.
func WithBackoff(initial, maxWait time.Duration) Option {
	return func(p *Platform) {
		p.backoffInitial = initial
		p.backoffMax = maxWait
	}
}

func New(querier ntp.Querier, opts ...Option) *Platform {
	p := &Platform{
		querier:        querier,
		clock:          newDeviceClock(),
		log:            nopLogger{},
		backoffInitial: defaultBackoffInitial,
		backoffMax:     defaultBackoffMax,
		loc:            time.UTC,
		smoother:       filter.NewKalman(smoothingWindow),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ConfigTime applies the timezone rule and starts syncing against server in the background, replacing any sync still
// in progress. A rule that cannot be resolved falls back to UTC.
func (p *Platform) ConfigTime(rule, server string) error {
	loc, err := tz.Load(rule)
	if err != nil {
		p.log.Warnw("unusable timezone, falling back to UTC", "tz", rule, "error", err)
		loc = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return ErrClosed
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.loc = loc
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	p.log.Debugw("starting time sync", "tz", rule, "server", server)
	go p.sync(ctx, server)
	return nil
}

func (p *Platform) Now() time.Time {
	p.mu.Lock()
	loc := p.loc
	p.mu.Unlock()
	return p.clock.Now().In(loc)
}

func (p *Platform) Location() *time.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loc
}

func (p *Platform) Health() Health {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.health
}

// Close stops any sync in progress and waits for it to exit.
func (p *Platform) Close() error {
	p.mu.Lock()
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

func (p *Platform) sync(ctx context.Context, server string) {
	defer p.wg.Done()

	backoff := p.backoffInitial
	for {
		offset, err := p.querier.Query(server)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			if p.apply(ctx, offset) {
				p.log.Infow("clock synced", "server", server, "offset", offset)
			}
			return
		}

		p.mu.Lock()
		p.health.LastError = err
		p.mu.Unlock()
		p.log.Warnw("time sync failed", "server", server, "error", err, "retry_in", backoff)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		backoff *= 2
		if backoff > p.backoffMax {
			backoff = p.backoffMax
		}
	}
}

// apply steps the clock unless ctx was cancelled by a newer ConfigTime or Close. ctx is checked under p.mu, which
// those hold while cancelling.
func (p *Platform) apply(ctx context.Context, offset time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	p.clock.Step(offset)
	smoothed := p.smoother.Filter(offset.Seconds())
	p.health = Health{
		Synced:   true,
		Offset:   offset,
		Smoothed: time.Duration(smoothed * float64(time.Second)),
		LastSync: p.clock.Now(),
	}
	return true
}

type nopLogger struct{}

func (nopLogger) Debugw(string, ...interface{}) {}
func (nopLogger) Infow(string, ...interface{})  {}
func (nopLogger) Warnw(string, ...interface{})  {}
