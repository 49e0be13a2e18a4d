// Package timesvc configures the device clock through the platform's NTP support and prints the local time.
package timesvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// LocalTimeLayout renders as " DD Month YYYY HH:MM:SS ".
const LocalTimeLayout = " 02 January 2006 15:04:05 "

var ErrSyncTimeout = errors.New("timesvc: clock did not sync before timeout")

// Platform is the device's time subsystem.
type Platform interface {
	// ConfigTime applies the timezone rule and starts an asynchronous NTP sync against server. It must not wait for
	// the sync to finish.
	ConfigTime(tz, server string) error
	// Now returns the device clock in the configured local zone.
	Now() time.Time
}

// Console receives human-readable diagnostics. *textbuf.Buffer satisfies it.
type Console interface {
	Print(s string) error
	Println(s string) error
}

type State int

const (
	Unconfigured State = iota
	Configured
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Service struct {
	platform Platform
	console  Console
	sleep    func(ctx context.Context, d time.Duration) error

	pollInterval time.Duration
	syncTimeout  time.Duration
	sentinel     int64

	mu        sync.Mutex
	timezone  string
	ntpServer string
	state     State
}

func New(cfg Config, platform Platform, console Console) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		platform:     platform,
		console:      console,
		sleep:        sleepContext,
		pollInterval: cfg.PollInterval,
		syncTimeout:  cfg.SyncTimeout,
		sentinel:     cfg.Sentinel,
		timezone:     cfg.Timezone,
		ntpServer:    cfg.NTPServer,
	}
}

func (s *Service) Timezone() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timezone
}

func (s *Service) NTPServer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ntpServer
}

// SetNTPServer changes the server used by the next Configure or Refresh.
func (s *Service) SetNTPServer(server string) {
	s.mu.Lock()
	s.ntpServer = server
	s.mu.Unlock()
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Synced reports whether the clock is currently past the sentinel.
func (s *Service) Synced() bool {
	return s.platform.Now().Unix() > s.sentinel
}

// Configure stores tz, hands it to the platform together with the NTP server and blocks until the clock has moved
// past the sentinel. It gives up with ErrSyncTimeout once the configured timeout elapses, or with ctx.Err() when ctx
// is done. A negative timeout and a context that is never cancelled wait forever.
func (s *Service) Configure(ctx context.Context, tz string) error {
	s.mu.Lock()
	s.timezone = tz
	server := s.ntpServer
	s.mu.Unlock()

	_ = s.console.Println("timesvc: config timezone " + tz)
	if err := s.platform.ConfigTime(tz, server); err != nil {
		return fmt.Errorf("config time %q via %s: %w", tz, server, err)
	}

	wait := ctx
	if s.syncTimeout > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithTimeout(ctx, s.syncTimeout)
		defer cancel()
	}

	for !s.Synced() {
		_ = s.console.Print(".")
		if err := s.sleep(wait, s.pollInterval); err != nil {
			_ = s.console.Println("")
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w after %s", ErrSyncTimeout, s.syncTimeout)
		}
	}

	s.mu.Lock()
	s.state = Configured
	s.mu.Unlock()

	_ = s.console.Println("")
	_ = s.console.Println("timesvc: config timezone " + tz + " success")
	s.PrintLocalTime()
	return nil
}

// Refresh asks the platform to sync again with the stored timezone and server. It does not wait for the result.
func (s *Service) Refresh() error {
	s.mu.Lock()
	tz, server := s.timezone, s.ntpServer
	s.mu.Unlock()

	if err := s.platform.ConfigTime(tz, server); err != nil {
		return fmt.Errorf("config time %q via %s: %w", tz, server, err)
	}
	_ = s.console.Println("timesvc: update time. Time will be updated soon. It takes a few seconds until the server responds")
	return nil
}

func (s *Service) LocalTime() string {
	return s.platform.Now().Format(LocalTimeLayout)
}

func (s *Service) PrintLocalTime() {
	_ = s.console.Println("timesvc: local time: " + s.LocalTime())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
