package timesvc

import "time"

const (
	DefaultTimezone     = "UTC"
	DefaultNTPServer    = "pool.ntp.org"
	DefaultPollInterval = 500 * time.Millisecond
	DefaultSyncTimeout  = time.Minute

	// DefaultSentinel is the epoch second an unsynced device clock stays at or below. Boards whose clock does not
	// start at the Unix epoch need their own value.
	DefaultSentinel = 1000
)

// Config holds the settings of a Service. The zero value of a field means "use the default", except SyncTimeout,
// where a negative value disables the timeout entirely.
//
// Sentinel therefore cannot be 0. A clock that sits at 0 until synced is served by Sentinel 1, since no real sync
// lands in the first second after the epoch. A negative Sentinel is kept as given.
type Config struct {
	Timezone     string
	NTPServer    string
	PollInterval time.Duration
	SyncTimeout  time.Duration
	Sentinel     int64
}

func DefaultConfig() Config {
	return Config{
		Timezone:     DefaultTimezone,
		NTPServer:    DefaultNTPServer,
		PollInterval: DefaultPollInterval,
		SyncTimeout:  DefaultSyncTimeout,
		Sentinel:     DefaultSentinel,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.NTPServer == "" {
		c.NTPServer = d.NTPServer
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.SyncTimeout == 0 {
		c.SyncTimeout = d.SyncTimeout
	}
	if c.Sentinel == 0 {
		c.Sentinel = d.Sentinel
	}
	return c
}
