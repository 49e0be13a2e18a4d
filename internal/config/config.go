//go:build !tinygo

// Package config loads host settings from TIMESVC_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ajanata/timesvc/internal/log"
	"github.com/ajanata/timesvc/internal/timesvc"
)

const prefix = "timesvc"

type Settings struct {
	Timezone     string        `envconfig:"TIMEZONE" default:"UTC"`
	NTPServer    string        `envconfig:"NTP_SERVER" default:"pool.ntp.org"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"500ms"`
	// SyncTimeout below zero waits for the first sync forever.
	SyncTimeout  time.Duration `envconfig:"SYNC_TIMEOUT" default:"1m"`
	Sentinel     int64         `envconfig:"SENTINEL" default:"1000"`
	QueryTimeout time.Duration `envconfig:"QUERY_TIMEOUT" default:"5s"`

	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"1h"`
	PrintInterval   time.Duration `envconfig:"PRINT_INTERVAL" default:"1m"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`

	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process(prefix, &s); err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

func (s Settings) Service() timesvc.Config {
	return timesvc.Config{
		Timezone:     s.Timezone,
		NTPServer:    s.NTPServer,
		PollInterval: s.PollInterval,
		SyncTimeout:  s.SyncTimeout,
		Sentinel:     s.Sentinel,
	}
}

func (s Settings) Log() log.Config {
	return log.Config{Level: s.LogLevel, File: s.LogFile}
}
