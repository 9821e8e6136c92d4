// Package config loads service settings from ADOPTRACK_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const Prefix = "ADOPTRACK"

const (
	ChannelLog   = "log"
	ChannelEmail = "email"
	ChannelPush  = "push"
)

type Config struct {
	Port         uint          `envconfig:"PORT" default:"8080"`
	DBPath       string        `envconfig:"DB_PATH" default:"adoptrack.db"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// Timezone decides which calendar day "today" is for trials and sweeps.
	Timezone          string        `envconfig:"TIMEZONE" default:"Local"`
	ComplianceAt      string        `envconfig:"COMPLIANCE_AT" default:"21:01"`
	CompletionAt      string        `envconfig:"COMPLETION_AT" default:"23:01"`
	ReportDeadline    string        `envconfig:"REPORT_DEADLINE" default:"21:00"`
	EscalateAfterDays int           `envconfig:"ESCALATE_AFTER_DAYS" default:"2"`
	TickInterval      time.Duration `envconfig:"TICK_INTERVAL" default:"30s"`

	Channel         string `envconfig:"NOTIFY_CHANNEL" default:"log"`
	ShelterName     string `envconfig:"SHELTER_NAME" default:"the shelter"`
	PostmarkToken   string `envconfig:"POSTMARK_TOKEN"`
	PostmarkFrom    string `envconfig:"POSTMARK_FROM"`
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string `envconfig:"VAPID_SUBSCRIBER" default:"mailto:shelter@example.com"`

	// StaffTokens maps a staff name to the bcrypt hash of their bearer token,
	// written as name:hash,name:hash.
	StaffTokens     map[string]string `envconfig:"STAFF_TOKENS"`
	AuthMaxFailures int               `envconfig:"AUTH_MAX_FAILURES" default:"5"`
	AuthWindow      time.Duration     `envconfig:"AUTH_WINDOW" default:"15m"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	for name, v := range map[string]string{
		"COMPLIANCE_AT":   c.ComplianceAt,
		"COMPLETION_AT":   c.CompletionAt,
		"REPORT_DEADLINE": c.ReportDeadline,
	} {
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("%s_%s: want HH:MM, got %q", Prefix, name, v)
		}
	}
	if c.EscalateAfterDays < 0 {
		return fmt.Errorf("%s_ESCALATE_AFTER_DAYS must not be negative", Prefix)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%s_TICK_INTERVAL must be positive", Prefix)
	}

	switch c.Channel {
	case ChannelLog:
	case ChannelEmail:
		if c.PostmarkToken == "" || c.PostmarkFrom == "" {
			return fmt.Errorf("email channel needs %s_POSTMARK_TOKEN and %s_POSTMARK_FROM", Prefix, Prefix)
		}
	case ChannelPush:
		if c.VAPIDPublicKey == "" || c.VAPIDPrivateKey == "" {
			return fmt.Errorf("push channel needs %s_VAPID_PUBLIC_KEY and %s_VAPID_PRIVATE_KEY", Prefix, Prefix)
		}
	default:
		return fmt.Errorf("%s_NOTIFY_CHANNEL: unknown channel %q", Prefix, c.Channel)
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s_TIMEZONE: %w", Prefix, err)
	}
	return loc, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
