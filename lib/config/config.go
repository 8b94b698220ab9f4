// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muster-project/muster/lib/ref"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for muster.
type Config struct {
	// Environment identifies the deployment type (development, production).
	Environment Environment `yaml:"environment"`

	// Homeserver configures the Matrix connection.
	Homeserver HomeserverConfig `yaml:"homeserver"`

	// Events configures event creation and attendance tracking.
	Events EventsConfig `yaml:"events"`

	// Audit configures the attendance audit log.
	Audit AuditConfig `yaml:"audit"`

	// Automation configures which accounts are excluded from rosters.
	Automation AutomationConfig `yaml:"automation"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Per-environment overrides, applied after the base config is
	// loaded when Environment matches the section name.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Homeserver *HomeserverConfig `yaml:"homeserver,omitempty"`
	Events     *EventsConfig     `yaml:"events,omitempty"`
	Audit      *AuditConfig      `yaml:"audit,omitempty"`
	Paths      *PathsConfig      `yaml:"paths,omitempty"`
}

// HomeserverConfig configures the Matrix connection.
type HomeserverConfig struct {
	// URL is the homeserver base URL (e.g. "https://matrix.muster.chat").
	URL string `yaml:"url"`

	// UserID is the bot's full Matrix user ID
	// (e.g. "@bot/muster:muster.chat").
	UserID string `yaml:"user_id"`

	// AccessTokenFile is the path to a file containing the bot's
	// access token. The file should contain only the token, optionally
	// followed by a trailing newline.
	AccessTokenFile string `yaml:"access_token_file"`
}

// EventsConfig configures event creation and attendance tracking.
type EventsConfig struct {
	// Timezone is the IANA timezone name used for displaying event
	// times in notices. Default: Europe/Berlin.
	Timezone string `yaml:"timezone"`

	// CommandPrefix is the message prefix that triggers event
	// creation. Default: "!add-event".
	CommandPrefix string `yaml:"command_prefix"`

	// Markers names the two reaction shortcodes members attach to
	// vote on attendance.
	Markers MarkersConfig `yaml:"markers"`
}

// MarkersConfig names the attendance reaction shortcodes.
type MarkersConfig struct {
	// Accepted is the shortcode for signing up. Default: "accepted".
	Accepted string `yaml:"accepted"`

	// Declined is the shortcode for declining. Default: "declined".
	Declined string `yaml:"declined"`
}

// AuditConfig configures the attendance audit log.
type AuditConfig struct {
	// RoomAlias is the full alias of the room that receives audit
	// entries (e.g. "#attendance-log:muster.chat").
	RoomAlias string `yaml:"room_alias"`
}

// AutomationConfig configures which accounts are excluded from rosters.
type AutomationConfig struct {
	// LocalpartPrefixes lists user-ID localpart prefixes that mark
	// automated accounts. Members whose localpart starts with any of
	// these prefixes never appear in a roster. The bot's own account
	// is always excluded regardless of this list. Default: ["bot/"].
	LocalpartPrefixes []string `yaml:"localpart_prefixes"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// State is where runtime state (the sync token) is stored.
	State string `yaml:"state"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file. They exist primarily to
// ensure all fields have sensible zero-values, not as a fallback; the
// config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultState := filepath.Join(homeDir, ".local", "state", "muster")

	return &Config{
		Environment: Development,
		Events: EventsConfig{
			Timezone:      "Europe/Berlin",
			CommandPrefix: "!add-event",
			Markers: MarkersConfig{
				Accepted: "accepted",
				Declined: "declined",
			},
		},
		Automation: AutomationConfig{
			LocalpartPrefixes: []string{"bot/"},
		},
		Paths: PathsConfig{
			State: defaultState,
		},
	}
}

// Load loads configuration from the MUSTER_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults; if MUSTER_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("MUSTER_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("MUSTER_CONFIG environment variable not set; " +
			"set it to the path of your muster.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Homeserver != nil {
		if overrides.Homeserver.URL != "" {
			c.Homeserver.URL = overrides.Homeserver.URL
		}
		if overrides.Homeserver.UserID != "" {
			c.Homeserver.UserID = overrides.Homeserver.UserID
		}
		if overrides.Homeserver.AccessTokenFile != "" {
			c.Homeserver.AccessTokenFile = overrides.Homeserver.AccessTokenFile
		}
	}

	if overrides.Events != nil {
		if overrides.Events.Timezone != "" {
			c.Events.Timezone = overrides.Events.Timezone
		}
		if overrides.Events.CommandPrefix != "" {
			c.Events.CommandPrefix = overrides.Events.CommandPrefix
		}
		if overrides.Events.Markers.Accepted != "" {
			c.Events.Markers.Accepted = overrides.Events.Markers.Accepted
		}
		if overrides.Events.Markers.Declined != "" {
			c.Events.Markers.Declined = overrides.Events.Markers.Declined
		}
	}

	if overrides.Audit != nil {
		if overrides.Audit.RoomAlias != "" {
			c.Audit.RoomAlias = overrides.Audit.RoomAlias
		}
	}

	if overrides.Paths != nil {
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Homeserver.AccessTokenFile = expandVars(c.Homeserver.AccessTokenFile, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together rather than one at a time.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Homeserver.URL == "" {
		errs = append(errs, fmt.Errorf("homeserver.url is required"))
	} else if !strings.HasPrefix(c.Homeserver.URL, "http://") && !strings.HasPrefix(c.Homeserver.URL, "https://") {
		errs = append(errs, fmt.Errorf("homeserver.url must start with http:// or https://: %q", c.Homeserver.URL))
	}

	if c.Homeserver.UserID == "" {
		errs = append(errs, fmt.Errorf("homeserver.user_id is required"))
	} else if _, err := ref.ParseUserID(c.Homeserver.UserID); err != nil {
		errs = append(errs, fmt.Errorf("homeserver.user_id: %w", err))
	}

	if c.Homeserver.AccessTokenFile == "" {
		errs = append(errs, fmt.Errorf("homeserver.access_token_file is required"))
	}

	if c.Events.Timezone == "" {
		errs = append(errs, fmt.Errorf("events.timezone is required"))
	} else if _, err := time.LoadLocation(c.Events.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("events.timezone: %w", err))
	}

	if c.Events.CommandPrefix == "" {
		errs = append(errs, fmt.Errorf("events.command_prefix is required"))
	}

	if c.Events.Markers.Accepted == "" {
		errs = append(errs, fmt.Errorf("events.markers.accepted is required"))
	}
	if c.Events.Markers.Declined == "" {
		errs = append(errs, fmt.Errorf("events.markers.declined is required"))
	}
	if c.Events.Markers.Accepted != "" && c.Events.Markers.Accepted == c.Events.Markers.Declined {
		errs = append(errs, fmt.Errorf("events.markers.accepted and events.markers.declined must differ"))
	}

	if c.Audit.RoomAlias == "" {
		errs = append(errs, fmt.Errorf("audit.room_alias is required"))
	} else if _, err := ref.ParseRoomAlias(c.Audit.RoomAlias); err != nil {
		errs = append(errs, fmt.Errorf("audit.room_alias: %w", err))
	}

	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}

	return errors.Join(errs...)
}

// AccessToken reads the bot's access token from the configured token
// file, trimming trailing whitespace.
func (c *Config) AccessToken() (string, error) {
	data, err := os.ReadFile(c.Homeserver.AccessTokenFile)
	if err != nil {
		return "", fmt.Errorf("config: reading access token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("config: access token file %s is empty", c.Homeserver.AccessTokenFile)
	}
	return token, nil
}
