// Package config loads release check settings from the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"

	"github.com/git-pkgs/releasecheck/client"
)

const (
	KeyTimeout         = "timeout"
	KeyAllowPreRelease = "allow-prerelease"
	KeyStrictTags      = "strict-tags"
	KeyUserAgent       = "user-agent"
	KeyToken           = "token"
	KeyHost            = "host"
	KeyBaseURL         = "base-url"
	KeyConstraint      = "constraint"
	KeyMaxRetries      = "max-retries"
)

const (
	DefaultTimeout   = client.DefaultTimeout
	DefaultUserAgent = client.DefaultUserAgent
	DefaultHost      = "github"

	envPrefix = "RELEASECHECK"
)

// Settings is the resolved configuration for a checker and its client.
type Settings struct {
	Timeout         time.Duration
	AllowPreRelease bool
	StrictTags      bool
	UserAgent       string
	Token           string
	Host            string
	BaseURL         string
	Constraint      string
	MaxRetries      int
}

type loadSettings struct {
	overrides map[string]any
}

// Option configures Load.
type Option func(*loadSettings)

// WithOverrides sets values that take precedence over the environment,
// typically from flags. Keys are the Key* constants.
func WithOverrides(overrides map[string]any) Option {
	return func(s *loadSettings) {
		s.overrides = overrides
	}
}

// Load resolves settings with the precedence defaults < environment < overrides.
// Environment variables are RELEASECHECK_<KEY> with dashes as underscores.
// The token also falls back to GITHUB_TOKEN.
func Load(opts ...Option) (*Settings, error) {
	ls := loadSettings{}
	for _, opt := range opts {
		opt(&ls)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyToken, envPrefix+"_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind token env: %w", err)
	}

	for k, val := range ls.overrides {
		v.Set(k, val)
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyTimeout, DefaultTimeout.String())
	v.SetDefault(KeyAllowPreRelease, false)
	v.SetDefault(KeyStrictTags, false)
	v.SetDefault(KeyUserAgent, DefaultUserAgent)
	v.SetDefault(KeyHost, DefaultHost)
	v.SetDefault(KeyBaseURL, "")
	v.SetDefault(KeyConstraint, "")
	v.SetDefault(KeyMaxRetries, 0)
}

func fromViper(v *viper.Viper) (*Settings, error) {
	timeout, err := parseTimeout(v.GetString(KeyTimeout))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Timeout:         timeout,
		AllowPreRelease: v.GetBool(KeyAllowPreRelease),
		StrictTags:      v.GetBool(KeyStrictTags),
		UserAgent:       strings.TrimSpace(v.GetString(KeyUserAgent)),
		Token:           strings.TrimSpace(v.GetString(KeyToken)),
		Host:            strings.ToLower(strings.TrimSpace(v.GetString(KeyHost))),
		BaseURL:         strings.TrimSpace(v.GetString(KeyBaseURL)),
		Constraint:      strings.TrimSpace(v.GetString(KeyConstraint)),
		MaxRetries:      v.GetInt(KeyMaxRetries),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// parseTimeout accepts a Go duration ("750ms", "10s") or a bare number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTimeout, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyTimeout, raw, err)
	}
	return d, nil
}

// Validate checks the settings for values no checker could run with.
func (s *Settings) Validate() error {
	if s.Timeout <= 0 {
		return fmt.Errorf("invalid %s %s: must be positive", KeyTimeout, s.Timeout)
	}
	if s.Host == "" {
		return fmt.Errorf("%s must not be empty", KeyHost)
	}
	if s.UserAgent == "" {
		return fmt.Errorf("%s must not be empty", KeyUserAgent)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("invalid %s %d: must not be negative", KeyMaxRetries, s.MaxRetries)
	}
	if s.Constraint != "" {
		if _, err := semver.NewConstraint(s.Constraint); err != nil {
			return fmt.Errorf("invalid %s %q: %w", KeyConstraint, s.Constraint, err)
		}
	}
	return nil
}
