package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration values
type Config struct {
	Port                 string
	GinMode              string
	LogLevel             string
	SubmitNoticeDuration time.Duration
	SessionTTL           time.Duration
	RequirePIN           bool
	ParticlesConfig      string
	CORSAllowedOrigins   []string
}

// LoadConfig reads configuration from environment variables. Unset or
// unparsable values fall back to their defaults.
func LoadConfig() *Config {
	return &Config{
		Port:                 getString("PORT", "8080"),
		GinMode:              getString("GIN_MODE", "release"),
		LogLevel:             getString("LOG_LEVEL", "info"),
		SubmitNoticeDuration: getDuration("SUBMIT_NOTICE_DURATION", 3*time.Second),
		SessionTTL:           getDuration("SESSION_TTL", 30*time.Minute),
		RequirePIN:           getBool("REQUIRE_PIN", true),
		ParticlesConfig:      os.Getenv("PARTICLES_CONFIG"),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// Validate reports configuration that cannot be served
func (c *Config) Validate() error {
	var errs []error
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("GIN_MODE %q must be debug, release or test", c.GinMode))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.SubmitNoticeDuration <= 0 {
		errs = append(errs, errors.New("SUBMIT_NOTICE_DURATION must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
