package config

import (
	"fmt"
	"time"
)

const minSecretLen = 32

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if len(c.Auth.JWTSecret) < minSecretLen {
			return fmt.Errorf("auth.jwt_secret must be at least %d characters in production (got %d)", minSecretLen, len(c.Auth.JWTSecret))
		}
		if len(c.Audit.HMACSecret) < minSecretLen {
			return fmt.Errorf("audit.hmac_secret must be at least %d characters in production (got %d)", minSecretLen, len(c.Audit.HMACSecret))
		}
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be > 0 (got %v)", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be >= 1 (got %d)", c.RateLimit.Burst)
	}

	switch c.Audit.Sink {
	case "postgres", "amqp":
	default:
		return fmt.Errorf("audit.sink must be postgres or amqp (got %q)", c.Audit.Sink)
	}
	if c.Audit.Sink == "amqp" && c.AMQP.URL == "" {
		return fmt.Errorf("amqp.url is required when audit.sink is amqp")
	}

	if err := c.Authz.validate(); err != nil {
		return fmt.Errorf("authz: %w", err)
	}
	if err := c.Chat.validate(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}

	return nil
}

func (a *AuthzConfig) validate() error {
	if a.HoursStart < 0 || a.HoursEnd > 24 || a.HoursStart >= a.HoursEnd {
		return fmt.Errorf("business hours must satisfy 0 <= hours_start < hours_end <= 24 (got %d-%d)", a.HoursStart, a.HoursEnd)
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", a.Timezone, err)
	}
	a.Location = loc
	return nil
}

func (c ChatConfig) validate() error {
	if c.MaxThreads < 1 {
		return fmt.Errorf("max_threads must be >= 1 (got %d)", c.MaxThreads)
	}
	if c.MaxMessages < 1 {
		return fmt.Errorf("max_messages must be >= 1 (got %d)", c.MaxMessages)
	}
	if c.SaveDebounce < 0 {
		return fmt.Errorf("save_debounce must be >= 0 (got %s)", c.SaveDebounce)
	}
	return nil
}
