package credgate

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Lockout.Threshold != 5 || cfg.Lockout.Duration != 30*time.Minute {
		t.Errorf("lockout defaults = %+v", cfg.Lockout)
	}
	if cfg.RateLimit.Login.MaxAttempts != 5 || cfg.RateLimit.Login.Window != time.Minute {
		t.Errorf("login budget = %+v", cfg.RateLimit.Login)
	}
	if cfg.RateLimit.Registration.MaxAttempts != 3 || cfg.RateLimit.Registration.Window != time.Hour {
		t.Errorf("registration budget = %+v", cfg.RateLimit.Registration)
	}
	if cfg.Session.TTL != time.Hour || cfg.Session.RememberTTL != 30*24*time.Hour {
		t.Errorf("session TTLs = %+v", cfg.Session)
	}
	if !cfg.Password.RehashOnLogin {
		t.Error("rehash on login not enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero lockout threshold", func(c *Config) { c.Lockout.Threshold = 0 }},
		{"negative lockout duration", func(c *Config) { c.Lockout.Duration = -time.Minute }},
		{"zero login attempts", func(c *Config) { c.RateLimit.Login.MaxAttempts = 0 }},
		{"zero registration window", func(c *Config) { c.RateLimit.Registration.Window = 0 }},
		{"zero session TTL", func(c *Config) { c.Session.TTL = 0 }},
		{"remember shorter than base", func(c *Config) { c.Session.RememberTTL = time.Minute }},
		{"zero min length", func(c *Config) { c.Registration.MinLength = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCloneConfigIsolatesKeyMaterial(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.PrivateKey = []byte("secret-key-material")

	clone := cloneConfig(cfg)
	clone.Session.PrivateKey[0] = 'X'

	if cfg.Session.PrivateKey[0] == 'X' {
		t.Error("clone shares key material with the original")
	}
}
