package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with defaults failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("expected default backend file, got %s", cfg.Storage.Backend)
	}
	if len(cfg.Auth.APIKeys) != 1 || cfg.Auth.APIKeys[0] != "apitest" {
		t.Errorf("unexpected default api keys: %v", cfg.Auth.APIKeys)
	}
	if cfg.Loyalty.HistoryCap != 50 || cfg.Loyalty.BaseMultiplier != 1.0 {
		t.Errorf("unexpected loyalty defaults: %+v", cfg.Loyalty)
	}
	if cfg.Session.TTLHours != 24 {
		t.Errorf("expected 24h session ttl, got %d", cfg.Session.TTLHours)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("API_KEYS", "key1,key2")
	t.Setenv("HISTORY_CAP", "10")
	t.Setenv("LOYALTY_MULTIPLIER", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Storage.Backend)
	}
	if len(cfg.Auth.APIKeys) != 2 {
		t.Errorf("expected 2 api keys, got %v", cfg.Auth.APIKeys)
	}
	if cfg.Loyalty.HistoryCap != 10 || cfg.Loyalty.BaseMultiplier != 2.5 {
		t.Errorf("unexpected loyalty config: %+v", cfg.Loyalty)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Auth:     AuthConfig{APIKeys: []string{"apitest"}},
			Storage:  StorageConfig{Backend: "memory"},
			Loyalty:  LoyaltyConfig{BaseMultiplier: 1.0, HistoryCap: 50},
			Session:  SessionConfig{TTLHours: 24},
			LogLevel: "info",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: true},
		{name: "no api keys", mutate: func(c *Config) { c.Auth.APIKeys = nil }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "redis" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Backend = "postgres" }, wantErr: true},
		{name: "postgres with dsn", mutate: func(c *Config) {
			c.Storage.Backend = "postgres"
			c.Storage.PostgresDSN = "postgres://localhost/levelup"
		}},
		{name: "mongo without uri", mutate: func(c *Config) { c.Storage.Backend = "mongo" }, wantErr: true},
		{name: "zero history cap", mutate: func(c *Config) { c.Loyalty.HistoryCap = 0 }, wantErr: true},
		{name: "negative multiplier", mutate: func(c *Config) { c.Loyalty.BaseMultiplier = -1 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "verbose" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
