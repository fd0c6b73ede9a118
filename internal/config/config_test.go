package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := Load()
	cfg.JWTSecret = "0123456789abcdef"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("Port = %q, want 8081", cfg.Port)
	}
	if cfg.RecordBackend != "sqlite" {
		t.Errorf("RecordBackend = %q, want sqlite", cfg.RecordBackend)
	}
	if cfg.ExportBatchSize != 10 {
		t.Errorf("ExportBatchSize = %d, want 10", cfg.ExportBatchSize)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("RECORD_BACKEND", "memory")
	t.Setenv("EXPORT_INTERVAL", "5m")

	cfg := Load()
	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if cfg.RecordBackend != "memory" {
		t.Errorf("RecordBackend = %q, want memory", cfg.RecordBackend)
	}
	if cfg.ExportInterval != 5*time.Minute {
		t.Errorf("ExportInterval = %v, want 5m", cfg.ExportInterval)
	}
}

func TestValidate_AcceptsCompleteConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "not-a-port"
	cfg.RecordBackend = "oracle"
	cfg.JWTSecret = ""
	cfg.ExportBatchSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"invalid port", "invalid record backend", "JWT_SECRET", "export batch size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestValidate_AMQPRules(t *testing.T) {
	cfg := validConfig()
	cfg.AMQPURL = "http://not-amqp"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "AMQP URL scheme") {
		t.Errorf("Validate = %v, want scheme error", err)
	}

	cfg = validConfig()
	cfg.AMQPQueue = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "queue name") {
		t.Errorf("Validate = %v, want queue error", err)
	}

	// No AMQP at all is a valid deployment.
	cfg = validConfig()
	cfg.AMQPURL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate without AMQP = %v, want nil", err)
	}
}
