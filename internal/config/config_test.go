package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	os.Setenv("HTTP_ADDRESS", "")
	os.Setenv("GEMINI_MODEL_ID", "")
	os.Setenv("STORE_DRIVER", "")
	cfg := Load()
	if cfg.HTTPAddress == "" {
		t.Fatalf("expected default http address")
	}
	if cfg.GeminiModel == "" {
		t.Fatalf("expected default gemini model id")
	}
	if cfg.StoreDriver != "memory" {
		t.Fatalf("expected default store driver memory, got %q", cfg.StoreDriver)
	}
}

func TestValidate_RequiresAPIKey(t *testing.T) {
	cfg := Config{StoreDriver: "memory"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing GEMINI_API_KEY")
	}
	cfg.GeminiAPIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_StoreDrivers(t *testing.T) {
	base := Config{GeminiAPIKey: "k"}

	cfg := base
	cfg.StoreDriver = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for redis driver without addr")
	}
	cfg.RedisAddr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg = base
	cfg.StoreDriver = "supabase"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for supabase driver without credentials")
	}

	cfg = base
	cfg.StoreDriver = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestEscalationEnabled(t *testing.T) {
	cfg := Config{}
	if cfg.EscalationEnabled() {
		t.Fatalf("expected escalation disabled with empty config")
	}
	cfg = Config{
		TwilioAccountSID: "AC1",
		TwilioAuthToken:  "tok",
		TwilioFromNumber: "+15550000001",
		SupervisorNumber: "+15550000002",
	}
	if !cfg.EscalationEnabled() {
		t.Fatalf("expected escalation enabled")
	}
}
