package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	// External analysis service (Gemini).
	GeminiAPIKey string
	GeminiModel  string

	// Identity record store. StoreDriver is one of "memory", "redis", "supabase".
	StoreDriver            string
	RedisAddr              string
	RedisPassword          string
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseTable          string

	// Optional RED-triage escalation via SMS. Leaving any field empty disables it.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	SupervisorNumber string
}

// Load reads environment variables and returns Config with sane defaults.
// Call Validate before using the config to talk to the analysis service.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	model := os.Getenv("GEMINI_MODEL_ID")
	if model == "" {
		model = "gemini-flash-latest"
	}

	driver := os.Getenv("STORE_DRIVER")
	if driver == "" {
		driver = "memory"
	}

	table := os.Getenv("SUPABASE_TABLE")
	if table == "" {
		table = "patients"
	}

	log.Printf("config: HTTP_ADDRESS=%s STORE_DRIVER=%s GEMINI_MODEL_ID=%s", addr, driver, model)
	return Config{
		HTTPAddress:            addr,
		GeminiAPIKey:           os.Getenv("GEMINI_API_KEY"),
		GeminiModel:            model,
		StoreDriver:            driver,
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseTable:          table,
		TwilioAccountSID:       os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:        os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:       os.Getenv("TWILIO_FROM_NUMBER"),
		SupervisorNumber:       os.Getenv("SUPERVISOR_PHONE_NUMBER"),
	}
}

// Validate rejects configurations that would fail on the first analysis call.
// An empty analysis credential must stop the process at startup rather than
// surface as a per-turn service error.
func (c Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config: GEMINI_API_KEY is required")
	}
	switch c.StoreDriver {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("config: REDIS_ADDR is required for the redis store driver")
		}
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "" {
			return fmt.Errorf("config: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase store driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	return nil
}

// EscalationEnabled reports whether all fields needed for SMS escalation are set.
func (c Config) EscalationEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" &&
		c.TwilioFromNumber != "" && c.SupervisorNumber != ""
}
