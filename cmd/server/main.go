package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MonsterRookie/ashalytics/internal/analysis"
	"github.com/MonsterRookie/ashalytics/internal/config"
	"github.com/MonsterRookie/ashalytics/internal/httpserver"
	"github.com/MonsterRookie/ashalytics/internal/notify"
	"github.com/MonsterRookie/ashalytics/internal/session"
	"github.com/MonsterRookie/ashalytics/internal/store"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration: %v", err)
	}

	st, err := newStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("closing store: %v", err)
		}
	}()

	var escalator notify.Sender = notify.Nop{}
	if cfg.EscalationEnabled() {
		escalator = notify.New(notify.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFromNumber,
			Supervisor: cfg.SupervisorNumber,
		})
		log.Println("RED escalation via SMS enabled")
	}

	analyzer := analysis.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	handlers := httpserver.NewHandlers(analyzer, st, escalator, session.Options{})
	e := httpserver.New(handlers)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}

func newStore(cfg config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		return store.NewRedisStore(client, 0)
	case "supabase":
		return store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.SupabaseTable)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
