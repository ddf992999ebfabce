package store

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// SupabaseStore implements Store on a Supabase table. One row per session
// key, upserted on conflict.
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

// NewSupabaseStore constructs a Supabase-backed store.
func NewSupabaseStore(url, serviceKey, table string) (*SupabaseStore, error) {
	if url == "" || serviceKey == "" {
		return nil, ErrInvalidConfig
	}
	if table == "" {
		table = "patients"
	}
	client, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseStore{client: client, table: table}, nil
}

func (s *SupabaseStore) Get(ctx context.Context, key string) (*Record, error) {
	var rows []Record
	_, err := s.client.From(s.table).
		Select("*", "", false).
		Eq("session_key", key).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("supabase select: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *SupabaseStore) Upsert(ctx context.Context, rec *Record) error {
	if rec == nil || rec.SessionKey == "" {
		return ErrMissingKey
	}
	_, _, err := s.client.From(s.table).
		Upsert(rec, "session_key", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("supabase upsert: %w", err)
	}
	return nil
}

func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	_, _, err := s.client.From(s.table).
		Delete("", "").
		Eq("session_key", key).
		Execute()
	if err != nil {
		return fmt.Errorf("supabase delete: %w", err)
	}
	return nil
}

func (s *SupabaseStore) Close() error { return nil }
