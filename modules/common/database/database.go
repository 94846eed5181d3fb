package database

import (
	"log"

	"github.com/supabase-community/supabase-go"

	"github.com/art-solutions/nanobana-gen/modules/common/config"
)

// Table names. One row per preset / per job; batches are a query dimension,
// not a table.
const (
	PresetsTable = "nb_presets"
	JobsTable    = "nb_jobs"
)

// Client wraps the Supabase PostgREST client the stores are built on.
type Client struct {
	Supabase *supabase.Client
}

// NewClient - Supabase client from config. Returns nil when the client cannot
// be constructed; callers treat that as "persistence unavailable".
func NewClient(cfg *config.Config) *Client {
	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		log.Println("⚠️  Supabase credentials missing, database client disabled")
		return nil
	}

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil
	}

	return &Client{
		Supabase: supabaseClient,
	}
}
