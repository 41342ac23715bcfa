package main

import (
	"path/filepath"
	"testing"

	"inventario/backend/internal/config"
	"inventario/backend/internal/storage"
)

func TestNewImageStorePrefersSupabase(t *testing.T) {
	images, staticDir := newImageStore(config.Config{
		SupabaseURL:    "https://example.supabase.co",
		SupabaseKey:    "service-key",
		SupabaseBucket: "productos",
	})

	if _, ok := images.(*storage.Supabase); !ok {
		t.Fatalf("expected supabase store, got %T", images)
	}
	if staticDir != "" {
		t.Fatalf("expected no static dir with supabase, got %q", staticDir)
	}
}

func TestNewImageStoreFallsBackToLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")

	images, staticDir := newImageStore(config.Config{ImageDir: dir})

	if _, ok := images.(*storage.Local); !ok {
		t.Fatalf("expected local store, got %T", images)
	}
	if staticDir != dir {
		t.Fatalf("expected static dir %q, got %q", dir, staticDir)
	}
}
