package config

import (
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	t.Setenv("QUEUE_DB_PATH", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("LOCAL_API_ADDR", "")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("QUEUE_RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("PROCESSOR_WORKERS", "")

	cfg := Load()

	if cfg.JWTSecret != "dev-secret-change-me" {
		t.Errorf("JWTSecret = %q, want dev default", cfg.JWTSecret)
	}
	if cfg.LocalAPIAddr != "127.0.0.1:8043" {
		t.Errorf("LocalAPIAddr = %q, want 127.0.0.1:8043", cfg.LocalAPIAddr)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.SMTPPort)
	}
	if cfg.RateLimitPerMinute != 100 {
		t.Errorf("RateLimitPerMinute = %d, want 100", cfg.RateLimitPerMinute)
	}
	if cfg.ProcessorWorkers != 5 {
		t.Errorf("ProcessorWorkers = %d, want 5", cfg.ProcessorWorkers)
	}
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("QUEUE_DB_PATH", "/tmp/custom-queue.db")
	t.Setenv("JWT_SECRET", "super-secret")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_FROM", "")
	t.Setenv("SMTP_USER", "orders@example.com")
	t.Setenv("QUEUE_RATE_LIMIT_PER_MINUTE", "42")
	t.Setenv("PROCESSOR_WORKERS", "8")

	cfg := Load()

	if cfg.QueueDBPath != "/tmp/custom-queue.db" {
		t.Errorf("QueueDBPath = %q, want override", cfg.QueueDBPath)
	}
	if cfg.JWTSecret != "super-secret" {
		t.Errorf("JWTSecret = %q, want override", cfg.JWTSecret)
	}
	if cfg.SMTPPort != 2525 {
		t.Errorf("SMTPPort = %d, want 2525", cfg.SMTPPort)
	}
	// SMTP_FROM falls back to SMTP_USER when unset.
	if cfg.SMTPFrom != "orders@example.com" {
		t.Errorf("SMTPFrom = %q, want fallback to SMTP_USER", cfg.SMTPFrom)
	}
	if cfg.RateLimitPerMinute != 42 {
		t.Errorf("RateLimitPerMinute = %d, want 42", cfg.RateLimitPerMinute)
	}
	if cfg.ProcessorWorkers != 8 {
		t.Errorf("ProcessorWorkers = %d, want 8", cfg.ProcessorWorkers)
	}
}

func TestPrinterStoreReplaceAndLookup(t *testing.T) {
	s := NewPrinterStore([]PrinterConfig{
		{ID: "p1", Name: "Kitchen", ConnectionType: ConnNetwork},
	})

	if _, ok := s.Printer("p1"); !ok {
		t.Fatal("expected p1 to be found")
	}
	if _, ok := s.Printer("missing"); ok {
		t.Fatal("expected missing printer to be absent")
	}
	if len(s.All()) != 1 {
		t.Fatalf("All() len = %d, want 1", len(s.All()))
	}
	if len(s.IDs()) != 1 || s.IDs()[0] != "p1" {
		t.Fatalf("IDs() = %v, want [p1]", s.IDs())
	}

	s.Replace([]PrinterConfig{
		{ID: "p2", Name: "Bar", ConnectionType: ConnUSB},
		{ID: "p3", Name: "Expo", ConnectionType: ConnBluetooth},
	})

	if _, ok := s.Printer("p1"); ok {
		t.Fatal("expected p1 to be gone after Replace")
	}
	if len(s.All()) != 2 {
		t.Fatalf("All() len after Replace = %d, want 2", len(s.All()))
	}
}

func TestSaveDocThenLoadDocRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pairing.json")

	doc := &Doc{
		Version:      "1",
		RestaurantID: "rest_1",
		AuthToken:    "tok",
		Printers: []PrinterConfig{
			{ID: "p1", Name: "Kitchen", ConnectionType: ConnNetwork, Address: "127.0.0.1:9100"},
		},
	}

	if err := SaveDoc(path, doc); err != nil {
		t.Fatalf("SaveDoc: %v", err)
	}

	loaded, err := LoadDoc(path)
	if err != nil {
		t.Fatalf("LoadDoc: %v", err)
	}
	if loaded.RestaurantID != "rest_1" {
		t.Errorf("RestaurantID = %q, want rest_1", loaded.RestaurantID)
	}
	if len(loaded.Printers) != 1 || loaded.Printers[0].ID != "p1" {
		t.Fatalf("Printers = %+v, want one entry p1", loaded.Printers)
	}
}

func TestLoadDocMissingFileReturnsError(t *testing.T) {
	_, err := LoadDoc(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err == nil {
		t.Fatal("expected an error for a missing pairing document")
	}
}
