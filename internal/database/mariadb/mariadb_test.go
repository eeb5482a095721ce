package mariadb

import (
	"testing"
	"time"
)

func TestParseDSN(t *testing.T) {
	cfg, err := ParseDSN("faces:secret@tcp(localhost:3306)/faces")
	if err != nil {
		t.Fatalf("ParseDSN returned error: %v", err)
	}
	if !cfg.ParseTime {
		t.Error("Expected ParseTime to be forced on")
	}
	if !cfg.ClientFoundRows {
		t.Error("Expected ClientFoundRows to be forced on")
	}
	if cfg.Loc != time.UTC {
		t.Errorf("Expected UTC location, got %v", cfg.Loc)
	}
	if cfg.DBName != "faces" || cfg.User != "faces" {
		t.Errorf("Unexpected parsed config: db=%q user=%q", cfg.DBName, cfg.User)
	}
}

func TestParseDSNErrors(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
	}{
		{"empty", ""},
		{"garbage", "not a dsn at all("},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDSN(tt.dsn); err == nil {
				t.Errorf("Expected error for DSN %q", tt.dsn)
			}
		})
	}
}
