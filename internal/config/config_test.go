package config

import (
	"os"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"BROKER", "SPREADSHEET_ID", "DATABASE_URL", "POSITIONS_DIRS", "BALANCES_DIRS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Broker != "fidelity" {
		t.Errorf("Broker = %q, want default fidelity", cfg.Broker)
	}
	if cfg.SpreadsheetID != "" {
		t.Errorf("SpreadsheetID = %q, want empty", cfg.SpreadsheetID)
	}
	if !reflect.DeepEqual(cfg.PositionsDirs, []string{"."}) {
		t.Errorf("PositionsDirs = %v, want [.]", cfg.PositionsDirs)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BROKER", "schwab")
	t.Setenv("SPREADSHEET_ID", "sheet-123")
	t.Setenv("DATABASE_URL", "postgres://localhost/testdb")
	t.Setenv("POSITIONS_DIRS", "/exports:/downloads")

	cfg := Load()

	if cfg.Broker != "schwab" {
		t.Errorf("Broker = %q, want schwab", cfg.Broker)
	}
	if cfg.SpreadsheetID != "sheet-123" {
		t.Errorf("SpreadsheetID = %q, want sheet-123", cfg.SpreadsheetID)
	}
	if cfg.DatabaseURL != "postgres://localhost/testdb" {
		t.Errorf("DatabaseURL = %q, want override", cfg.DatabaseURL)
	}
	if !reflect.DeepEqual(cfg.PositionsDirs, []string{"/exports", "/downloads"}) {
		t.Errorf("PositionsDirs = %v, want both entries split", cfg.PositionsDirs)
	}
}

func TestLoadListSkipsEmptyEntries(t *testing.T) {
	t.Setenv("BALANCES_DIRS", "/a:  :/b:")
	cfg := Load()
	if !reflect.DeepEqual(cfg.BalancesDirs, []string{"/a", "/b"}) {
		t.Errorf("BalancesDirs = %v, want [/a /b]", cfg.BalancesDirs)
	}
}
