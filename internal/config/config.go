package config

import (
	"log/slog"
	"os"
	"strings"
)

// Config holds all application configuration loaded from environment
// variables. CLI flags override individual fields at the command layer.
type Config struct {
	Broker                string
	SpreadsheetID         string
	GoogleCredentialsJSON string
	DatabaseURL           string
	PositionsDirs         []string
	BalancesDirs          []string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Broker:                envOrDefault("BROKER", "fidelity"),
		SpreadsheetID:         envOrDefaultWarn("SPREADSHEET_ID", ""),
		GoogleCredentialsJSON: envOrDefaultWarn("GOOGLE_CREDENTIALS_JSON", ""),
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
		PositionsDirs:         envOrDefaultList("POSITIONS_DIRS", "."),
		BalancesDirs:          envOrDefaultList("BALANCES_DIRS", "."),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

// envOrDefaultList splits a colon-separated directory list.
func envOrDefaultList(key, defaultVal string) []string {
	parts := strings.Split(envOrDefault(key, defaultVal), ":")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
