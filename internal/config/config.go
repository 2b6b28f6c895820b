package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// FRED upstream
	FREDAPIKey  string
	FREDBaseURL string
	FREDTimeout time.Duration

	// Observation source selection
	DataBackend string

	// Series catalog override (YAML, optional)
	SeriesCatalogFile string

	// In-memory series cache
	CacheSize int
	CacheTTL  time.Duration

	// Snapshot store
	SQLiteDBPath string

	// AMQP refresh pipeline
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	RefreshCron  string
	FetchTimeout time.Duration

	// Google Sheets observation log (optional)
	SheetsSpreadsheetID string
	SheetsSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		FREDAPIKey:  getEnv("FRED_API_KEY", ""),
		FREDBaseURL: getEnv("FRED_BASE_URL", "https://api.stlouisfed.org"),
		FREDTimeout: getEnvDuration("FRED_TIMEOUT", 30*time.Second),

		DataBackend: getEnv("DATA_BACKEND", "fred"),

		SeriesCatalogFile: getEnv("SERIES_CATALOG_FILE", ""),

		CacheSize: getEnvInt("CACHE_SIZE", 200),
		CacheTTL:  getEnvDuration("CACHE_TTL", 15*time.Minute),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cpiview.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cpiview"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "series_refresh"),

		RefreshCron:  getEnv("REFRESH_CRON", "0 30 8 * * *"),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 45*time.Second),

		SheetsSpreadsheetID: getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsSheetName:     getEnv("SHEETS_SHEET_NAME", "Observations"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate backend selection
	validBackends := []string{"fred", "memory", "snapshot"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// The live backend is useless without credentials; fail loudly at startup
	// instead of surfacing 403s on every page load.
	if c.DataBackend == "fred" {
		if strings.TrimSpace(c.FREDAPIKey) == "" {
			errors = append(errors, "FRED API key not found: set the FRED_API_KEY environment variable "+
				"(for local development, create a .env file with FRED_API_KEY=your_api_key_here)")
		}
		if u, err := url.Parse(c.FREDBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid FRED base URL '%s'", c.FREDBaseURL))
		}
		if c.FREDTimeout < time.Second || c.FREDTimeout > 5*time.Minute {
			errors = append(errors, fmt.Sprintf("invalid FRED timeout %v: must be between 1s and 5m", c.FREDTimeout))
		}
	}

	// Validate snapshot store path when anything can write to it
	if c.DataBackend == "snapshot" || c.AMQPURL != "" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when the snapshot store is in use")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate cache tuning
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	} else if c.CacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at most 10000", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	} else if c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
	}

	// Validate catalog file if provided
	if c.SeriesCatalogFile != "" {
		if _, err := os.Stat(c.SeriesCatalogFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("series catalog file does not exist: %s", c.SeriesCatalogFile))
		}
	}

	// Validate Sheets export settings
	if c.SheetsSpreadsheetID != "" && strings.TrimSpace(c.SheetsSheetName) == "" {
		errors = append(errors, "sheet name cannot be empty when a spreadsheet ID is provided")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
