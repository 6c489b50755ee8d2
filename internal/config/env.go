package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BOMCOST_"

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are named) into the process environment. Missing files are skipped and
// variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields of a from BOMCOST_* variables found by lookup
// (os.LookupEnv when nil). Secrets such as the JWT key are expected to come
// from here rather than the config file.
func ApplyEnv(a *App, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *Duration) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = Duration(d)
		return nil
	}

	str("SOURCE_KIND", &a.Source.Kind)
	str("SPREADSHEET_ID", &a.Source.Sheets.SpreadsheetID)
	str("SOURCE_DIR", &a.Source.Dir.Path)
	str("SOURCE_WORKBOOK", &a.Source.Workbook.Path)
	str("CURRENCY", &a.Report.Currency)
	str("METRICS_BACKEND", &a.Metrics.Backend)
	str("PUSHGATEWAY_URL", &a.Metrics.PushgatewayURL)
	str("DATADOG_ADDR", &a.Metrics.Datadog.Addr)
	str("LOG_LEVEL", &a.Logging.Level)
	str("LOG_FORMAT", &a.Logging.Format)
	str("JWT_SECRET", &a.Auth.JWTSecret)
	str("STORAGE_KIND", &a.Storage.Kind)
	str("STORAGE_DSN", &a.Storage.DSN)
	str("STORAGE_TABLE", &a.Storage.Table)
	str("ADDR", &a.Server.Addr)

	return errors.Join(
		dur("MAX_STALENESS", &a.Report.MaxStaleness),
		dur("CACHE_TTL", &a.Source.Cache.TTL),
		dur("TOKEN_TTL", &a.Auth.TokenTTL),
	)
}
