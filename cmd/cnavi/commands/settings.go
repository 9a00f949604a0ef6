package commands

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"cnavi/internal/db"
	"cnavi/lib/configutil"
	"cnavi/lib/platforms/cnavi"
	"cnavi/lib/serviceutil"
	"cnavi/lib/sqliteutil"
	"cnavi/lib/telemetry"
)

const configName = "cnavi.json5"

type Config struct {
	BaseUrl            string `json:"base_url"`
	TimeoutSeconds     int    `json:"timeout_seconds"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
	Proxy              string `json:"proxy"`
	// RequestsPerSecond is a pointer so that a file can set it to 0, which
	// turns pacing off.
	RequestsPerSecond *float64 `json:"requests_per_second"`
	DbPath            string   `json:"db_path"`
	// FieldsFile replaces the compiled in field lists when the portal
	// changes its forms.
	FieldsFile string           `json:"fields_file"`
	Telemetry  telemetry.Config `json:"telemetry"`
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

const defaultRequestsPerSecond = 2

func (c Config) RequestRate() float64 {
	if c.RequestsPerSecond == nil {
		return defaultRequestsPerSecond
	}
	return *c.RequestsPerSecond
}

// stateDir holds the ledger and is the last place a config file is looked
// for.
func stateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".cnavi"
	}
	return filepath.Join(dir, "cnavi")
}

func defaultConfig() Config {
	return Config{
		BaseUrl:        cnavi.DefaultEntryUrl,
		TimeoutSeconds: 30,
		DbPath:         filepath.Join(stateDir(), "cnavi.db"),
	}
}

func loadConfig() Config {
	cfg, err := configutil.Layer(defaultConfig(), configName, stateDir())
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

func openDB(cfg Config) *sql.DB {
	database, err := sqliteutil.OpenDB(db.Schema, cfg.DbPath)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	return database
}
