// Package config loads farmcheck's configuration.
//
// Values are layered: DefaultConfig, then an optional YAML file (with
// ${VAR} expansion), then FARMCHECK_* environment overrides. Credentials
// only ever arrive through the file or the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/HendryAvila/farmcheck/internal/backend"
	"github.com/HendryAvila/farmcheck/internal/farm"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverREST     = "rest"
)

// Storage drivers. DriverREST and DriverPostgres are also valid here.
const (
	StorageFS   = "fs"
	StorageNone = "none"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FARMCHECK_"

// ─── Types ───────────────────────────────────────────────────────────────────

// Config is the complete farmcheck configuration.
type Config struct {
	Database     DatabaseConfig `yaml:"database"`
	Storage      StorageConfig  `yaml:"storage"`
	API          APIConfig      `yaml:"api"`
	Tables       []string       `yaml:"tables"`
	Probe        ProbeConfig    `yaml:"probe"`
	QueryTimeout time.Duration  `yaml:"query_timeout"`
	HTTP         HTTPConfig     `yaml:"http"`
}

// DatabaseConfig selects the table backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Schema   string `yaml:"schema"`
	MaxConns int32  `yaml:"max_conns"`
}

// StorageConfig selects the bucket backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
	Dir    string `yaml:"dir"`
}

// APIConfig holds the hosted project's REST endpoint and key.
type APIConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// ProbeConfig shapes the existence probe.
type ProbeConfig struct {
	Columns []string `yaml:"columns"`
	Limit   int      `yaml:"limit"`
}

// HTTPConfig configures `farmcheck http`.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a configuration that works without any setup:
// a local SQLite file and a local bucket directory under ~/.farmcheck.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, ".farmcheck")
	return Config{
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			URL:      filepath.Join(dir, "farm.db"),
			Schema:   "public",
			MaxConns: 4,
		},
		Storage: StorageConfig{
			Driver: StorageFS,
			Dir:    filepath.Join(dir, "storage"),
		},
		Tables:       farm.DefaultTables(),
		Probe:        ProbeConfig{Columns: []string{"*"}, Limit: 1},
		QueryTimeout: 30 * time.Second,
		HTTP:         HTTPConfig{Addr: ":8080"},
	}
}

// ─── Loading ─────────────────────────────────────────────────────────────────

// Load builds the configuration. An empty path skips the file layer; a
// path that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// varRef matches ${VAR}. A bare $ is left alone so passwords and keys
// may contain it.
var varRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expand replaces each ${VAR} with its value from lookup; unset
// variables expand to "".
func expand(s string, lookup lookupFunc) string {
	return varRef.ReplaceAllStringFunc(s, func(ref string) string {
		v, _ := lookup(ref[2 : len(ref)-1])
		return v
	})
}

// decode expands ${VAR} references and decodes a single YAML document
// over cfg, rejecting unknown fields.
func decode(data []byte, cfg *Config) error {
	expanded := expand(string(data), os.LookupEnv)

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty file is a valid, empty document.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_URL", &cfg.Database.URL)
	str("DATABASE_SCHEMA", &cfg.Database.Schema)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("STORAGE_URL", &cfg.Storage.URL)
	str("STORAGE_DIR", &cfg.Storage.Dir)
	str("API_URL", &cfg.API.URL)
	str("API_KEY", &cfg.API.Key)
	str("HTTP_ADDR", &cfg.HTTP.Addr)

	if v, ok := lookup(EnvPrefix + "TABLES"); ok {
		cfg.Tables = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "QUERY_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sQUERY_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.QueryTimeout = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ─── Validation ──────────────────────────────────────────────────────────────

// Validate reports the first problem found in the configuration.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("config: database.url is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Database.URL == "" {
			return errors.New("config: database.url must name the sqlite file")
		}
	case DriverREST:
		if c.API.URL == "" {
			return errors.New("config: api.url is required for the rest driver")
		}
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case DriverREST:
		if c.API.URL == "" && c.Storage.URL == "" {
			return errors.New("config: api.url or storage.url is required for rest storage")
		}
	case DriverPostgres:
		if c.Storage.URL == "" && c.Database.Driver != DriverPostgres {
			return errors.New("config: storage.url is required for postgres storage")
		}
	case StorageFS:
		if c.Storage.Dir == "" {
			return errors.New("config: storage.dir is required for fs storage")
		}
	case StorageNone, "":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	if c.Database.Schema != "" {
		if err := backend.ValidateIdentifier(c.Database.Schema); err != nil {
			return fmt.Errorf("config: database.schema: %w", err)
		}
	}

	if len(c.Tables) == 0 {
		return errors.New("config: at least one table is required")
	}
	seen := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if err := backend.ValidateIdentifier(t); err != nil {
			return fmt.Errorf("config: tables: %w", err)
		}
		if seen[t] {
			return fmt.Errorf("config: tables: %q listed twice", t)
		}
		seen[t] = true
	}

	if err := backend.ValidateColumns(c.Probe.Columns); err != nil {
		return fmt.Errorf("config: probe.columns: %w", err)
	}
	if c.Probe.Limit < 1 {
		return fmt.Errorf("config: probe.limit must be at least 1, got %d", c.Probe.Limit)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("config: query_timeout must not be negative, got %s", c.QueryTimeout)
	}
	return nil
}

// ─── Redaction ───────────────────────────────────────────────────────────────

const redacted = "REDACTED"

// Redacted returns a copy safe to log: the API key and any password in a
// URL are masked.
func (c Config) Redacted() Config {
	out := c
	out.Tables = append([]string(nil), c.Tables...)
	out.Probe.Columns = append([]string(nil), c.Probe.Columns...)
	if out.API.Key != "" {
		out.API.Key = redacted
	}
	out.Database.URL = redactURL(c.Database.URL)
	out.Storage.URL = redactURL(c.Storage.URL)
	out.API.URL = redactURL(c.API.URL)
	return out
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), redacted)
	}
	return u.String()
}
