package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/coursemix/coursesync/internal/logger"
	"github.com/coursemix/coursesync/internal/scraper"
	"github.com/coursemix/coursesync/internal/store"
)

const envPrefix = "COURSESYNC"

var (
	// ErrMissingCredentials is returned by Validate when the selected store cannot connect.
	ErrMissingCredentials = errors.New("missing store credentials")
	// ErrInvalid is returned by Validate for malformed values.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the full set of coursesync settings
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Log     LogConfig     `mapstructure:"log"`
}

// StoreConfig selects the destination table
type StoreConfig struct {
	Driver      string        `mapstructure:"driver"`
	Table       string        `mapstructure:"table"`
	SupabaseURL string        `mapstructure:"supabase_url"`
	SupabaseKey string        `mapstructure:"supabase_key"`
	DatabaseURL string        `mapstructure:"database_url"`
	SQLitePath  string        `mapstructure:"sqlite_path"`
	FilePath    string        `mapstructure:"file_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ScraperConfig controls page fetching and block selection
type ScraperConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CodeSelector string        `mapstructure:"code_selector"`
	NameSelector string        `mapstructure:"name_selector"`
	DescSelector string        `mapstructure:"desc_selector"`
}

// CatalogConfig overrides where subject pages are fetched from
type CatalogConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Year    string `mapstructure:"year"`
	Level   string `mapstructure:"level"`
}

// SyncConfig tunes the insert strategy
type SyncConfig struct {
	ConditionalInsert bool `mapstructure:"conditional_insert"`
}

// LogConfig controls log output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	sel := scraper.DefaultSelectors()

	v.SetDefault("store.driver", store.DriverSupabase)
	v.SetDefault("store.table", store.DefaultTable)
	v.SetDefault("store.supabase_url", "")
	v.SetDefault("store.supabase_key", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "coursesync.db")
	v.SetDefault("store.file_path", "~/.coursesync/courses.json")
	v.SetDefault("store.timeout", "15s")

	v.SetDefault("scraper.user_agent", scraper.DefaultUserAgent)
	v.SetDefault("scraper.timeout", scraper.Timeout.String())
	v.SetDefault("scraper.code_selector", sel.Code)
	v.SetDefault("scraper.name_selector", sel.Name)
	v.SetDefault("scraper.desc_selector", sel.Description)

	// Empty catalog values fall back to the embedded subject list.
	v.SetDefault("catalog.base_url", "")
	v.SetDefault("catalog.year", "")
	v.SetDefault("catalog.level", "")

	v.SetDefault("sync.conditional_insert", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", string(logger.FormatConsole))
}

func bindAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"store.supabase_url": {"SUPABASE_URL"},
		"store.supabase_key": {"SUPABASE_KEY"},
		"store.database_url": {"DATABASE_URL"},
	}
	for key, names := range aliases {
		envName := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		args := append([]string{key, envName}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads configuration. An empty path looks for config.yaml in the working directory and
// ./config, and a missing file is not an error; an explicit path must exist.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindAliases(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the selected store has what it needs to connect
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case store.DriverSupabase:
		if c.Store.SupabaseURL == "" || c.Store.SupabaseKey == "" {
			return fmt.Errorf("%w: supabase driver needs store.supabase_url and store.supabase_key", ErrMissingCredentials)
		}
	case store.DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres driver needs store.database_url", ErrMissingCredentials)
		}
	case store.DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite driver needs store.sqlite_path", ErrInvalid)
		}
	case store.DriverFile:
		if c.Store.FilePath == "" {
			return fmt.Errorf("%w: file driver needs store.file_path", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalid, store.ErrUnknownDriver, c.Store.Driver)
	}

	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("%w: scraper.timeout must be positive", ErrInvalid)
	}
	if lvl := logger.ParseLevel(c.Log.Level); string(lvl) != strings.ToUpper(strings.TrimSpace(c.Log.Level)) {
		return fmt.Errorf("%w: unknown log.level %q", ErrInvalid, c.Log.Level)
	}
	switch logger.Format(c.Log.Format) {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("%w: log.format must be console or json, got %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// StoreOptions maps the store section onto store.Open options
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:      c.Store.Driver,
		Table:       c.Store.Table,
		SupabaseURL: c.Store.SupabaseURL,
		SupabaseKey: c.Store.SupabaseKey,
		DatabaseURL: c.Store.DatabaseURL,
		SQLitePath:  c.Store.SQLitePath,
		FilePath:    c.Store.FilePath,
		HTTPTimeout: c.Store.Timeout,
	}
}

// Selectors returns the configured block selectors
func (c *Config) Selectors() scraper.Selectors {
	return scraper.Selectors{
		Code:        c.Scraper.CodeSelector,
		Name:        c.Scraper.NameSelector,
		Description: c.Scraper.DescSelector,
	}
}
