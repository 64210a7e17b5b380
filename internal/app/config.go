package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage drivers.
const (
	DriverFile    = "file"
	DriverLevelDB = "leveldb"
)

// Environment variable names
const (
	EnvHome           = "DIDSTORE_HOME"
	EnvDriver         = "DIDSTORE_DRIVER"
	EnvLedger         = "DIDSTORE_LEDGER"
	EnvCacheCapacity  = "DIDSTORE_CACHE_CAPACITY"
	EnvCacheTTL       = "DIDSTORE_CACHE_TTL"
	EnvResolverTTL    = "DIDSTORE_RESOLVER_TTL"
	EnvBackendTimeout = "DIDSTORE_BACKEND_TIMEOUT"
	EnvScryptN        = "DIDSTORE_SCRYPT_N"
	EnvLogLevel       = "DIDSTORE_LOG_LEVEL"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home   string // store directory, e.g. $HOME/.didstore
	Driver string // DriverFile or DriverLevelDB

	CacheCapacity int           // document/credential cache entries; 0 disables
	CacheTTL      time.Duration // document/credential cache lifetime
	ResolverTTL   time.Duration // resolved document lifetime; 0 disables

	BackendTimeout time.Duration
	LedgerPath     string // defaults to <Home>/ledger.json

	// scrypt cost of the store key; zero N keeps the library default
	ScryptN, ScryptR, ScryptP int

	LogLevel string    // debug, info, warn or error
	LogOut   io.Writer // defaults to os.Stderr
}

// DefaultConfig returns configuration with defaults.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Home:           filepath.Join(home, ".didstore"),
		Driver:         DriverFile,
		CacheCapacity:  256,
		CacheTTL:       10 * time.Minute,
		ResolverTTL:    5 * time.Minute,
		BackendTimeout: 30 * time.Second,
		LogLevel:       "warn",
	}
}

// LoadFromEnv overrides c with the DIDSTORE_* environment variables that
// are set.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvHome); v != "" {
		c.Home = v
	}
	if v := os.Getenv(EnvDriver); v != "" {
		c.Driver = v
	}
	if v := os.Getenv(EnvLedger); v != "" {
		c.LedgerPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvCacheCapacity); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheCapacity, err)
		}
		c.CacheCapacity = n
	}
	if v := os.Getenv(EnvScryptN); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvScryptN, err)
		}
		c.ScryptN, c.ScryptR, c.ScryptP = n, 8, 1
	}
	for name, dst := range map[string]*time.Duration{
		EnvCacheTTL:       &c.CacheTTL,
		EnvResolverTTL:    &c.ResolverTTL,
		EnvBackendTimeout: &c.BackendTimeout,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
	}
	return nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Home == "" {
		return fmt.Errorf("store home is required")
	}
	if c.Driver != DriverFile && c.Driver != DriverLevelDB {
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	if c.CacheCapacity < 0 || c.CacheTTL < 0 || c.ResolverTTL < 0 {
		return fmt.Errorf("cache sizes and lifetimes must not be negative")
	}
	if c.ScryptN != 0 && (c.ScryptN < 2 || c.ScryptN&(c.ScryptN-1) != 0) {
		return fmt.Errorf("scrypt N must be a power of two greater than 1")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Logger builds the structured logger described by c.
func (c *Config) Logger() *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	out := c.LogOut
	if out == nil {
		out = os.Stderr
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
