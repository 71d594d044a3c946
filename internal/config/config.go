package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/godilite/salesrace/internal/ledger"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	LedgerSource          string
	DataRoot              string
	Sheet                 string
	CategoryColumn        string
	ValueColumn           string
	DateLocation          string
	DBDriver              string
	RedisAddr             string
	RedisPassword         string
	GRPCPort              int
	GRPCReflectionEnabled bool
	HTTPPort              int
	CacheTTL              time.Duration
	FrameDuration         time.Duration
	TreeMapWidth          float64
	TreeMapHeight         float64
	TreeMapPadding        float64
}

// fileConfig is the TOML form of Config. Durations are strings like "10m".
type fileConfig struct {
	AppEnv                *string  `toml:"app_env"`
	LedgerSource          *string  `toml:"ledger_source"`
	DataRoot              *string  `toml:"data_root"`
	Sheet                 *string  `toml:"sheet"`
	CategoryColumn        *string  `toml:"category_column"`
	ValueColumn           *string  `toml:"value_column"`
	DateLocation          *string  `toml:"date_location"`
	DBDriver              *string  `toml:"db_driver"`
	RedisAddr             *string  `toml:"redis_addr"`
	RedisPassword         *string  `toml:"redis_password"`
	GRPCPort              *int     `toml:"grpc_port"`
	GRPCReflectionEnabled *bool    `toml:"grpc_reflection_enabled"`
	HTTPPort              *int     `toml:"http_port"`
	CacheTTL              *string  `toml:"cache_ttl"`
	FrameDuration         *string  `toml:"frame_duration"`
	TreeMapWidth          *float64 `toml:"treemap_width"`
	TreeMapHeight         *float64 `toml:"treemap_height"`
	TreeMapPadding        *float64 `toml:"treemap_padding"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		AppEnv:         "development",
		LedgerSource:   "./data/sales.csv",
		DataRoot:       "./data",
		CategoryColumn: "region",
		ValueColumn:    "money",
		DateLocation:   "Local",
		DBDriver:       "sqlite3",
		RedisAddr:      "",
		GRPCPort:       50051,
		HTTPPort:       8080,
		CacheTTL:       10 * time.Minute,
		FrameDuration:  2500 * time.Millisecond,
		TreeMapWidth:   960,
		TreeMapHeight:  540,
		TreeMapPadding: 5,
	}
}

// Load reads the TOML file named by CONFIG_FILE, if any, then applies the
// environment on top and validates the result.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var f fileConfig
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.AppEnv, f.AppEnv)
	setString(&c.LedgerSource, f.LedgerSource)
	setString(&c.DataRoot, f.DataRoot)
	setString(&c.Sheet, f.Sheet)
	setString(&c.CategoryColumn, f.CategoryColumn)
	setString(&c.ValueColumn, f.ValueColumn)
	setString(&c.DateLocation, f.DateLocation)
	setString(&c.DBDriver, f.DBDriver)
	setString(&c.RedisAddr, f.RedisAddr)
	setString(&c.RedisPassword, f.RedisPassword)
	if f.GRPCPort != nil {
		c.GRPCPort = *f.GRPCPort
	}
	if f.GRPCReflectionEnabled != nil {
		c.GRPCReflectionEnabled = *f.GRPCReflectionEnabled
	}
	if f.HTTPPort != nil {
		c.HTTPPort = *f.HTTPPort
	}
	if f.TreeMapWidth != nil {
		c.TreeMapWidth = *f.TreeMapWidth
	}
	if f.TreeMapHeight != nil {
		c.TreeMapHeight = *f.TreeMapHeight
	}
	if f.TreeMapPadding != nil {
		c.TreeMapPadding = *f.TreeMapPadding
	}
	for _, d := range []struct {
		name string
		raw  *string
		dst  *time.Duration
	}{
		{"cache_ttl", f.CacheTTL, &c.CacheTTL},
		{"frame_duration", f.FrameDuration, &c.FrameDuration},
	} {
		if d.raw == nil {
			continue
		}
		v, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("parse config %s: %s: %w", path, d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.LedgerSource = getEnv("LEDGER_SOURCE", c.LedgerSource)
	c.DataRoot = getEnv("DATA_ROOT", c.DataRoot)
	c.Sheet = getEnv("LEDGER_SHEET", c.Sheet)
	c.CategoryColumn = getEnv("CATEGORY_COLUMN", c.CategoryColumn)
	c.ValueColumn = getEnv("VALUE_COLUMN", c.ValueColumn)
	c.DateLocation = getEnv("DATE_LOCATION", c.DateLocation)
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.GRPCPort = getEnvInt("GRPC_PORT", c.GRPCPort)
	c.GRPCReflectionEnabled = getEnvBool("GRPC_REFLECTION_ENABLED", c.GRPCReflectionEnabled)
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)
	c.FrameDuration = getEnvDuration("FRAME_DURATION", c.FrameDuration)
	c.TreeMapWidth = getEnvFloat("TREEMAP_WIDTH", c.TreeMapWidth)
	c.TreeMapHeight = getEnvFloat("TREEMAP_HEIGHT", c.TreeMapHeight)
	c.TreeMapPadding = getEnvFloat("TREEMAP_PADDING", c.TreeMapPadding)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.CategoryIndex(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ValueIndex(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.DataRoot) == "" {
		errs = append(errs, errors.New("DATA_ROOT must not be empty"))
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("GRPC_PORT %d out of range", c.GRPCPort))
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT %d out of range", c.HTTPPort))
	}
	if c.TreeMapWidth <= 0 || c.TreeMapHeight <= 0 {
		errs = append(errs, fmt.Errorf("tree-map size %gx%g must be positive", c.TreeMapWidth, c.TreeMapHeight))
	}
	if c.TreeMapPadding < 0 {
		errs = append(errs, fmt.Errorf("TREEMAP_PADDING %g must not be negative", c.TreeMapPadding))
	}
	return errors.Join(errs...)
}

// CategoryIndex is the ledger column categories are read from.
func (c *Config) CategoryIndex() (int, error) {
	switch strings.ToLower(c.CategoryColumn) {
	case "region":
		return ledger.ColRegion, nil
	case "province":
		return ledger.ColProvince, nil
	}
	return 0, fmt.Errorf("CATEGORY_COLUMN %q: want region or province", c.CategoryColumn)
}

// ValueIndex is the ledger column values are summed from.
func (c *Config) ValueIndex() (int, error) {
	switch strings.ToLower(c.ValueColumn) {
	case "money":
		return ledger.ColSellMoney, nil
	case "amount":
		return ledger.ColSellAmount, nil
	}
	return 0, fmt.Errorf("VALUE_COLUMN %q: want money or amount", c.ValueColumn)
}

// Location is the zone order dates without an offset are read in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DateLocation)
	if err != nil {
		return nil, fmt.Errorf("DATE_LOCATION %q: %w", c.DateLocation, err)
	}
	return loc, nil
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
