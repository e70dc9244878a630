package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DateLayout is the layout used for every configured and exported date
const DateLayout = "2006-01-02"

// Config holds application configuration.
type Config struct {
	StartDate time.Time
	EndDate   time.Time

	// ECB SDMX web service: {RatesBaseURL}/data/{RatesFlowRef}/{RatesKey}
	RatesBaseURL string
	RatesFlowRef string
	RatesKey     string

	CatalogURL      string
	CatalogCurrency string

	HTTPTimeout  time.Duration
	RateCacheTTL time.Duration

	OutputDir  string
	RatesFile  string
	MergedFile string
	LogFile    string
	LogLevel   string

	// DBPath enables the run archive when set
	DBPath string
	Port   string
}

// Load reads configuration from the environment and a .env file if present.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v.SetDefault("START_DATE", "2023-02-09")
	v.SetDefault("END_DATE", "2023-02-10")
	v.SetDefault("RATES_BASE_URL", "https://sdw-wsrest.ecb.europa.eu/service")
	v.SetDefault("RATES_FLOW_REF", "EXR")
	v.SetDefault("RATES_KEY", "D..EUR.SP00.A")
	v.SetDefault("CATALOG_URL", "https://api.escuelajs.co/api/v1/categories/4/products")
	v.SetDefault("CATALOG_CURRENCY", "USD")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("RATE_CACHE_TTL", "24h")
	v.SetDefault("OUTPUT_DIR", "output")
	v.SetDefault("RATES_FILE", "result1.csv")
	v.SetDefault("MERGED_FILE", "result2.csv")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_LEVEL", "DEBUG")
	v.SetDefault("DB_PATH", "")
	v.SetDefault("PORT", "8080")

	v.AutomaticEnv()

	cfg := &Config{
		RatesBaseURL:    strings.TrimRight(v.GetString("RATES_BASE_URL"), "/"),
		RatesFlowRef:    v.GetString("RATES_FLOW_REF"),
		RatesKey:        v.GetString("RATES_KEY"),
		CatalogURL:      v.GetString("CATALOG_URL"),
		CatalogCurrency: strings.ToUpper(v.GetString("CATALOG_CURRENCY")),
		OutputDir:       v.GetString("OUTPUT_DIR"),
		RatesFile:       v.GetString("RATES_FILE"),
		MergedFile:      v.GetString("MERGED_FILE"),
		LogFile:         v.GetString("LOG_FILE"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		DBPath:          v.GetString("DB_PATH"),
		Port:            v.GetString("PORT"),
	}

	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.OutputDir, "logs.log")
	}

	var err error
	if cfg.HTTPTimeout, err = time.ParseDuration(v.GetString("HTTP_TIMEOUT")); err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if cfg.RateCacheTTL, err = time.ParseDuration(v.GetString("RATE_CACHE_TTL")); err != nil {
		return nil, fmt.Errorf("invalid RATE_CACHE_TTL: %w", err)
	}

	if err := cfg.SetDateRange(v.GetString("START_DATE"), v.GetString("END_DATE")); err != nil {
		return nil, err
	}

	if len(cfg.CatalogCurrency) != 3 {
		return nil, fmt.Errorf("invalid CATALOG_CURRENCY %q: expected a 3-letter code", cfg.CatalogCurrency)
	}

	return cfg, nil
}

// SetDateRange parses and validates the rate window. Empty values keep the
// current setting.
func (c *Config) SetDateRange(start, end string) error {
	s, e := c.StartDate, c.EndDate

	var err error
	if start != "" {
		if s, err = time.Parse(DateLayout, start); err != nil {
			return fmt.Errorf("invalid start date %q: %w", start, err)
		}
	}
	if end != "" {
		if e, err = time.Parse(DateLayout, end); err != nil {
			return fmt.Errorf("invalid end date %q: %w", end, err)
		}
	}

	if s.After(e) {
		return fmt.Errorf("start date %s is after end date %s", s.Format(DateLayout), e.Format(DateLayout))
	}

	c.StartDate, c.EndDate = s, e
	return nil
}

// RatesURL returns the fully qualified rates resource URL, without query
func (c *Config) RatesURL() string {
	return fmt.Sprintf("%s/data/%s/%s", c.RatesBaseURL, c.RatesFlowRef, c.RatesKey)
}
