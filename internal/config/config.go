package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env      string
	LogLevel string
	Serial   SerialConfig
	Report   ReportConfig
	Plot     PlotConfig
	AWS      AWSConfig
}

// SerialConfig holds serial port and sampling configuration
type SerialConfig struct {
	Baud          int
	ReadTimeout   time.Duration
	Interval      time.Duration
	ListDelay     time.Duration
	SkipMalformed bool
}

// ReportConfig holds PDF report configuration
type ReportConfig struct {
	Dir      string
	Compress bool
}

// PlotConfig holds chart display configuration
type PlotConfig struct {
	Show bool
}

// AWSConfig holds AWS/S3 configuration for the report archive
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string
}

// ArchiveEnabled reports whether finished reports should be uploaded
func (c AWSConfig) ArchiveEnabled() bool {
	return c.S3Bucket != ""
}

var keys = []string{
	"ENVIRONMENT",
	"LOG_LEVEL",
	"SERIAL_BAUD",
	"SERIAL_READ_TIMEOUT",
	"SAMPLE_INTERVAL",
	"PORT_LIST_DELAY",
	"SKIP_MALFORMED",
	"REPORT_DIR",
	"REPORT_COMPRESS",
	"PLOT_SHOW",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"S3_BUCKET",
	"S3_ENDPOINT",
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	// Set defaults
	v.SetDefault("ENVIRONMENT", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERIAL_BAUD", 9600)
	v.SetDefault("SERIAL_READ_TIMEOUT", "1s")
	v.SetDefault("SAMPLE_INTERVAL", "30s")
	v.SetDefault("PORT_LIST_DELAY", "5s")
	v.SetDefault("SKIP_MALFORMED", true)
	v.SetDefault("REPORT_DIR", ".")
	v.SetDefault("REPORT_COMPRESS", true)
	v.SetDefault("PLOT_SHOW", true)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_ENDPOINT", "")

	// Environment variables override .env file values
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	env := v.GetString("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	// Read .env file (ignore error if file doesn't exist)
	v.SetConfigName(".env." + env)
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	var config Config
	config.Env = env
	config.LogLevel = v.GetString("LOG_LEVEL")
	config.Serial.Baud = v.GetInt("SERIAL_BAUD")
	config.Serial.ReadTimeout = v.GetDuration("SERIAL_READ_TIMEOUT")
	config.Serial.Interval = v.GetDuration("SAMPLE_INTERVAL")
	config.Serial.ListDelay = v.GetDuration("PORT_LIST_DELAY")
	config.Serial.SkipMalformed = v.GetBool("SKIP_MALFORMED")
	config.Report.Dir = v.GetString("REPORT_DIR")
	config.Report.Compress = v.GetBool("REPORT_COMPRESS")
	config.Plot.Show = v.GetBool("PLOT_SHOW")
	config.AWS.Region = v.GetString("AWS_REGION")
	config.AWS.AccessKeyID = v.GetString("AWS_ACCESS_KEY_ID")
	config.AWS.SecretAccessKey = v.GetString("AWS_SECRET_ACCESS_KEY")
	config.AWS.S3Bucket = v.GetString("S3_BUCKET")
	config.AWS.S3Endpoint = v.GetString("S3_ENDPOINT")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("env", config.Env).
		Int("baud", config.Serial.Baud).
		Dur("interval", config.Serial.Interval).
		Bool("archive", config.AWS.ArchiveEnabled()).
		Msg("Configuration loaded")

	return &config, nil
}

// Validate checks values that would make a run impossible
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("SERIAL_BAUD must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("SERIAL_READ_TIMEOUT must be positive, got %s", c.Serial.ReadTimeout)
	}
	if c.Serial.Interval < 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must not be negative, got %s", c.Serial.Interval)
	}
	if c.Serial.ListDelay < 0 {
		return fmt.Errorf("PORT_LIST_DELAY must not be negative, got %s", c.Serial.ListDelay)
	}
	if c.Report.Dir == "" {
		return fmt.Errorf("REPORT_DIR is required")
	}
	return nil
}
