package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Env               string `mapstructure:"ENV" validate:"required"`
	LogLevel          string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	SourceDatabaseURL string `mapstructure:"SOURCE_DATABASE_URL" validate:"required"`
	TargetDatabaseURL string `mapstructure:"TARGET_DATABASE_URL" validate:"required"`
	SourceSchema      string `mapstructure:"SOURCE_SCHEMA" validate:"omitempty,sqlident"`
	TargetSchema      string `mapstructure:"TARGET_SCHEMA" validate:"omitempty,sqlident"`
	DBMaxConns        int32  `mapstructure:"DB_MAX_CONNS" validate:"gte=1"`
	DBMinConns        int32  `mapstructure:"DB_MIN_CONNS" validate:"gte=0,ltefield=DBMaxConns"`
	SitePrefix        string `mapstructure:"SITE_PREFIX" validate:"required,alphanum"`
	EMRUserID         int    `mapstructure:"EMR_USER_ID" validate:"required,gt=0"`
	EMRLocationID     int    `mapstructure:"EMR_LOCATION_ID" validate:"required,gt=0"`
	Workers           int    `mapstructure:"WORKERS" validate:"min=1,max=64"`
	BatchSize         int    `mapstructure:"BATCH_SIZE" validate:"min=1,max=10000"`
	ReportDir         string `mapstructure:"REPORT_DIR" validate:"required"`
	StatusAddr        string `mapstructure:"STATUS_ADDR" validate:"omitempty,hostname_port"`
	AgeUnit           string `mapstructure:"AGE_UNIT" validate:"oneof=years days"`
	AdultAge          int    `mapstructure:"ADULT_AGE" validate:"gt=0"`
	PediatricAge      int    `mapstructure:"PEDIATRIC_AGE" validate:"gt=0"`
}

var keys = []string{
	"ENV", "LOG_LEVEL",
	"SOURCE_DATABASE_URL", "TARGET_DATABASE_URL", "SOURCE_SCHEMA", "TARGET_SCHEMA",
	"DB_MAX_CONNS", "DB_MIN_CONNS",
	"SITE_PREFIX", "EMR_USER_ID", "EMR_LOCATION_ID",
	"WORKERS", "BATCH_SIZE", "REPORT_DIR", "STATUS_ADDR",
	"AGE_UNIT", "ADULT_AGE", "PEDIATRIC_AGE",
}

var sqlIdent = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return sqlIdent.MatchString(fl.Field().String())
	})
	return v
}

// ReportConfig is the subset of Config needed to read a run's reports
// without touching either database.
type ReportConfig struct {
	SitePrefix string `mapstructure:"SITE_PREFIX" validate:"required,alphanum"`
	ReportDir  string `mapstructure:"REPORT_DIR" validate:"required"`
}

// Load reads the config file named by CONFIG_FILE (default .env) and the
// environment, which takes precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := newViper().Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadReport reads only the keys that locate the report files.
func LoadReport() (*ReportConfig, error) {
	cfg := &ReportConfig{}
	if err := newViper().Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	file := os.Getenv("CONFIG_FILE")
	if file == "" {
		file = ".env"
	}
	v.SetConfigFile(file)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("WORKERS", 8)
	v.SetDefault("BATCH_SIZE", 1000)
	v.SetDefault("REPORT_DIR", "tmp")
	v.SetDefault("AGE_UNIT", "years")
	v.SetDefault("ADULT_AGE", 18)
	v.SetDefault("PEDIATRIC_AGE", 14)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading the config file, but don't fail if missing
	_ = v.ReadInConfig()
	return v
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
