package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"surveydeck/internal/errors"
)

// Config represents the complete application configuration.
// Values come from an optional YAML file; environment variables override
// the file, and command-line flags override both.
type Config struct {
	Data    DataConfig   `yaml:"data"`
	Output  OutputConfig `yaml:"output"`
	Workers int          `yaml:"workers" env:"SURVEY_WORKERS" validate:"min=1,max=64"`
	LogDir  string       `yaml:"log_dir" env:"SURVEY_LOG_DIR"`
	Verbose bool         `yaml:"verbose" env:"SURVEY_VERBOSE"`
}

// DataConfig holds the survey inputs.
type DataConfig struct {
	File     string `yaml:"file" env:"SURVEY_DATA_FILE" validate:"required"`
	Sheet    string `yaml:"sheet" env:"SURVEY_SHEET"`
	Settings string `yaml:"settings" env:"SURVEY_SETTINGS_FILE" validate:"required"`
	Workbook string `yaml:"workbook" env:"SURVEY_SETTINGS_WORKBOOK"`
}

// OutputConfig holds where generated files go.
type OutputConfig struct {
	Dir string `yaml:"dir" env:"SURVEY_OUTPUT_DIR" validate:"required"`
}

// Defaults.
const (
	DefaultSettingsFile = "survey.yaml"
	DefaultOutputDir    = "out"
	DefaultLogDir       = "logs"
	DefaultWorkers      = 4
)

// Load reads configuration from path (optional) and the environment.
// A .env file in the working directory is loaded first when present.
// Load does not validate: call Validate once flags have been applied.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.IOError(fmt.Sprintf("config file %s", path), err)
		}
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to read %s: %w", path, err))
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to read environment: %w", err))
	}

	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Data.Settings == "" {
		c.Data.Settings = DefaultSettingsFile
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
}

var validate = validator.New()

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
		} else {
			fields = append(fields, err.Error())
		}
		return errors.ConfigInvalid("invalid configuration: " + strings.Join(fields, ", "))
	}
	return nil
}
