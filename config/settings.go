package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileSettings mirrors the optional YAML settings file. Pointer fields
// distinguish "absent" from zero values so the file only overrides what it
// names.
type fileSettings struct {
	EntriesFile     *string `yaml:"entries_file"`
	Plugin          *string `yaml:"plugin"`
	Driver          *string `yaml:"driver"`
	UserAgent       *string `yaml:"user_agent"`
	HTTPTimeoutS    *int    `yaml:"http_timeout_s"`
	NavTimeoutS     *int    `yaml:"nav_timeout_s"`
	RateLimitDelayS *int    `yaml:"rate_limit_delay_s"`
	DataStrict      *bool   `yaml:"data_strict"`
	BrowserVisible  *bool   `yaml:"browser_header"`
	BrowserLogging  *bool   `yaml:"browser_logging"`
	OutputFile      *string `yaml:"output_file"`
	OutputFormat    *string `yaml:"output_format"`
	OutputNameBase  *string `yaml:"output_name_base"`
	PickOutputName  *bool   `yaml:"pick_output_name"`
	MetricsAddr     *string `yaml:"metrics_addr"`
	LogFile         *string `yaml:"log_file"`
	Verbose         *bool   `yaml:"verbose"`
}

// LoadSettings overlays the YAML settings file at path onto cfg.
func LoadSettings(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open settings file: %w", err)
	}
	defer file.Close()

	var fs fileSettings
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&fs); err != nil {
		return fmt.Errorf("decode settings file %s: %w", path, err)
	}

	setString(&cfg.EntriesFile, fs.EntriesFile)
	setString(&cfg.Plugin, fs.Plugin)
	setString(&cfg.Driver, fs.Driver)
	setString(&cfg.UserAgent, fs.UserAgent)
	setSeconds(&cfg.HTTPTimeout, fs.HTTPTimeoutS)
	setSeconds(&cfg.NavTimeout, fs.NavTimeoutS)
	setSeconds(&cfg.RateLimitDelay, fs.RateLimitDelayS)
	setBool(&cfg.DataStrict, fs.DataStrict)
	setBool(&cfg.BrowserVisible, fs.BrowserVisible)
	setBool(&cfg.BrowserLogging, fs.BrowserLogging)
	setString(&cfg.OutputFile, fs.OutputFile)
	setString(&cfg.OutputFormat, fs.OutputFormat)
	setString(&cfg.OutputNameBase, fs.OutputNameBase)
	setBool(&cfg.PickOutputName, fs.PickOutputName)
	setString(&cfg.MetricsAddr, fs.MetricsAddr)
	setString(&cfg.LogFile, fs.LogFile)
	setBool(&cfg.Verbose, fs.Verbose)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setSeconds(dst *time.Duration, src *int) {
	if src != nil {
		*dst = time.Duration(*src) * time.Second
	}
}
