// Package config defines the server options and loads them from JSON or
// YAML files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidJSON  = errors.New("invalid JSON syntax")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
	ErrEmptyFile    = errors.New("configuration file is empty")
)

// Options holds everything the server needs to run. Zero values mean
// the feature is off.
type Options struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`

	EnableCORS       bool `json:"enableCors" yaml:"enableCors"`
	Verbose          bool `json:"verbose" yaml:"verbose"`
	InitialDataCount int  `json:"initialDataCount" yaml:"initialDataCount"`

	DelayMs    int     `json:"delayMs" yaml:"delayMs"`
	DelayMinMs int     `json:"delayMinMs" yaml:"delayMinMs"`
	DelayMaxMs int     `json:"delayMaxMs" yaml:"delayMaxMs"`
	ErrorRate  float64 `json:"errorRate" yaml:"errorRate"`
	ErrorCodes []int   `json:"errorCodes" yaml:"errorCodes"`

	DataDir  string `json:"dataDir" yaml:"dataDir"`
	SeedFile string `json:"seedFile" yaml:"seedFile"`

	ResponsesFile string `json:"responsesFile" yaml:"responsesFile"`
	WebhooksFile  string `json:"webhooksFile" yaml:"webhooksFile"`

	// WebhookTimeoutSec bounds each webhook delivery attempt.
	WebhookTimeoutSec int `json:"webhookTimeoutSec" yaml:"webhookTimeoutSec"`

	AuthMode string `json:"authMode" yaml:"authMode"`
	AuthKey  string `json:"authKey" yaml:"authKey"`

	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"`
}

// Default returns the options used when nothing is configured.
func Default() Options {
	return Options{
		Host:              "0.0.0.0",
		Port:              5000,
		InitialDataCount:  10,
		WebhookTimeoutSec: 10,
		AuthMode:          "none",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Validate rejects option combinations the server cannot run with.
func (o *Options) Validate() error {
	if o.Port < 1 || o.Port > 65535 {
		return fmt.Errorf("port %d out of range", o.Port)
	}
	if o.ErrorRate < 0 || o.ErrorRate > 1 {
		return fmt.Errorf("errorRate %v out of range [0, 1]", o.ErrorRate)
	}
	if o.DelayMaxMs > 0 && o.DelayMinMs > o.DelayMaxMs {
		return fmt.Errorf("delayMinMs %d exceeds delayMaxMs %d", o.DelayMinMs, o.DelayMaxMs)
	}
	if o.InitialDataCount < 0 {
		return fmt.Errorf("initialDataCount must be non-negative")
	}
	return nil
}

// Addr is the listen address in host:port form.
func (o *Options) Addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// LoadFile reads Options from a JSON or YAML file, detected by
// extension, on top of the defaults. Keys absent from the file keep
// their default values.
func LoadFile(path string) (Options, error) {
	opts := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return opts, fmt.Errorf("failed to read config: %w", err)
	}
	if len(data) == 0 {
		return opts, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
	} else {
		if !json.Valid(data) {
			return opts, fmt.Errorf("%w in file: %s", ErrInvalidJSON, path)
		}
		if err := json.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
