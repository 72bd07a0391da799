// Package config loads cfrstat configuration.
//
// A configuration file is YAML. It is checked against an embedded CUE schema
// that also supplies defaults, so every field of a loaded Config is set.
// Unknown keys are rejected.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed config.cue
var schemaSource string

// Config is the resolved configuration.
type Config struct {
	Database string        `json:"database"`
	DataDir  string        `json:"data_dir"`
	BaseURL  string        `json:"base_url"`
	Ingest   IngestConfig  `json:"ingest"`
	Compute  ComputeConfig `json:"compute"`
	Fetch    FetchConfig   `json:"fetch"`
	Server   ServerConfig  `json:"server"`
	Log      LogConfig     `json:"log"`
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	BatchSize int `json:"batch_size"`
}

// ComputeConfig configures metric computation.
type ComputeConfig struct {
	BatchSize int `json:"batch_size"`
}

// FetchConfig configures document acquisition.
type FetchConfig struct {
	Concurrency       int     `json:"concurrency"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Timeout           string  `json:"timeout"`
}

// TimeoutDuration returns Timeout parsed. Load has already validated it.
func (f FetchConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(f.Timeout)
	return d
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `json:"level"`
}

// ValidationError reports a configuration that does not satisfy the schema.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	src := e.Path
	if src == "" {
		src = "configuration"
	}
	if len(e.Issues) == 1 {
		return fmt.Sprintf("invalid %s: %s", src, e.Issues[0])
	}
	return fmt.Sprintf("invalid %s: %d issues, first: %s", src, len(e.Issues), e.Issues[0])
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg, err := resolve("", nil)
	if err != nil {
		// The embedded schema's defaults are covered by tests.
		panic(fmt.Sprintf("config: default configuration invalid: %v", err))
	}
	return cfg
}

// Load reads the YAML file at path. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(path, data)
}

// Parse resolves YAML configuration held in memory.
func Parse(data []byte) (*Config, error) {
	return parse("", data)
}

func parse(path string, data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return resolve(path, raw)
}

func resolve(path string, raw map[string]any) (*Config, error) {
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("config.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.FillPath(cue.ParsePath("config"), raw).LookupPath(cue.ParsePath("config"))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, validationError(path, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, validationError(path, err)
	}
	if _, err := time.ParseDuration(cfg.Fetch.Timeout); err != nil {
		return nil, &ValidationError{Path: path, Issues: []string{fmt.Sprintf("fetch.timeout: %v", err)}}
	}
	return &cfg, nil
}

func validationError(path string, err error) error {
	var issues []string
	for _, e := range cueerrors.Errors(err) {
		issues = append(issues, e.Error())
	}
	if len(issues) == 0 {
		issues = []string{err.Error()}
	}
	return &ValidationError{Path: path, Issues: issues}
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
