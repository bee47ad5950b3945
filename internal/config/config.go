package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	RootPath      string `yaml:"root_path"`
	Workers       int    `yaml:"workers"`
	Verbose       bool   `yaml:"verbose"`
	AllowlistPath string `yaml:"allowlist_path"`
	ReportPath    string `yaml:"report_path"`

	OCR        OCRConfig        `yaml:"ocr"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Moderation ModerationConfig `yaml:"moderation"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
}

// OllamaEndpoint is the connection to an Ollama generate API.
type OllamaEndpoint struct {
	URL        string        `yaml:"url"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint64        `yaml:"max_retries"`
}

type OCRConfig struct {
	OllamaEndpoint `yaml:",inline"`

	Enabled bool `yaml:"enabled"`
}

type ClassifierConfig struct {
	OllamaEndpoint `yaml:",inline"`

	// UseLLM stacks an Ollama-backed classifier on the keyword rules.
	UseLLM bool `yaml:"use_llm"`
}

type ModerationConfig struct {
	OCRTimeout           time.Duration `yaml:"ocr_timeout"`
	FailClosedOnOCRError bool          `yaml:"fail_closed_on_ocr_error"`
}

type StorageConfig struct {
	// Path of the sqlite database; empty disables persistence.
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	GinMode string `yaml:"gin_mode"`
	// MaxUploadBytes caps multipart image uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

func DefaultConfig() *Config {
	return &Config{
		Workers:       runtime.NumCPU() * 2,
		AllowlistPath: "allowlist.txt",
		ReportPath:    "moderation_report.json",
		OCR: OCRConfig{
			OllamaEndpoint: OllamaEndpoint{
				URL:        "http://localhost:11434/api/generate",
				Model:      "llama3.2-vision",
				Timeout:    60 * time.Second,
				MaxRetries: 2,
			},
		},
		Classifier: ClassifierConfig{
			OllamaEndpoint: OllamaEndpoint{
				URL:        "http://localhost:11434/api/generate",
				Model:      "llama3.2",
				Timeout:    30 * time.Second,
				MaxRetries: 2,
			},
		},
		Moderation: ModerationConfig{
			OCRTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Path: "moderation.db",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			GinMode:        "release",
			MaxUploadBytes: 10 << 20,
		},
	}
}

// Load overlays the YAML file at path on DefaultConfig. An empty path yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Moderation.OCRTimeout < 0 {
		return errors.New("moderation.ocr_timeout must not be negative")
	}
	if c.OCR.Enabled && c.OCR.URL == "" {
		return errors.New("ocr.url is required when ocr is enabled")
	}
	if c.Classifier.UseLLM && c.Classifier.URL == "" {
		return errors.New("classifier.url is required when use_llm is set")
	}
	return nil
}
