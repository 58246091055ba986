package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Bind        string `yaml:"bind"`
	Port        int    `yaml:"port"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type TranscribeConfig struct {
	ChunkSeconds  int      `yaml:"chunk_seconds"`
	SampleRate    int      `yaml:"sample_rate"`
	Channels      int      `yaml:"channels"`
	Model         string   `yaml:"model"`
	ModelDir      string   `yaml:"model_dir"`
	Language      string   `yaml:"language"`
	Languages     []string `yaml:"languages"`
	EngineCommand string   `yaml:"engine_command"`
	AutoDownload  bool     `yaml:"auto_download"`
}

type MinutesConfig struct {
	Enabled   bool              `yaml:"enabled"`
	BaseURL   string            `yaml:"base_url"`
	APIKeyEnv string            `yaml:"api_key_env"`
	Model     string            `yaml:"model"`
	Templates map[string]string `yaml:"templates"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Minutes    MinutesConfig    `yaml:"minutes"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:        "127.0.0.1",
			Port:        8580,
			MaxUploadMB: 200,
		},
		Transcribe: TranscribeConfig{
			ChunkSeconds: 10,
			SampleRate:   16000,
			Channels:     1,
			Model:        "balanced",
			Language:     "auto",
			Languages:    []string{"en", "ja", "zh", "de", "fr", "es", "ko", "ru"},
			AutoDownload: true,
		},
		Minutes: MinutesConfig{
			Enabled:   true,
			APIKeyEnv: "VOXNOTES_MINUTES_API_KEY",
			Model:     "gpt-4o-mini",
		},
	}
}

// Load reads an optional YAML file over the defaults, then applies
// environment overrides. An empty path means defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("max upload size must be positive")
	}
	if c.Transcribe.ChunkSeconds <= 0 {
		return errors.New("chunk duration must be positive")
	}
	if c.Transcribe.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	if c.Transcribe.Channels != 1 && c.Transcribe.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Transcribe.Channels)
	}
	return nil
}

// SupportsLanguage reports whether lang may be passed to the engine.
// The auto-detect sentinel is always allowed.
func (c TranscribeConfig) SupportsLanguage(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || lang == "auto" {
		return true
	}
	for _, known := range c.Languages {
		if strings.EqualFold(known, lang) {
			return true
		}
	}
	return false
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VOXNOTES_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("VOXNOTES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VOXNOTES_MAX_UPLOAD_MB"); v != "" {
		if mb, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxUploadMB = mb
		}
	}
	if v := os.Getenv("VOXNOTES_CHUNK_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Transcribe.ChunkSeconds = secs
		}
	}
	if v := os.Getenv("VOXNOTES_MODEL"); v != "" {
		cfg.Transcribe.Model = v
	}
	if v := os.Getenv("VOXNOTES_MODEL_DIR"); v != "" {
		cfg.Transcribe.ModelDir = v
	}
	if v := os.Getenv("VOXNOTES_LANGUAGE"); v != "" {
		cfg.Transcribe.Language = v
	}
	if v := os.Getenv("VOXNOTES_ENGINE_COMMAND"); v != "" {
		cfg.Transcribe.EngineCommand = v
	}
	if v := os.Getenv("VOXNOTES_MINUTES_MODEL"); v != "" {
		cfg.Minutes.Model = v
	}
	if v := os.Getenv("VOXNOTES_MINUTES_BASE_URL"); v != "" {
		cfg.Minutes.BaseURL = v
	}
}
