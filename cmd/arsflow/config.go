package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// EngineConfig describes one external TTS engine binary. The args may use
// the {text}, {voice} and {out} placeholders.
type EngineConfig struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Binary  string   `json:"binary"`
	Args    []string `json:"args"`
}

// Config holds all arsflow server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr string         `json:"listen_addr"`
	BaseURL    string         `json:"base_url"`
	DBPath     string         `json:"db_path"`
	AudioDir   string         `json:"audio_dir"`
	LogLevel   string         `json:"log_level"`
	Token      string         `json:"token"`
	Engines    []EngineConfig `json:"engines"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr: ":4080",
		DBPath:     filepath.Join(arsflowDir(), "arsflow.db"),
		AudioDir:   filepath.Join(arsflowDir(), "audio"),
		LogLevel:   "info",
		Engines: []EngineConfig{
			{
				Name: "piper", Version: "1.2", Binary: "piper",
				Args: []string{"--model", "{voice}", "--output_file", "{out}", "--", "{text}"},
			},
			{
				Name: "espeak-ng", Version: "1.51", Binary: "espeak-ng",
				Args: []string{"-v", "{voice}", "-w", "{out}", "{text}"},
			},
		},
	}
}

func arsflowDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arsflow"
	}
	return filepath.Join(home, ".arsflow")
}

func settingsPath() string {
	return filepath.Join(arsflowDir(), "settings.json")
}

func loadConfig() Config {
	return loadConfigFrom(settingsPath())
}

func loadConfigFrom(path string) Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("ARSFLOW_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("ARSFLOW_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ARSFLOW_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ARSFLOW_AUDIO_DIR"); v != "" {
		cfg.AudioDir = v
	}
	if v := os.Getenv("ARSFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ARSFLOW_TOKEN"); v != "" {
		cfg.Token = v
	}

	// Derive base_url from listen_addr if empty.
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost" + cfg.ListenAddr
	}

	return cfg
}
