// Package config loads and persists marvin's configuration.
// Resolution order: built-in defaults, then the YAML config file, then a
// .env file in the workspace, then process environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Assistant  AssistantConfig  `yaml:"assistant"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Automation AutomationConfig `yaml:"automation"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Debug      bool             `yaml:"debug" env:"MARVIN_DEBUG"`
}

type AssistantConfig struct {
	Name string `yaml:"name"`
	// Workspace holds the knowledge store, event log, sessions and state.
	Workspace string `yaml:"workspace" env:"MARVIN_WORKSPACE"`
	// MemoryEvents is how many recent event-log lines are included as
	// context in solver prompts.
	MemoryEvents int `yaml:"memory_events"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	APIBase string `yaml:"api_base,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type ProvidersConfig struct {
	// Order is the fallback order for the solver gateway. Each listed
	// provider is tried once; the first non-empty answer wins.
	Order     []string       `yaml:"order"`
	Groq      ProviderConfig `yaml:"groq"`
	Gemini    ProviderConfig `yaml:"gemini"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
}

type KnowledgeConfig struct {
	// Backend selects the store implementation: "file" (single-writer JSON
	// document) or "sqlite" (embedded transactional store, safe for
	// concurrent writers such as the config panel).
	Backend string `yaml:"backend" env:"MARVIN_KNOWLEDGE_BACKEND"`
	Path    string `yaml:"path,omitempty"`
	// WatchExternal reloads the file backend when another process rewrites
	// the store document. Ignored by the sqlite backend.
	WatchExternal bool `yaml:"watch_external"`
}

type AutomationConfig struct {
	// Applications maps spoken application names to launch commands.
	Applications   map[string]string `yaml:"applications"`
	SearchEngine   string            `yaml:"search_engine"`
	ScreenshotPath string            `yaml:"screenshot_path"`
	CommandTimeout time.Duration     `yaml:"command_timeout"`
	// Browser enables the rod-driven browser for web searches; when false
	// searches open in the system default browser.
	Browser bool `yaml:"browser"`
}

type HeartbeatConfig struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a cron expression controlling when unresolved tasks are
	// retried against the solver gateway.
	Schedule    string `yaml:"schedule"`
	MaxPerSweep int    `yaml:"max_per_sweep"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	workspace := filepath.Join(home, ".marvin")

	return &Config{
		Assistant: AssistantConfig{
			Name:         "marvin",
			Workspace:    workspace,
			MemoryEvents: 10,
		},
		Providers: ProvidersConfig{
			Order: []string{"groq", "gemini", "openai", "anthropic"},
			Groq: ProviderConfig{
				APIBase: "https://api.groq.com/openai/v1",
				Model:   "llama3-70b-8192",
			},
			Gemini:    ProviderConfig{Model: "gemini-2.0-flash"},
			OpenAI:    ProviderConfig{Model: "gpt-4o-mini"},
			Anthropic: ProviderConfig{Model: "claude-sonnet-4-5-20250929"},
		},
		Knowledge: KnowledgeConfig{
			Backend:       "file",
			WatchExternal: true,
		},
		Automation: AutomationConfig{
			Applications:   defaultApplications(),
			SearchEngine:   "https://duckduckgo.com/?q=",
			ScreenshotPath: filepath.Join(workspace, "screenshots"),
			CommandTimeout: 15 * time.Second,
			Browser:        false,
		},
		Heartbeat: HeartbeatConfig{
			Enabled:     true,
			Schedule:    "*/30 * * * *",
			MaxPerSweep: 5,
		},
	}
}

// defaultApplications mirrors the launch table users expect out of the box.
// Names are what people say; values are what the OS runs.
func defaultApplications() map[string]string {
	return map[string]string{
		"edge":          "msedge",
		"brave":         "brave",
		"notepad":       "notepad",
		"word":          "winword",
		"excel":         "excel",
		"powerpoint":    "powerpnt",
		"outlook":       "outlook",
		"powershell":    "powershell",
		"file explorer": "explorer",
		"calculator":    "calc",
		"task manager":  "taskmgr",
		"control panel": "control",
		"spotify":       "spotify",
		"teams":         "teams",
		"zoom":          "zoom",
		"paint":         "mspaint",
		"terminal":      "wt",
		"files":         "nautilus",
		"text editor":   "gedit",
	}
}

// Load reads the config file at path, creating it with defaults if absent,
// and applies .env plus environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	// .env in the workspace, then next to the config file. Missing files
	// are fine; godotenv never overrides variables already set.
	_ = godotenv.Load(filepath.Join(cfg.Assistant.Workspace, ".env"))
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}
	applyKeyEnv(cfg)

	if cfg.Knowledge.Path == "" {
		ext := "json"
		if cfg.Knowledge.Backend == "sqlite" {
			ext = "db"
		}
		cfg.Knowledge.Path = filepath.Join(cfg.Assistant.Workspace, "data", "knowledge."+ext)
	}

	return cfg, nil
}

// applyKeyEnv picks up the conventional *_API_KEY variables so keys never
// have to live in the YAML file.
func applyKeyEnv(cfg *Config) {
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Providers.Groq.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Providers.Gemini.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.Anthropic.APIKey = v
	}
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// DefaultPath is the config file location used when --config is not given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "marvin.yaml"
	}
	return filepath.Join(home, ".marvin", "config.yaml")
}
