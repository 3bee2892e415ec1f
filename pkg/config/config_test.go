package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Assistant.Name != "marvin" {
		t.Errorf("Name = %q", cfg.Assistant.Name)
	}
	if got := cfg.Providers.Order; len(got) != 4 || got[0] != "groq" || got[3] != "anthropic" {
		t.Errorf("provider order = %v", got)
	}
	if cfg.Providers.Groq.APIBase != "https://api.groq.com/openai/v1" {
		t.Errorf("groq api_base = %q", cfg.Providers.Groq.APIBase)
	}
	if cfg.Knowledge.Backend != "file" {
		t.Errorf("knowledge backend = %q", cfg.Knowledge.Backend)
	}
	if !cfg.Heartbeat.Enabled || cfg.Heartbeat.Schedule == "" {
		t.Errorf("heartbeat defaults = %+v", cfg.Heartbeat)
	}
	if cfg.Automation.CommandTimeout != 15*time.Second {
		t.Errorf("command timeout = %v", cfg.Automation.CommandTimeout)
	}
	if _, ok := cfg.Automation.Applications["notepad"]; !ok {
		t.Error("default application table missing notepad")
	}
}

func TestLoadCreatesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if cfg.Assistant.Name != "marvin" {
		t.Errorf("Name = %q", cfg.Assistant.Name)
	}
	if cfg.Knowledge.Path == "" || !strings.HasSuffix(cfg.Knowledge.Path, "knowledge.json") {
		t.Errorf("knowledge path = %q", cfg.Knowledge.Path)
	}
}

func TestLoadAppliesYAMLAndKnowledgePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
assistant:
  name: jeeves
  workspace: ` + dir + `
knowledge:
  backend: sqlite
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Assistant.Name != "jeeves" {
		t.Errorf("Name = %q", cfg.Assistant.Name)
	}
	if !strings.HasSuffix(cfg.Knowledge.Path, "knowledge.db") {
		t.Errorf("sqlite backend should default to a .db path, got %q", cfg.Knowledge.Path)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MARVIN_DEBUG", "true")
	t.Setenv("MARVIN_KNOWLEDGE_BACKEND", "sqlite")
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("MARVIN_DEBUG not applied")
	}
	if cfg.Knowledge.Backend != "sqlite" {
		t.Errorf("backend = %q", cfg.Knowledge.Backend)
	}
	if cfg.Providers.Groq.APIKey != "gsk_test" || cfg.Providers.Anthropic.APIKey != "sk-ant-test" {
		t.Error("API key env vars not applied")
	}
}

func TestLoadDotenvFromWorkspace(t *testing.T) {
	dir := t.TempDir()
	if os.Getenv("OPENAI_API_KEY") != "" {
		t.Skip("OPENAI_API_KEY set in the environment")
	}
	yaml := "assistant:\n  workspace: " + dir + "\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-dotenv" {
		t.Errorf("openai key = %q, want sk-dotenv", cfg.Providers.OpenAI.APIKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Assistant.Name = "custom"
	cfg.Heartbeat.MaxPerSweep = 9

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Assistant.Name != "custom" || loaded.Heartbeat.MaxPerSweep != 9 {
		t.Errorf("round trip lost values: %+v", loaded.Assistant)
	}
}
