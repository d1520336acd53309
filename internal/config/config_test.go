package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Chat.DefaultTitle != "新規作成" {
		t.Errorf("Chat.DefaultTitle = %q", cfg.Chat.DefaultTitle)
	}
	if cfg.Chat.TitleMaxTokens != 10 {
		t.Errorf("Chat.TitleMaxTokens = %d, want 10", cfg.Chat.TitleMaxTokens)
	}
	if cfg.Auth.CookieName != "session" {
		t.Errorf("Auth.CookieName = %q, want session", cfg.Auth.CookieName)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis should be disabled by default")
	}
	if Get() != cfg {
		t.Error("Get() should return the loaded config")
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
chat:
  defaultTitle: "New chat"
bootstrap:
  workflows:
    - title: "GPT"
      model: "gpt-4o-mini"
      apiKey: "sk-test"
      systemPrompt: "You are helpful."
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEXT_CHAT_DATABASE_HOST", "db.internal")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Chat.DefaultTitle != "New chat" {
		t.Errorf("Chat.DefaultTitle = %q, want %q", cfg.Chat.DefaultTitle, "New chat")
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want db.internal", cfg.Database.Host)
	}
	if len(cfg.Bootstrap.Workflows) != 1 || cfg.Bootstrap.Workflows[0].Model != "gpt-4o-mini" {
		t.Errorf("Bootstrap.Workflows = %+v", cfg.Bootstrap.Workflows)
	}
}

func TestDurations(t *testing.T) {
	auth := AuthConfig{SessionTTL: 2}
	if got := auth.SessionDuration().Hours(); got != 2 {
		t.Errorf("SessionDuration() = %vh, want 2h", got)
	}
	p := PresenceConfig{IdleTimeout: 600}
	if got := p.IdleDuration().Minutes(); got != 10 {
		t.Errorf("IdleDuration() = %vm, want 10m", got)
	}
}
