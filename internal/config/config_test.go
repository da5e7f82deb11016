package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/nada/internal/resolver"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":3000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Engine.Namespace != "hackathon.agent" || cfg.Engine.FlowID != "nada-agentic-pipeline" {
		t.Errorf("flow = %s/%s", cfg.Engine.Namespace, cfg.Engine.FlowID)
	}
	if cfg.Answer.TaskID != "final_gemini_analysis" {
		t.Errorf("TaskID = %q", cfg.Answer.TaskID)
	}
	if cfg.Poll.Interval != 2*time.Second {
		t.Errorf("Interval = %v, want 2s", cfg.Poll.Interval)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("defaults without base URL should not validate")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nada.yaml")
	content := `
engine:
  base_url: http://kestra.internal:8080
  flow_id: other-flow
poll:
  interval: 500ms
  max_attempts: 30
  unknown_state: failed
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvAuthorization, "Basic abc")
	t.Setenv(EnvPollInterval, "1s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.BaseURL != "http://kestra.internal:8080" {
		t.Errorf("BaseURL = %q", cfg.Engine.BaseURL)
	}
	if cfg.Engine.FlowID != "other-flow" {
		t.Errorf("FlowID = %q", cfg.Engine.FlowID)
	}
	if cfg.Engine.Namespace != "hackathon.agent" {
		t.Errorf("Namespace = %q, default should survive partial file", cfg.Engine.Namespace)
	}
	if cfg.Engine.Authorization != "Basic abc" {
		t.Errorf("Authorization = %q", cfg.Engine.Authorization)
	}
	if cfg.Poll.Interval != time.Second {
		t.Errorf("Interval = %v, env should win over file", cfg.Poll.Interval)
	}
	if cfg.Poll.MaxAttempts != 30 {
		t.Errorf("MaxAttempts = %d", cfg.Poll.MaxAttempts)
	}
	if cfg.Poll.UnknownState != resolver.UnknownAsFailed {
		t.Errorf("UnknownState = %q", cfg.Poll.UnknownState)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv_BadValues(t *testing.T) {
	env := map[string]string{EnvPollAttempts: "many"}
	cfg := Default()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err == nil {
		t.Error("expected error for non-numeric attempts")
	}
}

func TestApplyEnv_UnknownState(t *testing.T) {
	cfg := Default()
	env := map[string]string{EnvUnknownState: "failed"}
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Poll.UnknownState != resolver.UnknownAsFailed {
		t.Errorf("UnknownState = %q, want failed", cfg.Poll.UnknownState)
	}
	if got := cfg.Resolver().UnknownState; got != resolver.UnknownAsFailed {
		t.Errorf("Resolver().UnknownState = %q, want failed", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Engine.BaseURL = "http://localhost:8080"
	cfg.Poll.Interval = 0
	cfg.Poll.UnknownState = "explode"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"interval", "unknown_state"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Engine.BaseURL = "http://localhost:8080"
	cfg.Engine.Authorization = "Basic abc"
	cfg.Poll.MaxAttempts = 5

	if kc := cfg.Kestra(); kc.BaseURL != cfg.Engine.BaseURL || kc.Authorization != "Basic abc" {
		t.Errorf("Kestra() = %+v", kc)
	}
	if rc := cfg.Resolver(); rc.Extractor.Marker != cfg.Answer.Marker {
		t.Errorf("Resolver() marker = %q", rc.Extractor.Marker)
	}
	if pc := cfg.Poller(); pc.MaxAttempts != 5 || pc.Interval != 2*time.Second {
		t.Errorf("Poller() = %+v", pc)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Engine.Authorization = "Basic secret"
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "secret") {
		t.Errorf("redacted output leaks credential:\n%s", out)
	}
	if cfg.Engine.Authorization != "Basic secret" {
		t.Error("Redacted modified the receiver")
	}
}
