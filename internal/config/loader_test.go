package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("MUSEFLOW_TEST_SET", "from-env")

	tests := []struct {
		in   string
		want string
	}{
		{"key: ${MUSEFLOW_TEST_SET}", "key: from-env"},
		{"key: ${MUSEFLOW_TEST_SET:fallback}", "key: from-env"},
		{"key: ${MUSEFLOW_TEST_UNSET:fallback}", "key: fallback"},
		{"key: ${MUSEFLOW_TEST_UNSET:}", "key: "},
		{"key: ${MUSEFLOW_TEST_UNSET}", "key: ${MUSEFLOW_TEST_UNSET}"},
	}
	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.Key != "museflow_sessions" {
		t.Errorf("Storage.Key = %q, want museflow_sessions", cfg.Storage.Key)
	}
	if cfg.Storage.SaveDebounce != 500*time.Millisecond {
		t.Errorf("Storage.SaveDebounce = %v, want 500ms", cfg.Storage.SaveDebounce)
	}
	if cfg.LLM.DefaultModel != "creative" {
		t.Errorf("LLM.DefaultModel = %q, want creative", cfg.LLM.DefaultModel)
	}
	opt, ok := cfg.LLM.ResolveModel("fast")
	if !ok || opt.Model != "gemini-3-flash-preview" {
		t.Errorf("ResolveModel(fast) = %+v, %v", opt, ok)
	}
	if cfg.LLM.Chat.TopK != 64 {
		t.Errorf("LLM.Chat.TopK = %d, want 64", cfg.LLM.Chat.TopK)
	}
	if cfg.Install.Installed {
		t.Error("Install.Installed should default to false")
	}
}

func TestLoadFromInstallFlag(t *testing.T) {
	dir := t.TempDir()
	content := "install:\n  installed: ${MUSEFLOW_TEST_INSTALLED:false}\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Install.Installed {
		t.Error("Install.Installed = true without the env var")
	}

	t.Setenv("MUSEFLOW_TEST_INSTALLED", "true")
	cfg, err = LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if !cfg.Install.Installed {
		t.Error("Install.Installed = false, want true from env")
	}
}

func TestLoadFromFileAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	base := `
storage:
  driver: memory
  save_debounce: 50ms
llm:
  chat_models:
    - id: creative
      model: model-a
      label: A
  default_model: creative
  title_model: creative
  suggestion_model: creative
`
	overlay := `
storage:
  save_debounce: 10ms
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(base), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.test.yaml"), []byte(overlay), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Storage.SaveDebounce != 10*time.Millisecond {
		t.Errorf("Storage.SaveDebounce = %v, want 10ms", cfg.Storage.SaveDebounce)
	}
	if got := cfg.LLM.ModelIDs(); len(got) != 1 || got[0] != "creative" {
		t.Errorf("ModelIDs = %v, want [creative]", got)
	}
}

func TestLoadFromRejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage:\n  driver: floppy\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(dir); err == nil {
		t.Fatal("LoadFrom should reject an unknown storage driver")
	}
}
