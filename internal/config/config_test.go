package config

import (
	"strings"
	"testing"
)

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("CHECKAUD_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded without API key")
	}
	if !strings.Contains(err.Error(), "CHECKAUD_API_KEY") {
		t.Errorf("error = %v, want a hint at the env var", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHECKAUD_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTries != 3 {
		t.Errorf("MaxTries = %d, want 3", cfg.LLM.MaxTries)
	}
	if !cfg.Pipeline.NewChecklists {
		t.Error("NewChecklists default should be true")
	}
	if cfg.Pipeline.ExtractISOKnowledge {
		t.Error("ExtractISOKnowledge default should be false")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHECKAUD_API_KEY", "sk-test")
	t.Setenv("CHECKAUD_MODEL", "gpt-4o-mini")
	t.Setenv("CHECKAUD_TEMPERATURE", "0.7")
	t.Setenv("CHECKAUD_MAX_TRIES", "5")
	t.Setenv("CHECKAUD_ADD_WP_CONTEXT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("Temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTries != 5 {
		t.Errorf("MaxTries = %d", cfg.LLM.MaxTries)
	}
	if !cfg.Pipeline.AddContext {
		t.Error("AddContext not applied from env")
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("CHECKAUD_API_KEY", "sk-test")
	t.Setenv("CHECKAUD_MAX_TRIES", "many")

	if _, err := Load(); err == nil {
		t.Error("Load() accepted non-integer max tries")
	}
}

func TestLoad_RejectsNegativeMaxTries(t *testing.T) {
	t.Setenv("CHECKAUD_API_KEY", "sk-test")
	t.Setenv("CHECKAUD_MAX_TRIES", "-1")

	if _, err := Load(); err == nil {
		t.Error("Load() accepted negative max tries")
	}
}

func TestDescribe_MasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.LLM.APIKey = "sk-secret"

	for _, kv := range Describe(cfg) {
		if kv[0] == "llm.api_key" {
			if kv[1] != "(set)" {
				t.Errorf("api key displayed as %q", kv[1])
			}
			return
		}
	}
	t.Error("llm.api_key missing from Describe output")
}
