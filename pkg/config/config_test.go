package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8089" {
		t.Errorf("Expected Port to be 8089, got %s", cfg.Port)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if len(cfg.Models) == 0 {
		t.Error("Expected default model pool to be non-empty")
	}

	if cfg.FusionParams.MarketBlendAlpha != 0.8 {
		t.Errorf("Expected default MarketBlendAlpha 0.8, got %v", cfg.FusionParams.MarketBlendAlpha)
	}
}

func TestLoad_WithCustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("LOG_LEVEL", "info")

	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ENV")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel to be info, got %s", cfg.LogLevel)
	}
}

func TestLoad_CustomModelsConfig(t *testing.T) {
	os.Setenv("MODELS_CONFIG", `[{"id":"only-model","endpoint":"http://x","baseWeight":1,"enabled":true}]`)
	defer os.Unsetenv("MODELS_CONFIG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].ID != "only-model" {
		t.Errorf("expected single model 'only-model', got %+v", cfg.Models)
	}
}

func TestLoad_InvalidModelsConfigJSON(t *testing.T) {
	os.Setenv("MODELS_CONFIG", `not json`)
	defer os.Unsetenv("MODELS_CONFIG")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid MODELS_CONFIG JSON")
	}
}

func TestLoad_InvalidEnvRejected(t *testing.T) {
	os.Setenv("ENV", "invalid")
	defer os.Unsetenv("ENV")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when ENV is invalid, got nil")
	}
}

func TestValidate_NoEnabledModelsRejected(t *testing.T) {
	cfg := &Config{
		Env:    "development",
		Models: []ModelConfig{{ID: "m1", BaseWeight: 1, Enabled: false}},
		FusionParams: FusionParams{MarketBlendAlpha: 0.5},
	}
	if err := cfg.validate(); err == nil {
		t.Error("expected error when no models are enabled")
	}
}

func TestValidate_DuplicateModelIDRejected(t *testing.T) {
	cfg := &Config{
		Env: "development",
		Models: []ModelConfig{
			{ID: "dup", BaseWeight: 1, Enabled: true},
			{ID: "dup", BaseWeight: 1, Enabled: true},
		},
		FusionParams: FusionParams{MarketBlendAlpha: 0.5},
	}
	if err := cfg.validate(); err == nil {
		t.Error("expected error for duplicate model id")
	}
}

func TestValidate_UnknownFallbackRejected(t *testing.T) {
	cfg := &Config{
		Env: "development",
		Models: []ModelConfig{
			{ID: "m1", BaseWeight: 1, Enabled: true, Fallback: "ghost"},
		},
		FusionParams: FusionParams{MarketBlendAlpha: 0.5},
	}
	if err := cfg.validate(); err == nil {
		t.Error("expected error for unknown fallback model id")
	}
}

func TestValidate_MarketBlendAlphaOutOfRangeRejected(t *testing.T) {
	cfg := &Config{
		Env:          "development",
		Models:       []ModelConfig{{ID: "m1", BaseWeight: 1, Enabled: true}},
		FusionParams: FusionParams{MarketBlendAlpha: 1.5},
	}
	if err := cfg.validate(); err == nil {
		t.Error("expected error for out-of-range MarketBlendAlpha")
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "2h")
	defer os.Unsetenv("TEST_DURATION")

	duration := getEnvAsDuration("TEST_DURATION", "1h")
	expected := 2 * time.Hour

	if duration != expected {
		t.Errorf("Expected duration to be %v, got %v", expected, duration)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	os.Setenv("TEST_INT", "100")
	defer os.Unsetenv("TEST_INT")

	value := getEnvAsInt("TEST_INT", 50)
	if value != 100 {
		t.Errorf("Expected value to be 100, got %d", value)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	os.Setenv("TEST_BOOL", "true")
	defer os.Unsetenv("TEST_BOOL")

	value := getEnvAsBool("TEST_BOOL", false)
	if value != true {
		t.Errorf("Expected value to be true, got %v", value)
	}
}

func TestGetEnvAsList(t *testing.T) {
	os.Setenv("TEST_LIST", "a, b ,c")
	defer os.Unsetenv("TEST_LIST")

	got := getEnvAsList("TEST_LIST", []string{"default"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}
