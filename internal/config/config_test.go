package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 5000 {
		t.Errorf("expected default port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Ollama.Endpoint != "http://localhost:11434" {
		t.Errorf("unexpected default endpoint %s", cfg.Ollama.Endpoint)
	}
	if cfg.Ollama.DefaultModel != "llama2" {
		t.Errorf("unexpected default model %s", cfg.Ollama.DefaultModel)
	}
	if cfg.Ollama.DefaultTemperature != 0.7 {
		t.Errorf("unexpected default temperature %v", cfg.Ollama.DefaultTemperature)
	}
	if cfg.Ollama.Container.Name != "promptlab-ollama" {
		t.Errorf("unexpected container name %s", cfg.Ollama.Container.Name)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8080}
	if s.Addr() != "0.0.0.0:8080" {
		t.Errorf("expected 0.0.0.0:8080, got %s", s.Addr())
	}
}

func TestConfig_ToClientConfig(t *testing.T) {
	cfg := DefaultConfig()
	client := cfg.ToClientConfig()

	if client.HealthTimeout != 3*time.Second {
		t.Errorf("expected 3s health timeout, got %v", client.HealthTimeout)
	}
	if client.ListTimeout != 10*time.Second {
		t.Errorf("expected 10s list timeout, got %v", client.ListTimeout)
	}
	if client.RefineTimeout != 30*time.Second {
		t.Errorf("expected 30s refine timeout, got %v", client.RefineTimeout)
	}
	if client.ModelCacheTTL != 5*time.Minute {
		t.Errorf("expected 5m cache TTL, got %v", client.ModelCacheTTL)
	}
	if client.RetryAttempts != 2 {
		t.Errorf("expected 2 retry attempts, got %d", client.RetryAttempts)
	}
	if client.RetryDelay != 500*time.Millisecond {
		t.Errorf("expected 500ms retry delay, got %v", client.RetryDelay)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
server:
  host: "0.0.0.0"
  port: 9999
ollama:
  default_model: "mistral"
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.Ollama.DefaultModel != "mistral" {
			t.Errorf("expected model mistral, got %s", cfg.Ollama.DefaultModel)
		}
		// Unset keys fall back to defaults.
		if cfg.Ollama.DefaultTemperature != 0.7 {
			t.Errorf("expected default temperature 0.7, got %v", cfg.Ollama.DefaultTemperature)
		}
	})

	t.Run("falls back to defaults without config file", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		cwd, err := os.Getwd()
		if err != nil {
			t.Fatalf("Getwd() error: %v", err)
		}
		// Search paths include the working directory; run from an empty one.
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatalf("Chdir() error: %v", err)
		}
		t.Cleanup(func() { os.Chdir(cwd) })

		mgr, err := NewManager("")
		if err != nil {
			t.Fatalf("failed to create manager without file: %v", err)
		}
		if mgr.Get().Server.Port != 5000 {
			t.Errorf("expected default port, got %d", mgr.Get().Server.Port)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to load written default config: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Server.Port != DefaultConfig().Server.Port {
		t.Errorf("round-tripped port %d does not match default", cfg.Server.Port)
	}
	if cfg.Ollama.Container.Image != DefaultConfig().Ollama.Container.Image {
		t.Errorf("round-tripped image %s does not match default", cfg.Ollama.Container.Image)
	}
}
