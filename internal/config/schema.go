package config

import (
	"fmt"
	"time"

	"github.com/promptlab/promptlab/internal/ollama"
)

// Config holds promptlab configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	Ollama   OllamaConfig   `mapstructure:"ollama" yaml:"ollama" json:"ollama"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database" json:"database"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	Port int    `mapstructure:"port" yaml:"port" json:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OllamaConfig configures the Ollama client and the defaults applied to
// new prompts.
type OllamaConfig struct {
	Endpoint           string  `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	DefaultModel       string  `mapstructure:"default_model" yaml:"default_model" json:"default_model"`
	DefaultTemperature float64 `mapstructure:"default_temperature" yaml:"default_temperature" json:"default_temperature"`

	// Timeouts in seconds, per operation kind.
	HealthTimeoutSeconds int `mapstructure:"health_timeout_seconds" yaml:"health_timeout_seconds" json:"health_timeout_seconds"`
	ListTimeoutSeconds   int `mapstructure:"list_timeout_seconds" yaml:"list_timeout_seconds" json:"list_timeout_seconds"`
	RefineTimeoutSeconds int `mapstructure:"refine_timeout_seconds" yaml:"refine_timeout_seconds" json:"refine_timeout_seconds"`
	TestTimeoutSeconds   int `mapstructure:"test_timeout_seconds" yaml:"test_timeout_seconds" json:"test_timeout_seconds"`

	ModelCacheTTLSeconds int `mapstructure:"model_cache_ttl_seconds" yaml:"model_cache_ttl_seconds" json:"model_cache_ttl_seconds"`

	RetryAttempts    uint `mapstructure:"retry_attempts" yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelayMillis int  `mapstructure:"retry_delay_millis" yaml:"retry_delay_millis" json:"retry_delay_millis"`

	Container ContainerConfig `mapstructure:"container" yaml:"container" json:"container"`
}

// ContainerConfig holds managed Ollama container configuration.
type ContainerConfig struct {
	// Name is the Docker container name (default: promptlab-ollama)
	Name string `mapstructure:"name" yaml:"name" json:"name"`
	// Image is the Docker image to use (default: ollama/ollama:latest)
	Image string `mapstructure:"image" yaml:"image" json:"image"`
	// Port is the host port to bind (default: 11434)
	Port string `mapstructure:"port" yaml:"port" json:"port"`
}

// DatabaseConfig configures the prompt store. An empty path resolves to
// the database file under the promptlab home directory.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 5000,
		},
		Ollama: OllamaConfig{
			Endpoint:             ollama.DefaultEndpoint,
			DefaultModel:         "llama2",
			DefaultTemperature:   0.7,
			HealthTimeoutSeconds: int(ollama.DefaultHealthTimeout / time.Second),
			ListTimeoutSeconds:   int(ollama.DefaultListTimeout / time.Second),
			RefineTimeoutSeconds: int(ollama.DefaultRefineTimeout / time.Second),
			TestTimeoutSeconds:   int(ollama.DefaultTestTimeout / time.Second),
			ModelCacheTTLSeconds: int(ollama.DefaultModelCacheTTL / time.Second),
			RetryAttempts:        ollama.DefaultRetryAttempts,
			RetryDelayMillis:     int(ollama.DefaultRetryDelay / time.Millisecond),
			Container: ContainerConfig{
				Name:  ollama.DefaultContainerName,
				Image: ollama.DefaultImage,
				Port:  ollama.DefaultPort,
			},
		},
		Database: DatabaseConfig{
			Path: "",
		},
	}
}

// ToClientConfig converts the Ollama section into a client configuration.
func (c *Config) ToClientConfig() ollama.Config {
	o := c.Ollama
	return ollama.Config{
		Endpoint:      o.Endpoint,
		HealthTimeout: time.Duration(o.HealthTimeoutSeconds) * time.Second,
		ListTimeout:   time.Duration(o.ListTimeoutSeconds) * time.Second,
		RefineTimeout: time.Duration(o.RefineTimeoutSeconds) * time.Second,
		TestTimeout:   time.Duration(o.TestTimeoutSeconds) * time.Second,
		ModelCacheTTL: time.Duration(o.ModelCacheTTLSeconds) * time.Second,
		RetryAttempts: o.RetryAttempts,
		RetryDelay:    time.Duration(o.RetryDelayMillis) * time.Millisecond,
	}
}
