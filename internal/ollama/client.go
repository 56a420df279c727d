// Package ollama talks to a local Ollama instance over its native HTTP API.
// The client owns the retry/timeout policy: transport-level failures on
// model listing and prompt testing are retried with exponential backoff,
// refinement and health checks are never retried, and every operation kind
// carries an independent in-flight guard.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"gopkg.in/yaml.v3"

	"github.com/promptlab/promptlab/internal/fault"
)

const (
	DefaultEndpoint = "http://localhost:11434"

	DefaultHealthTimeout = 3 * time.Second
	DefaultListTimeout   = 10 * time.Second
	DefaultRefineTimeout = 30 * time.Second
	DefaultTestTimeout   = 30 * time.Second
	DefaultModelCacheTTL = 5 * time.Minute

	// DefaultRetryAttempts is the number of retries after the initial
	// attempt, applied only to transport-level failures.
	DefaultRetryAttempts = 2
	DefaultRetryDelay    = 500 * time.Millisecond

	maxObjectiveLength = 5000
	maxUserInputLength = 10000

	// refineTemperature keeps refinement output consistent across runs.
	refineTemperature = 0.3
	defaultTopP       = 0.9
)

// Config holds client configuration. Zero values fall back to defaults.
type Config struct {
	Endpoint      string
	HealthTimeout time.Duration
	ListTimeout   time.Duration
	RefineTimeout time.Duration
	TestTimeout   time.Duration
	ModelCacheTTL time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
	Logger        *slog.Logger
}

// Client is an HTTP client for the Ollama API.
type Client struct {
	endpoint      string
	healthTimeout time.Duration
	listTimeout   time.Duration
	refineTimeout time.Duration
	testTimeout   time.Duration
	retryAttempts uint
	retryDelay    time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
	guards        *inflight
	cache         *modelCache
}

// NewClient creates a new Ollama client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.HealthTimeout == 0 {
		cfg.HealthTimeout = DefaultHealthTimeout
	}
	if cfg.ListTimeout == 0 {
		cfg.ListTimeout = DefaultListTimeout
	}
	if cfg.RefineTimeout == 0 {
		cfg.RefineTimeout = DefaultRefineTimeout
	}
	if cfg.TestTimeout == 0 {
		cfg.TestTimeout = DefaultTestTimeout
	}
	if cfg.ModelCacheTTL == 0 {
		cfg.ModelCacheTTL = DefaultModelCacheTTL
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		healthTimeout: cfg.HealthTimeout,
		listTimeout:   cfg.ListTimeout,
		refineTimeout: cfg.RefineTimeout,
		testTimeout:   cfg.TestTimeout,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		// Per-request deadlines come from contexts, not a client-wide timeout.
		httpClient: &http.Client{},
		logger:     cfg.Logger,
		guards:     newInflight(),
		cache:      &modelCache{ttl: cfg.ModelCacheTTL},
	}
}

// Endpoint returns the configured base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Health describes the outcome of a connection check.
type Health struct {
	Connected bool   `json:"connected"`
	Endpoint  string `json:"endpoint"`
	Message   string `json:"message"`
}

// CheckHealth performs a single short-deadline request against the model
// list endpoint. It is never retried; the result feeds UI status only.
// The returned error is non-nil only when a health check is already pending.
func (c *Client) CheckHealth(ctx context.Context) (Health, error) {
	if err := c.guards.acquire(OpHealth); err != nil {
		return Health{}, err
	}
	defer c.guards.release(OpHealth)

	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	if _, err := c.getJSON(ctx, "/api/tags"); err != nil {
		return Health{
			Connected: false,
			Endpoint:  c.endpoint,
			Message:   fault.DetailOf(c.classify(err)),
		}, nil
	}

	return Health{
		Connected: true,
		Endpoint:  c.endpoint,
		Message:   "successfully connected to Ollama",
	}, nil
}

const metaPromptTemplate = `You are an expert prompt engineer. Your task is to convert a simple objective into a detailed, effective system prompt that will guide an AI assistant to achieve that objective.

Guidelines for creating system prompts:
1. Be specific and clear about the role and behavior expected
2. Include relevant context and constraints
3. Specify the desired output format if applicable
4. Add examples or templates when helpful
5. Include error handling or edge case instructions
6. Make it actionable and measurable

The objective to convert into a system prompt is:
%s

Create a comprehensive system prompt that will effectively guide an AI to accomplish this objective. Return only the system prompt text, without any additional commentary or explanation.`

// Refine converts a simple objective into a detailed system prompt using a
// fixed meta-prompt. Refinement is user-triggered and long-running, so it is
// never retried.
func (c *Client) Refine(ctx context.Context, objective, targetModel string) (string, error) {
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return "", fault.New(fault.Validation, "objective cannot be empty")
	}
	if len(objective) > maxObjectiveLength {
		return "", fault.New(fault.Validation, "objective cannot exceed %d characters", maxObjectiveLength)
	}
	if strings.TrimSpace(targetModel) == "" {
		return "", fault.New(fault.Validation, "target model cannot be empty")
	}

	if err := c.guards.acquire(OpRefine); err != nil {
		return "", err
	}
	defer c.guards.release(OpRefine)

	ctx, cancel := context.WithTimeout(ctx, c.refineTimeout)
	defer cancel()

	text, err := c.generate(ctx, generateRequest{
		Model:  targetModel,
		Prompt: fmt.Sprintf(metaPromptTemplate, objective),
		Options: generateOptions{
			Temperature: refineTemperature,
			TopP:        defaultTopP,
		},
	}, false)
	if err != nil {
		return "", err
	}

	refined := strings.TrimSpace(text)
	if refined == "" {
		return "", fault.New(fault.MalformedResponse, "received empty response from Ollama during prompt refinement")
	}
	return refined, nil
}

// TestResult holds the outcome of a single prompt test run. Results are
// transient and never persisted.
type TestResult struct {
	ResponseText  string
	YAMLConfig    string
	ExecutionTime time.Duration
	Model         string
	Temperature   float64
}

// testConfig serializes the test parameters in a fixed key order so the
// rendered YAML is byte-identical for identical input.
type testConfig struct {
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
	UserInput    string  `yaml:"user_input"`
}

// Test runs a system prompt against user input and measures wall-clock
// execution time around the network call.
func (c *Client) Test(ctx context.Context, systemPrompt, userInput, model string, temperature float64) (*TestResult, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userInput = strings.TrimSpace(userInput)
	model = strings.TrimSpace(model)

	switch {
	case systemPrompt == "":
		return nil, fault.New(fault.Validation, "system prompt cannot be empty")
	case userInput == "":
		return nil, fault.New(fault.Validation, "user input cannot be empty")
	case len(userInput) > maxUserInputLength:
		return nil, fault.New(fault.Validation, "user input cannot exceed %d characters", maxUserInputLength)
	case model == "":
		return nil, fault.New(fault.Validation, "model cannot be empty")
	case temperature < 0.0 || temperature > 2.0:
		return nil, fault.New(fault.Validation, "temperature must be between 0.0 and 2.0")
	}

	if err := c.guards.acquire(OpTest); err != nil {
		return nil, err
	}
	defer c.guards.release(OpTest)

	cfgYAML, err := yaml.Marshal(testConfig{
		Model:        model,
		SystemPrompt: systemPrompt,
		Temperature:  temperature,
		UserInput:    userInput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize test configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.testTimeout)
	defer cancel()

	start := time.Now()
	text, err := c.generate(ctx, generateRequest{
		Model:  model,
		Prompt: fmt.Sprintf("%s\n\nUser: %s\n\nAssistant:", systemPrompt, userInput),
		Options: generateOptions{
			Temperature: temperature,
			TopP:        defaultTopP,
		},
	}, true)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	response := strings.TrimSpace(text)
	if response == "" {
		return nil, fault.New(fault.MalformedResponse, "received empty response from Ollama during prompt testing")
	}

	return &TestResult{
		ResponseText:  response,
		YAMLConfig:    string(cfgYAML),
		ExecutionTime: elapsed,
		Model:         model,
		Temperature:   temperature,
	}, nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// generate posts to /api/generate and returns the raw response text.
// withRetry enables the transport-failure retry policy.
func (c *Client) generate(ctx context.Context, req generateRequest, withRetry bool) (string, error) {
	req.Stream = false

	call := func() ([]byte, error) {
		return c.postJSON(ctx, "/api/generate", req)
	}

	var body []byte
	var err error
	if withRetry {
		body, err = c.withTransportRetry(ctx, call)
	} else {
		body, err = call()
	}
	if err != nil {
		return "", c.classify(err)
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fault.Wrap(fault.MalformedResponse, err, "failed to parse generate response")
	}
	return resp.Response, nil
}

// withTransportRetry retries the call for connection-level failures only.
// Received error responses and deadline expiry are never retried.
func (c *Client) withTransportRetry(ctx context.Context, call func() ([]byte, error)) ([]byte, error) {
	return retry.DoWithData(
		call,
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts+1),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransportErr),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying Ollama request", "attempt", n+1, "error", err)
		}),
	)
}

// transportError marks a connection-level failure, the only class of
// failure the retry policy applies to.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isTransportErr(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

// statusError is an error response that was successfully received.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("Ollama API error: %d - %s", e.status, e.body)
}

func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	return c.roundTrip(ctx, http.MethodGet, path, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.roundTrip(ctx, http.MethodPost, path, body)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transportError{err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

// classify maps wire-level failures onto the fault taxonomy.
func (c *Client) classify(err error) error {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fault.Wrap(fault.Timeout, err, "request to Ollama timed out")
	}
	var se *statusError
	if errors.As(err, &se) {
		return fault.Wrap(fault.ServiceUnavailable, err, "Ollama returned an error response")
	}
	return fault.Wrap(fault.ServiceUnavailable, err, "failed to connect to Ollama at %s", c.endpoint)
}
