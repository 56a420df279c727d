package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptlab/promptlab/internal/api"
	"github.com/promptlab/promptlab/internal/svcctx"
)

// TestPromptRequest is the request body for running a prompt test.
type TestPromptRequest struct {
	SystemPrompt string   `json:"system_prompt"`
	UserInput    string   `json:"user_input"`
	Model        string   `json:"model,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// TestPromptResponse is the test outcome. Execution time is wall-clock
// seconds around the network call.
type TestPromptResponse struct {
	Response      string  `json:"response"`
	YAMLConfig    string  `json:"yaml_config"`
	ExecutionTime float64 `json:"execution_time"`
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
}

// TestPromptEndpoint handles POST /api/test-prompt.
type TestPromptEndpoint struct{}

func (e *TestPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/test-prompt", e.handler
}

func (e *TestPromptEndpoint) RequiresInit() bool { return true }

func (e *TestPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req TestPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client := svcctx.OllamaFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "ollama client not initialized")
		return
	}

	model := req.Model
	temperature := 0.0
	cfg := svcctx.ConfigFrom(r.Context())
	if model == "" && cfg != nil {
		model = cfg.Get().Ollama.DefaultModel
	}
	if req.Temperature != nil {
		temperature = *req.Temperature
	} else if cfg != nil {
		temperature = cfg.Get().Ollama.DefaultTemperature
	}

	result, err := client.Test(r.Context(), req.SystemPrompt, req.UserInput, model, temperature)
	if err != nil {
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TestPromptResponse{
		Response:      result.ResponseText,
		YAMLConfig:    result.YAMLConfig,
		ExecutionTime: result.ExecutionTime.Seconds(),
		Model:         result.Model,
		Temperature:   result.Temperature,
	})
}

func (e *TestPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req TestPromptRequest
	var temperature float64
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run a system prompt against sample input",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}
			client := api.NewClient(getServerURL())
			var resp TestPromptResponse
			if err := client.Post(cmd.Context(), "/api/test-prompt", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&req.SystemPrompt, "system-prompt", "", "System prompt text (required)")
	cmd.Flags().StringVar(&req.UserInput, "input", "", "Sample user input (required)")
	cmd.Flags().StringVar(&req.Model, "model", "", "Model to test with (default: configured model)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature (0-2)")
	cmd.MarkFlagRequired("system-prompt")
	cmd.MarkFlagRequired("input")
	return cmd
}
