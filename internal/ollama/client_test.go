package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/promptlab/promptlab/internal/fault"
)

func newTestClient(endpoint string) *Client {
	return NewClient(Config{
		Endpoint:      endpoint,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})
}

func TestCheckHealth(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/tags" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			fmt.Fprint(w, `{"models":[]}`)
		}))
		defer srv.Close()

		h, err := newTestClient(srv.URL).CheckHealth(context.Background())
		if err != nil {
			t.Fatalf("CheckHealth() error: %v", err)
		}
		if !h.Connected {
			t.Errorf("expected connected, got message %q", h.Message)
		}
		if h.Endpoint != srv.URL {
			t.Errorf("expected endpoint %s, got %s", srv.URL, h.Endpoint)
		}
	})

	t.Run("unreachable reports disconnected without error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		h, err := newTestClient(srv.URL).CheckHealth(context.Background())
		if err != nil {
			t.Fatalf("CheckHealth() error: %v", err)
		}
		if h.Connected {
			t.Error("expected disconnected")
		}
		if h.Message == "" {
			t.Error("expected failure message")
		}
	})
}

func TestListModels(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"models":[{"name":"llama2"},{"name":"mistral"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	ctx := context.Background()

	models, err := c.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels() error: %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama2" {
		t.Fatalf("unexpected models: %v", models)
	}

	t.Run("second call served from cache", func(t *testing.T) {
		if _, err := c.ListModels(ctx); err != nil {
			t.Fatalf("ListModels() error: %v", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("expected 1 upstream call, got %d", got)
		}
	})

	t.Run("refresh bypasses cache", func(t *testing.T) {
		if _, err := c.RefreshModels(ctx); err != nil {
			t.Fatalf("RefreshModels() error: %v", err)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("expected 2 upstream calls, got %d", got)
		}
	})

	t.Run("clear forces refetch", func(t *testing.T) {
		c.ClearModelCache()
		if _, err := c.ListModels(ctx); err != nil {
			t.Fatalf("ListModels() error: %v", err)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("expected 3 upstream calls, got %d", got)
		}
	})
}

func TestModelCacheInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"llama2"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	info := c.ModelCacheInfo()
	if info.Cached {
		t.Error("expected empty cache before first fetch")
	}

	if _, err := c.ListModels(context.Background()); err != nil {
		t.Fatalf("ListModels() error: %v", err)
	}
	info = c.ModelCacheInfo()
	if !info.Cached || !info.CacheValid {
		t.Errorf("expected valid cache, got %+v", info)
	}
	if info.ModelsCount != 1 {
		t.Errorf("expected 1 model, got %d", info.ModelsCount)
	}
}

func TestRefine(t *testing.T) {
	t.Run("returns trimmed refined prompt", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req generateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}
			if req.Stream {
				t.Error("expected stream to be disabled")
			}
			if !strings.Contains(req.Prompt, "summarize legal documents") {
				t.Error("expected objective embedded in meta prompt")
			}
			if req.Options.Temperature != refineTemperature {
				t.Errorf("expected refine temperature %v, got %v", refineTemperature, req.Options.Temperature)
			}
			fmt.Fprint(w, `{"response":"  You are a legal summarizer.  "}`)
		}))
		defer srv.Close()

		got, err := newTestClient(srv.URL).Refine(context.Background(), "summarize legal documents", "llama2")
		if err != nil {
			t.Fatalf("Refine() error: %v", err)
		}
		if got != "You are a legal summarizer." {
			t.Errorf("unexpected refined prompt: %q", got)
		}
	})

	t.Run("empty objective", func(t *testing.T) {
		_, err := newTestClient("http://localhost:1").Refine(context.Background(), "   ", "llama2")
		if !fault.Is(err, fault.Validation) {
			t.Errorf("expected validation fault, got %v", err)
		}
	})

	t.Run("objective too long", func(t *testing.T) {
		_, err := newTestClient("http://localhost:1").Refine(context.Background(), strings.Repeat("a", maxObjectiveLength+1), "llama2")
		if !fault.Is(err, fault.Validation) {
			t.Errorf("expected validation fault, got %v", err)
		}
	})

	t.Run("empty model response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"response":"   "}`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Refine(context.Background(), "do a thing", "llama2")
		if !fault.Is(err, fault.MalformedResponse) {
			t.Errorf("expected malformed response fault, got %v", err)
		}
	})

	t.Run("error status maps to service unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Refine(context.Background(), "do a thing", "llama2")
		if !fault.Is(err, fault.ServiceUnavailable) {
			t.Errorf("expected service unavailable fault, got %v", err)
		}
	})
}

func TestTest(t *testing.T) {
	t.Run("runs prompt and records timing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			var req generateRequest
			if err := json.Unmarshal(body, &req); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}
			want := "You are terse.\n\nUser: hello\n\nAssistant:"
			if req.Prompt != want {
				t.Errorf("expected prompt %q, got %q", want, req.Prompt)
			}
			if req.Options.Temperature != 0.5 {
				t.Errorf("expected temperature 0.5, got %v", req.Options.Temperature)
			}
			fmt.Fprint(w, `{"response":"hi"}`)
		}))
		defer srv.Close()

		res, err := newTestClient(srv.URL).Test(context.Background(), "You are terse.", "hello", "llama2", 0.5)
		if err != nil {
			t.Fatalf("Test() error: %v", err)
		}
		if res.ResponseText != "hi" {
			t.Errorf("unexpected response: %q", res.ResponseText)
		}
		if res.ExecutionTime <= 0 {
			t.Error("expected positive execution time")
		}
		if res.Model != "llama2" || res.Temperature != 0.5 {
			t.Errorf("unexpected echo of parameters: %+v", res)
		}
	})

	t.Run("yaml config has fixed key order", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"response":"ok"}`)
		}))
		defer srv.Close()

		res, err := newTestClient(srv.URL).Test(context.Background(), "sys", "input", "llama2", 0.7)
		if err != nil {
			t.Fatalf("Test() error: %v", err)
		}
		want := "model: llama2\nsystem_prompt: sys\ntemperature: 0.7\nuser_input: input\n"
		if res.YAMLConfig != want {
			t.Errorf("expected yaml config %q, got %q", want, res.YAMLConfig)
		}
	})

	t.Run("validation", func(t *testing.T) {
		c := newTestClient("http://localhost:1")
		cases := []struct {
			name                 string
			system, input, model string
			temperature          float64
		}{
			{"empty system prompt", "", "input", "llama2", 0.7},
			{"empty user input", "sys", "  ", "llama2", 0.7},
			{"input too long", "sys", strings.Repeat("a", maxUserInputLength+1), "llama2", 0.7},
			{"empty model", "sys", "input", "", 0.7},
			{"temperature too high", "sys", "input", "llama2", 2.5},
			{"temperature negative", "sys", "input", "llama2", -0.1},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := c.Test(context.Background(), tc.system, tc.input, tc.model, tc.temperature)
				if !fault.Is(err, fault.Validation) {
					t.Errorf("expected validation fault, got %v", err)
				}
			})
		}
	})

	t.Run("timeout maps to timeout fault", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Drain the body so the server notices the client disconnect
			// and cancels the request context; otherwise Close deadlocks.
			io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
		}))
		defer srv.Close()

		c := NewClient(Config{Endpoint: srv.URL, TestTimeout: 50 * time.Millisecond, RetryDelay: time.Millisecond})
		_, err := c.Test(context.Background(), "sys", "input", "llama2", 0.7)
		if !fault.Is(err, fault.Timeout) {
			t.Errorf("expected timeout fault, got %v", err)
		}
	})
}

func TestInflightGuards(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `{"response":"done"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	done := make(chan error, 1)
	go func() {
		_, err := c.Refine(context.Background(), "slow objective", "llama2")
		done <- err
	}()

	// Wait for the first refine to hold the guard.
	deadline := time.After(2 * time.Second)
	for {
		if err := c.guards.acquire(OpRefine); err != nil {
			break
		}
		c.guards.release(OpRefine)
		select {
		case <-deadline:
			t.Fatal("first refine never acquired its guard")
		case <-time.After(5 * time.Millisecond):
		}
	}

	t.Run("second refine fails fast", func(t *testing.T) {
		_, err := c.Refine(context.Background(), "another objective", "llama2")
		if !fault.Is(err, fault.AlreadyInProgress) {
			t.Errorf("expected already in progress fault, got %v", err)
		}
	})

	t.Run("other operation kinds are unaffected", func(t *testing.T) {
		if err := c.guards.acquire(OpTest); err != nil {
			t.Errorf("expected test guard to be free, got %v", err)
		}
		c.guards.release(OpTest)
	})

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Refine() error: %v", err)
	}

	t.Run("guard released after completion", func(t *testing.T) {
		if err := c.guards.acquire(OpRefine); err != nil {
			t.Errorf("expected guard released, got %v", err)
		}
		c.guards.release(OpRefine)
	})
}

func TestTransportRetry(t *testing.T) {
	t.Run("retries connection failures", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				// Drop the connection without a response.
				hj, ok := w.(http.Hijacker)
				if !ok {
					t.Fatal("server does not support hijacking")
				}
				conn, _, err := hj.Hijack()
				if err != nil {
					t.Fatalf("hijack failed: %v", err)
				}
				conn.Close()
				return
			}
			fmt.Fprint(w, `{"models":[{"name":"llama2"}]}`)
		}))
		defer srv.Close()

		models, err := newTestClient(srv.URL).RefreshModels(context.Background())
		if err != nil {
			t.Fatalf("RefreshModels() error: %v", err)
		}
		if len(models) != 1 {
			t.Fatalf("unexpected models: %v", models)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("expected 2 attempts, got %d", got)
		}
	})

	t.Run("error responses are not retried", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).RefreshModels(context.Background())
		if !fault.Is(err, fault.ServiceUnavailable) {
			t.Fatalf("expected service unavailable fault, got %v", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("expected 1 attempt, got %d", got)
		}
	})
}
