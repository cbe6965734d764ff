package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"healthbot/internal/logging"
)

const (
	ollamaRequestTimeout = 30 * time.Second
	ollamaPullTimeout    = 5 * time.Minute
	ollamaRetryAttempts  = 3
)

// ollamaGenerateRequest is the body for POST /api/generate.
type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// ollamaGenerateResponse is the non-streaming response of /api/generate.
type ollamaGenerateResponse struct {
	Model         string `json:"model"`
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration"`
	EvalCount     int    `json:"eval_count"`
}

// ollamaTagsResponse is the response of GET /api/tags.
type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// OllamaClient talks to a local Ollama server.
type OllamaClient struct {
	baseURL string
	model   string
	http    *http.Client

	pullOnce sync.Once
	pullErr  error
}

// NewOllamaClient builds a client for the given server and model.
func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: ollamaRequestTimeout},
	}
}

// ModelName returns the configured model.
func (c *OllamaClient) ModelName() string { return c.model }

// Available reports whether the model is present in /api/tags.
func (c *OllamaClient) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if m.Name == c.model {
			return true
		}
	}
	return false
}

// ensureModel pulls the model when it is missing locally. Attempted at most
// once per process; a failed pull surfaces on every Generate call.
func (c *OllamaClient) ensureModel(ctx context.Context) error {
	if c.Available(ctx) {
		return nil
	}
	c.pullOnce.Do(func() {
		logging.Module("llm").Info("pulling model", "model", c.model)
		body, _ := json.Marshal(map[string]string{"name": c.model})
		pullCtx, cancel := context.WithTimeout(ctx, ollamaPullTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(pullCtx, http.MethodPost,
			c.baseURL+"/api/pull", bytes.NewReader(body))
		if err != nil {
			c.pullErr = err
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := (&http.Client{Timeout: ollamaPullTimeout}).Do(req)
		if err != nil {
			c.pullErr = err
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		if resp.StatusCode != http.StatusOK {
			c.pullErr = fmt.Errorf("pull model %s: HTTP %d", c.model, resp.StatusCode)
		}
	})
	return c.pullErr
}

// Generate runs one non-streaming completion, retrying transient failures.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := c.ensureModel(ctx); err != nil {
		return nil, fmt.Errorf("model %s unavailable: %w", c.model, err)
	}

	opts := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:   c.model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  false,
		Options: opts,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var out ollamaGenerateResponse
	err = retry.Do(
		func() error {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
				c.baseURL+"/api/generate", bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			httpReq.Header.Set("Content-Type", "application/json")
			resp, err := c.http.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return fmt.Errorf("ollama: HTTP %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return retry.Unrecoverable(fmt.Errorf("ollama: HTTP %d: %s", resp.StatusCode, raw))
			}
			return json.NewDecoder(resp.Body).Decode(&out)
		},
		retry.Context(ctx),
		retry.Attempts(ollamaRetryAttempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	return &GenerateResult{
		Text:             out.Response,
		Model:            c.model,
		ProcessingMillis: time.Since(start).Milliseconds(),
	}, nil
}
