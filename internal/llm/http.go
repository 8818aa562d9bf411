package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPInvoker posts to an internal AI gateway that fronts the model provider.
type HTTPInvoker struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func NewHTTPInvoker(baseURL, apiKey, model string, temperature float64) *HTTPInvoker {
	return &HTTPInvoker{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		// no client timeout; the caller's context bounds each attempt
		client: &http.Client{},
	}
}

func (h *HTTPInvoker) Name() string { return "http:" + h.model }

type gatewayRequest struct {
	Prompt         string                 `json:"prompt"`
	Model          string                 `json:"model,omitempty"`
	ResponseSchema map[string]interface{} `json:"response_schema,omitempty"`
	ResponseFormat string                 `json:"response_format"`
	Temperature    float64                `json:"temperature"`
}

type gatewayResponse struct {
	Text string `json:"text"`
}

func (h *HTTPInvoker) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	body, err := json.Marshal(gatewayRequest{
		Prompt:         req.Prompt,
		Model:          h.model,
		ResponseSchema: req.Schema,
		ResponseFormat: "json",
		Temperature:    h.temperature,
	})
	if err != nil {
		return nil, Permanent(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return nil, Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusRequestTimeout {
			return nil, Permanent(statusErr)
		}
		return nil, statusErr
	}

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	text := CleanJSON(out.Text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(text), nil
}
