package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"google.golang.org/genai"
)

var ErrEmptyResponse = errors.New("llm: empty response from model")

// GeminiInvoker calls the Gemini API in JSON mode with the request schema attached.
type GeminiInvoker struct {
	cli         *genai.Client
	model       string
	temperature float32
}

func NewGeminiInvoker(ctx context.Context, apiKey, model string, temperature float64) (*GeminiInvoker, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiInvoker{cli: cli, model: model, temperature: float32(temperature)}, nil
}

func (g *GeminiInvoker) Name() string { return "gemini:" + g.model }

func (g *GeminiInvoker) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(g.temperature),
	}
	if req.Schema != nil {
		cfg.ResponseJsonSchema = req.Schema
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := CleanJSON(sb.String())
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(text), nil
}
