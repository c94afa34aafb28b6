package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/llmsresearch/paperbanana/pkg/errors"
	"github.com/llmsresearch/paperbanana/pkg/httputil"
	"github.com/llmsresearch/paperbanana/pkg/imageutil"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Wire types for the Gemini generateContent endpoint.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature      float64  `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	Seed             *int64   `json:"seed,omitempty"`
	ResponseModality []string `json:"responseModalities,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// geminiClient posts generateContent requests with API-key auth.
type geminiClient struct {
	key     string
	baseURL string
	http    *http.Client
}

func newGeminiClient(key string) *geminiClient {
	return &geminiClient{
		key:     key,
		baseURL: geminiBaseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *geminiClient) generateContent(ctx context.Context, model string, req geminiRequest) (*geminiResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "encode request")
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	httpReq.Header.Set("x-goog-api-key", c.key)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(
			errors.Wrap(errors.ErrCodeProviderTransient, err, "gemini request failed"))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, httputil.Retryable(
			errors.Wrap(errors.ErrCodeProviderTransient, err, "read gemini response"))
	}

	if resp.StatusCode != http.StatusOK {
		wrapped := errors.New(errors.ErrCodeProviderFailed,
			"gemini request failed with status %d: %s", resp.StatusCode, truncate(string(data), 300))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, httputil.Retryable(wrapped)
		}
		return nil, wrapped
	}

	var out geminiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderFailed, err, "decode gemini response")
	}
	if out.Error != nil {
		return nil, errors.New(errors.ErrCodeProviderFailed, "gemini error %d: %s", out.Error.Code, out.Error.Message)
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// GeminiVLM is the Google Gemini vision-language backend.
type GeminiVLM struct {
	model  string
	client *geminiClient
}

func NewGeminiVLM(key, model string) *GeminiVLM {
	return &GeminiVLM{model: model, client: newGeminiClient(key)}
}

func (g *GeminiVLM) Name() string      { return "gemini" }
func (g *GeminiVLM) ModelName() string { return g.model }
func (g *GeminiVLM) Available() bool   { return g.client.key != "" }

func (g *GeminiVLM) Generate(ctx context.Context, req VLMRequest) (string, error) {
	parts := []geminiPart{{Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: imageutil.DetectMIMEBytes(img),
			Data:     base64.StdEncoding.EncodeToString(img),
		}})
	}

	wire := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	if req.SystemPrompt != "" {
		wire.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	cfg := &geminiGenerationConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.ResponseFormat == "json" {
		cfg.ResponseMimeType = "application/json"
	}
	wire.GenerationConfig = cfg

	resp, err := g.client.generateContent(ctx, g.model, wire)
	if err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", errors.New(errors.ErrCodeEmptyResponse, "gemini returned an empty response")
}
