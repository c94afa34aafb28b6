package providers

import (
	"context"
	stderrors "errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/llmsresearch/paperbanana/pkg/errors"
	"github.com/llmsresearch/paperbanana/pkg/httputil"
	"github.com/llmsresearch/paperbanana/pkg/imageutil"
)

const openrouterBaseURL = "https://openrouter.ai/api/v1"

// OpenAIVLM talks to an OpenAI-compatible chat completions endpoint. It
// serves both the "openai" provider and, with a custom base URL, the
// "openrouter" provider.
type OpenAIVLM struct {
	name  string
	model string
	key   string
	opts  []option.RequestOption
}

// NewOpenAIVLM builds a backend against api.openai.com.
func NewOpenAIVLM(key, model string) *OpenAIVLM {
	return &OpenAIVLM{
		name:  "openai",
		model: model,
		key:   key,
		opts:  []option.RequestOption{option.WithAPIKey(key)},
	}
}

// NewOpenRouterVLM builds a backend against the OpenRouter gateway.
func NewOpenRouterVLM(key, model string) *OpenAIVLM {
	return &OpenAIVLM{
		name:  "openrouter",
		model: model,
		key:   key,
		opts: []option.RequestOption{
			option.WithAPIKey(key),
			option.WithBaseURL(openrouterBaseURL),
		},
	}
}

func (o *OpenAIVLM) Name() string      { return o.name }
func (o *OpenAIVLM) ModelName() string { return o.model }
func (o *OpenAIVLM) Available() bool   { return o.key != "" }

func (o *OpenAIVLM) Generate(ctx context.Context, req VLMRequest) (string, error) {
	client := openai.NewClient(o.opts...)

	var msgs []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	if len(req.Images) == 0 {
		msgs = append(msgs, openai.UserMessage(req.Prompt))
	} else {
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.Prompt),
		}
		for _, img := range req.Images {
			parts = append(parts, openai.ImageContentPart(
				openai.ChatCompletionContentPartImageImageURLParam{
					URL: imageutil.DataURL(img),
				}))
		}
		msgs = append(msgs, openai.UserMessage(parts))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.ResponseFormat == "json" {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(o.name, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New(errors.ErrCodeEmptyResponse, "%s returned an empty response", o.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError marks rate limits, server errors and transport
// failures as retryable so the backoff decorator picks them up.
func classifyOpenAIError(name string, err error) error {
	var apierr *openai.Error
	if stderrors.As(err, &apierr) {
		if apierr.StatusCode == 429 || apierr.StatusCode >= 500 {
			return httputil.Retryable(
				errors.Wrap(errors.ErrCodeProviderTransient, err, "%s request failed with status %d", name, apierr.StatusCode))
		}
		return errors.Wrap(errors.ErrCodeProviderFailed, err, "%s request failed with status %d", name, apierr.StatusCode)
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// Anything that never produced an HTTP status is a transport failure.
	return httputil.Retryable(
		errors.Wrap(errors.ErrCodeProviderTransient, err, "%s request failed", name))
}
