package providers

import (
	"context"
	"encoding/base64"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/llmsresearch/paperbanana/pkg/errors"
)

// OpenAIImageGen renders images through the OpenAI-compatible Images API.
// It serves both the "openai_imagen" provider and, with a custom base URL,
// the "openrouter_imagen" provider.
type OpenAIImageGen struct {
	name  string
	model string
	key   string
	opts  []option.RequestOption
}

// NewOpenAIImageGen builds an image backend against api.openai.com.
func NewOpenAIImageGen(key, model string) *OpenAIImageGen {
	return &OpenAIImageGen{
		name:  "openai_imagen",
		model: model,
		key:   key,
		opts:  []option.RequestOption{option.WithAPIKey(key)},
	}
}

// NewOpenRouterImageGen builds an image backend against the OpenRouter
// gateway.
func NewOpenRouterImageGen(key, model string) *OpenAIImageGen {
	return &OpenAIImageGen{
		name:  "openrouter_imagen",
		model: model,
		key:   key,
		opts: []option.RequestOption{
			option.WithAPIKey(key),
			option.WithBaseURL(openrouterBaseURL),
		},
	}
}

func (o *OpenAIImageGen) Name() string      { return o.name }
func (o *OpenAIImageGen) ModelName() string { return o.model }
func (o *OpenAIImageGen) Available() bool   { return o.key != "" }

func (o *OpenAIImageGen) Generate(ctx context.Context, req ImageRequest) ([]byte, error) {
	client := openai.NewClient(o.opts...)

	prompt := req.Prompt
	if req.NegativePrompt != "" {
		// The Images API has no negative prompt field.
		prompt += "\n\nAvoid: " + req.NegativePrompt
	}

	resp, err := client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:          openai.ImageModel(o.model),
		Prompt:         prompt,
		N:              openai.Int(1),
		Size:           snapImageSize(req.Width, req.Height),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, classifyOpenAIError(o.name, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New(errors.ErrCodeEmptyResponse, "%s returned no image data", o.name)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderFailed, err, "%s returned malformed image data", o.name)
	}
	return data, nil
}

// snapImageSize maps the requested dimensions onto the fixed size menu the
// Images API supports, picking the nearest aspect ratio: landscape above
// 1.2, portrait below 0.83, square otherwise.
func snapImageSize(width, height int) openai.ImageGenerateParamsSize {
	if width <= 0 || height <= 0 {
		return openai.ImageGenerateParamsSize1024x1024
	}
	ratio := float64(width) / float64(height)
	switch {
	case ratio > 1.2:
		return openai.ImageGenerateParamsSize1536x1024
	case ratio < 0.83:
		return openai.ImageGenerateParamsSize1024x1536
	default:
		return openai.ImageGenerateParamsSize1024x1024
	}
}
