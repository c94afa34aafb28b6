package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/llmsresearch/paperbanana/pkg/errors"
)

// GoogleImageGen renders images with Google's image-capable Gemini models
// (e.g. gemini-2.5-flash-image). It reuses the generateContent endpoint;
// the image comes back as an inline data part.
type GoogleImageGen struct {
	model  string
	client *geminiClient
}

func NewGoogleImageGen(key, model string) *GoogleImageGen {
	return &GoogleImageGen{model: model, client: newGeminiClient(key)}
}

func (g *GoogleImageGen) Name() string      { return "google_imagen" }
func (g *GoogleImageGen) ModelName() string { return g.model }
func (g *GoogleImageGen) Available() bool   { return g.client.key != "" }

func (g *GoogleImageGen) Generate(ctx context.Context, req ImageRequest) ([]byte, error) {
	prompt := req.Prompt
	if req.NegativePrompt != "" {
		prompt += "\n\nAvoid: " + req.NegativePrompt
	}
	if req.Width > 0 && req.Height > 0 {
		prompt += fmt.Sprintf("\n\nRender at a %s aspect ratio.", aspectLabel(req.Width, req.Height))
	}

	wire := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenerationConfig{
			Seed:             req.Seed,
			ResponseModality: []string{"IMAGE"},
		},
	}

	resp, err := g.client.generateContent(ctx, g.model, wire)
	if err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeProviderFailed, err,
					"google_imagen returned malformed image data")
			}
			return data, nil
		}
	}
	return nil, errors.New(errors.ErrCodeEmptyResponse, "google_imagen returned no image data")
}

// aspectLabel buckets requested dimensions the same way the fixed-size
// backends do: landscape above 1.2, portrait below 0.83, square otherwise.
func aspectLabel(width, height int) string {
	ratio := float64(width) / float64(height)
	switch {
	case ratio > 1.2:
		return "landscape (3:2)"
	case ratio < 0.83:
		return "portrait (2:3)"
	default:
		return "square (1:1)"
	}
}
