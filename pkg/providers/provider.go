// Package providers defines the model backend contracts and their concrete
// implementations.
//
// Two capabilities exist: [VLM] for text/vision generation (planning,
// critique, optimization, judging) and [ImageGen] for rendering a
// description into a raster image. Callers depend only on these interfaces;
// the registry maps configured provider names to concrete backends and
// validates credentials eagerly so configuration mistakes surface at
// construction time, not on the first remote call.
//
// All Generate calls retry transient failures (network errors, 429s, 5xx
// responses) up to three attempts with bounded exponential backoff. Retries
// are invisible on success; after exhaustion the original provider failure
// propagates unchanged.
package providers

import (
	"context"

	"github.com/llmsresearch/paperbanana/pkg/httputil"
)

// VLMRequest is one text/vision generation request.
type VLMRequest struct {
	// Prompt is the user-turn text.
	Prompt string

	// Images are encoded raster images attached to the user turn.
	Images [][]byte

	// SystemPrompt is the optional system instruction.
	SystemPrompt string

	// Temperature controls sampling. Zero means the backend default.
	Temperature float64

	// MaxTokens bounds the response length. Zero means the backend default.
	MaxTokens int

	// ResponseFormat is "json" to request a JSON object response, or empty
	// for free text.
	ResponseFormat string
}

// ImageRequest is one image synthesis request.
type ImageRequest struct {
	// Prompt describes the image to render.
	Prompt string

	// NegativePrompt lists elements to avoid. Backends without native
	// negative-prompt support append it to the prompt.
	NegativePrompt string

	// Width and Height are the requested pixel dimensions. Backends with a
	// fixed size menu snap to the nearest supported aspect ratio.
	Width  int
	Height int

	// Seed makes generation reproducible on backends that support it.
	Seed *int64
}

// VLM is a vision-language backend.
type VLM interface {
	// Name identifies the backend (e.g. "gemini").
	Name() string

	// ModelName identifies the configured model.
	ModelName() string

	// Available reports whether the required credential is present.
	Available() bool

	// Generate produces a text response for the request.
	Generate(ctx context.Context, req VLMRequest) (string, error)
}

// ImageGen is an image-synthesis backend.
type ImageGen interface {
	Name() string
	ModelName() string
	Available() bool

	// Generate renders the request into encoded image bytes.
	Generate(ctx context.Context, req ImageRequest) ([]byte, error)
}

// retryVLM decorates a VLM with the standard retry policy.
type retryVLM struct{ VLM }

func (r retryVLM) Generate(ctx context.Context, req VLMRequest) (string, error) {
	var out string
	err := httputil.RetryWithBackoff(ctx, func() error {
		var callErr error
		out, callErr = r.VLM.Generate(ctx, req)
		return callErr
	})
	return out, err
}

// retryImageGen decorates an ImageGen with the standard retry policy.
type retryImageGen struct{ ImageGen }

func (r retryImageGen) Generate(ctx context.Context, req ImageRequest) ([]byte, error) {
	var out []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		var callErr error
		out, callErr = r.ImageGen.Generate(ctx, req)
		return callErr
	})
	return out, err
}

// WithRetry wraps a VLM with the standard retry policy. The registry
// applies this automatically; it is exported for callers constructing
// providers directly.
func WithRetry(v VLM) VLM { return retryVLM{v} }

// WithImageRetry wraps an ImageGen with the standard retry policy.
func WithImageRetry(g ImageGen) ImageGen { return retryImageGen{g} }
