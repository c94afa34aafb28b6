package providers

import (
	"strings"

	"github.com/llmsresearch/paperbanana/pkg/config"
	"github.com/llmsresearch/paperbanana/pkg/errors"
)

// credentialSpec describes how to obtain the API key a provider needs.
type credentialSpec struct {
	envVar string
	url    string
}

var (
	googleCredential = credentialSpec{
		envVar: "GOOGLE_API_KEY",
		url:    "https://makersuite.google.com/app/apikey",
	}
	openaiCredential = credentialSpec{
		envVar: "OPENAI_API_KEY",
		url:    "https://platform.openai.com/api-keys",
	}
	openrouterCredential = credentialSpec{
		envVar: "OPENROUTER_API_KEY",
		url:    "https://openrouter.ai/keys",
	}
)

// requireCredential returns the trimmed key, or an actionable error telling
// the user exactly how to fix their configuration.
func requireCredential(value string, spec credentialSpec) (string, error) {
	key := strings.TrimSpace(value)
	if key != "" {
		return key, nil
	}
	return "", errors.New(errors.ErrCodeMissingCredential,
		"%s not found. Get a key at %s, then run 'paperbanana setup' or set it directly:\n  export %s=your-key-here",
		spec.envVar, spec.url, spec.envVar)
}

// CreateVLM constructs the vision-language backend named by the settings and
// validates its credential. The returned provider retries transient failures
// automatically.
func CreateVLM(settings *config.Settings) (VLM, error) {
	name := settings.Providers.VLM
	model := settings.Providers.VLMModel
	switch name {
	case "gemini":
		key, err := requireCredential(settings.Credentials.GoogleAPIKey, googleCredential)
		if err != nil {
			return nil, err
		}
		return WithRetry(NewGeminiVLM(key, model)), nil
	case "openai":
		key, err := requireCredential(settings.Credentials.OpenAIAPIKey, openaiCredential)
		if err != nil {
			return nil, err
		}
		return WithRetry(NewOpenAIVLM(key, model)), nil
	case "openrouter":
		key, err := requireCredential(settings.Credentials.OpenRouterAPIKey, openrouterCredential)
		if err != nil {
			return nil, err
		}
		return WithRetry(NewOpenRouterVLM(key, model)), nil
	default:
		return nil, errors.New(errors.ErrCodeUnknownProvider, "unknown VLM provider %q (supported: gemini, openai, openrouter)", name)
	}
}

// CreateImageGen constructs the image backend named by the settings and
// validates its credential. The returned provider retries transient failures
// automatically.
func CreateImageGen(settings *config.Settings) (ImageGen, error) {
	name := settings.Providers.Image
	model := settings.Providers.ImageModel
	switch name {
	case "google_imagen":
		key, err := requireCredential(settings.Credentials.GoogleAPIKey, googleCredential)
		if err != nil {
			return nil, err
		}
		return WithImageRetry(NewGoogleImageGen(key, model)), nil
	case "openai_imagen":
		key, err := requireCredential(settings.Credentials.OpenAIAPIKey, openaiCredential)
		if err != nil {
			return nil, err
		}
		return WithImageRetry(NewOpenAIImageGen(key, model)), nil
	case "openrouter_imagen":
		key, err := requireCredential(settings.Credentials.OpenRouterAPIKey, openrouterCredential)
		if err != nil {
			return nil, err
		}
		return WithImageRetry(NewOpenRouterImageGen(key, model)), nil
	default:
		return nil, errors.New(errors.ErrCodeUnknownProvider, "unknown image provider %q (supported: google_imagen, openai_imagen, openrouter_imagen)", name)
	}
}
