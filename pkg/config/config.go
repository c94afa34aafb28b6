// Package config holds the runtime configuration for PaperBanana.
//
// Settings are resolved in three layers, later layers overriding earlier
// ones:
//
//  1. Built-in defaults ([Default])
//  2. An optional YAML document ([Load] / [LoadFile])
//  3. Environment variables ([Settings.ApplyEnv])
//
// A Settings value is a snapshot: it is loaded once before a pipeline is
// constructed and treated as read-only for the lifetime of the run.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default pipeline knobs.
const (
	// DefaultRefinementIterations is the iteration budget for a bounded run.
	DefaultRefinementIterations = 3

	// DefaultMaxIterations caps an auto-refine run that never converges.
	DefaultMaxIterations = 30

	// DefaultOutputDir is where run artifact directories are created.
	DefaultOutputDir = "paperbanana_runs"
)

// Default provider selections.
const (
	DefaultVLMProvider   = "gemini"
	DefaultVLMModel      = "gemini-2.5-flash"
	DefaultImageProvider = "google_imagen"
	DefaultImageModel    = "gemini-2.5-flash-image"
)

// Providers selects the model backends and their models.
type Providers struct {
	// VLM names the vision-language backend: gemini, openai, or openrouter.
	VLM string `yaml:"vlm"`

	// VLMModel is the model id passed to the VLM backend.
	VLMModel string `yaml:"vlm_model"`

	// Image names the image-synthesis backend: google_imagen,
	// openai_imagen, or openrouter_imagen.
	Image string `yaml:"image"`

	// ImageModel is the model id passed to the image backend.
	ImageModel string `yaml:"image_model"`
}

// Credentials holds provider API keys. They are normally injected from the
// environment rather than written into config files.
type Credentials struct {
	GoogleAPIKey     string `yaml:"google_api_key"`
	OpenAIAPIKey     string `yaml:"openai_api_key"`
	OpenRouterAPIKey string `yaml:"openrouter_api_key"`
}

// Pipeline controls the generation workflow.
type Pipeline struct {
	// RefinementIterations is the exact iteration count for a bounded run.
	RefinementIterations int `yaml:"refinement_iterations"`

	// AutoRefine switches to an open-ended loop that stops at the first
	// critique with no suggestions.
	AutoRefine bool `yaml:"auto_refine"`

	// MaxIterations bounds an auto-refine run.
	MaxIterations int `yaml:"max_iterations"`

	// OptimizeInputs rewrites the source context and caption through the
	// VLM before planning.
	OptimizeInputs bool `yaml:"optimize_inputs"`
}

// Settings is the full configuration snapshot for one run.
type Settings struct {
	Providers   Providers   `yaml:"providers"`
	Credentials Credentials `yaml:"credentials"`
	Pipeline    Pipeline    `yaml:"pipeline"`

	// OutputDir is the workspace directory containing run artifact trees.
	OutputDir string `yaml:"output_dir"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Providers: Providers{
			VLM:        DefaultVLMProvider,
			VLMModel:   DefaultVLMModel,
			Image:      DefaultImageProvider,
			ImageModel: DefaultImageModel,
		},
		Pipeline: Pipeline{
			RefinementIterations: DefaultRefinementIterations,
			MaxIterations:        DefaultMaxIterations,
		},
		OutputDir: DefaultOutputDir,
	}
}

// Load parses a YAML document over the defaults.
func Load(data []byte) (*Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	s.normalize()
	return s, nil
}

// LoadFile reads and parses a YAML config file over the defaults.
func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	s, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// FromEnvironment returns the defaults with environment overrides applied.
func FromEnvironment() *Settings {
	s := Default()
	s.ApplyEnv()
	return s
}

// ApplyEnv overlays environment variables onto the settings. Credential
// variables use their conventional unprefixed names; everything else uses a
// PAPERBANANA_ prefix.
func (s *Settings) ApplyEnv() {
	setString(&s.Credentials.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&s.Credentials.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&s.Credentials.OpenRouterAPIKey, "OPENROUTER_API_KEY")

	setString(&s.Providers.VLM, "PAPERBANANA_VLM_PROVIDER")
	setString(&s.Providers.VLMModel, "PAPERBANANA_VLM_MODEL")
	setString(&s.Providers.Image, "PAPERBANANA_IMAGE_PROVIDER")
	setString(&s.Providers.ImageModel, "PAPERBANANA_IMAGE_MODEL")
	setString(&s.OutputDir, "PAPERBANANA_OUTPUT_DIR")

	setInt(&s.Pipeline.RefinementIterations, "PAPERBANANA_REFINEMENT_ITERATIONS")
	setInt(&s.Pipeline.MaxIterations, "PAPERBANANA_MAX_ITERATIONS")
	setBool(&s.Pipeline.AutoRefine, "PAPERBANANA_AUTO_REFINE")
	setBool(&s.Pipeline.OptimizeInputs, "PAPERBANANA_OPTIMIZE_INPUTS")

	s.normalize()
}

// normalize re-applies defaults to fields that were set to zero values by a
// partial config document.
func (s *Settings) normalize() {
	if s.Pipeline.RefinementIterations <= 0 {
		s.Pipeline.RefinementIterations = DefaultRefinementIterations
	}
	if s.Pipeline.MaxIterations <= 0 {
		s.Pipeline.MaxIterations = DefaultMaxIterations
	}
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	if s.Providers.VLM == "" {
		s.Providers.VLM = DefaultVLMProvider
	}
	if s.Providers.Image == "" {
		s.Providers.Image = DefaultImageProvider
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
