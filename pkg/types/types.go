// Package types defines the shared data model for PaperBanana: generation
// inputs, per-run artifacts, critique results, and evaluation verdicts.
//
// Values in this package are plain data. They serialize to the on-disk run
// artifact format (human-readable, two-space-indented JSON) and round-trip
// without loss, which is what makes resume reconstruction possible.
package types

import (
	"github.com/llmsresearch/paperbanana/pkg/errors"
)

// DiagramType enumerates the kinds of figures the pipeline can produce.
type DiagramType string

const (
	// DiagramMethodology is a methodology/architecture diagram generated
	// from a paper's method section.
	DiagramMethodology DiagramType = "methodology"

	// DiagramStatisticalPlot is a statistical plot generated from
	// structured data.
	DiagramStatisticalPlot DiagramType = "statistical_plot"
)

// ParseDiagramType converts the serialized diagram-type string back into a
// DiagramType. Unrecognized values are an error, never a silent default:
// resuming a run with the wrong diagram type would feed the wrong prompts to
// every later stage.
func ParseDiagramType(s string) (DiagramType, error) {
	switch DiagramType(s) {
	case DiagramMethodology:
		return DiagramMethodology, nil
	case DiagramStatisticalPlot:
		return DiagramStatisticalPlot, nil
	}
	return "", errors.New(errors.ErrCodeInvalidDiagramType, "invalid diagram type: %q (must be 'methodology' or 'statistical_plot')", s)
}

// GenerationInput is the immutable description of what a run should produce.
// It is created once per run from caller input and persisted verbatim as
// run_input.json, making it the anchor for resume reconstruction.
type GenerationInput struct {
	// SourceContext is the methodology excerpt or data description the
	// diagram is derived from.
	SourceContext string `json:"source_context"`

	// CommunicativeIntent is the figure caption: what the diagram should
	// communicate to a reader.
	CommunicativeIntent string `json:"communicative_intent"`

	// DiagramType selects the generation prompts and example corpus.
	DiagramType DiagramType `json:"diagram_type"`

	// RawData holds the structured payload for statistical plots.
	// Nil for methodology diagrams.
	RawData map[string]any `json:"raw_data,omitempty"`
}

// Validate checks that the input is complete enough to start a run.
func (in *GenerationInput) Validate() error {
	if in.SourceContext == "" {
		return errors.New(errors.ErrCodeInvalidInput, "source context is required")
	}
	if in.CommunicativeIntent == "" {
		return errors.New(errors.ErrCodeInvalidInput, "communicative intent (caption) is required")
	}
	if _, err := ParseDiagramType(string(in.DiagramType)); err != nil {
		return err
	}
	return nil
}

// CritiqueResult is the outcome of one critique step.
type CritiqueResult struct {
	// CriticSuggestions lists the issues found in the generated image,
	// in priority order. Empty means the critic accepts the image.
	CriticSuggestions []string `json:"critic_suggestions"`

	// RevisedDescription is the critic's replacement description for the
	// next iteration. It may be empty even when suggestions exist; the
	// caller must then fall back to the prior description.
	RevisedDescription string `json:"revised_description,omitempty"`
}

// NeedsRevision reports whether the critic requested another iteration.
// It is a pure function of CriticSuggestions; RevisedDescription never
// affects it.
func (c *CritiqueResult) NeedsRevision() bool {
	return len(c.CriticSuggestions) > 0
}

// NextDescription returns the description the following iteration should
// use: the revised description when the critic produced one, otherwise
// current unchanged. A blank revision is never carried forward, since that
// would erase the critique's effect.
func (c *CritiqueResult) NextDescription(current string) string {
	if c.RevisedDescription != "" {
		return c.RevisedDescription
	}
	return current
}

// PlanningRecord is the pre-loop planning stage output, persisted as
// planning.json.
type PlanningRecord struct {
	// RetrievedExamples are the example snippets that informed planning.
	RetrievedExamples []string `json:"retrieved_examples"`

	// InitialDescription is the planner's first diagram description.
	InitialDescription string `json:"initial_description"`

	// OptimizedDescription is the refined description when input
	// optimization ran; empty otherwise.
	OptimizedDescription string `json:"optimized_description,omitempty"`
}

// BestDescription returns the strongest description the planning stage
// produced, preferring the optimized variant.
func (p *PlanningRecord) BestDescription() string {
	if p.OptimizedDescription != "" {
		return p.OptimizedDescription
	}
	return p.InitialDescription
}

// IterationRecord is the per-iteration artifact persisted as
// iter_<n>/details.json.
type IterationRecord struct {
	// Description is the text fed to image generation this iteration.
	Description string `json:"description"`

	// Critique is the critic's verdict on the rendered image.
	Critique CritiqueResult `json:"critique"`
}
