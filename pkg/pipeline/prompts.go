package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/llmsresearch/paperbanana/pkg/errors"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

const plannerSystemPrompt = `You are an expert scientific illustrator. You turn method descriptions ` +
	`and data into precise, complete textual specifications for publication-quality figures. ` +
	`Describe layout, components, labels, arrows, and color usage concretely.`

const criticSystemPrompt = `You are a meticulous reviewer of scientific figures. Compare the image ` +
	`against the method description and intended message. Respond with a JSON object: ` +
	`{"critic_suggestions": ["issue 1", ...], "revised_description": "full revised description or null"}. ` +
	`An empty critic_suggestions array means the figure is acceptable as-is.`

const optimizerSystemPrompt = `You rewrite rough notes from researchers into clear, self-contained ` +
	`figure briefs. Respond with a JSON object: {"source_context": "...", "communicative_intent": "..."}.`

func buildPlanningPrompt(input *types.GenerationInput, examples []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Design a %s for a research paper.\n\n", diagramLabel(input.DiagramType))
	fmt.Fprintf(&b, "Method context:\n%s\n\n", input.SourceContext)
	fmt.Fprintf(&b, "Intended message (caption): %s\n", input.CommunicativeIntent)
	if len(input.RawData) > 0 {
		if data, err := json.MarshalIndent(input.RawData, "", "  "); err == nil {
			fmt.Fprintf(&b, "\nUnderlying data:\n%s\n", data)
		}
	}
	if len(examples) > 0 {
		b.WriteString("\nReference descriptions of well-designed figures of this kind:\n")
		for i, ex := range examples {
			fmt.Fprintf(&b, "%d. %s\n", i+1, ex)
		}
	}
	b.WriteString("\nWrite the complete description of the figure to generate.")
	return b.String()
}

func buildCritiquePrompt(input *types.GenerationInput, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The attached image was generated from this description:\n%s\n\n", description)
	fmt.Fprintf(&b, "Method context:\n%s\n\n", input.SourceContext)
	fmt.Fprintf(&b, "Intended message: %s\n\n", input.CommunicativeIntent)
	b.WriteString("List concrete problems and, if any exist, provide a fully revised description.")
	return b.String()
}

func buildOptimizePrompt(input *types.GenerationInput) string {
	return fmt.Sprintf(
		"Rewrite the following for a figure designer. Keep every technical detail.\n\nContext:\n%s\n\nIntent: %s",
		input.SourceContext, input.CommunicativeIntent)
}

func diagramLabel(dt types.DiagramType) string {
	switch dt {
	case types.DiagramStatisticalPlot:
		return "statistical plot"
	default:
		return "methodology diagram"
	}
}

// parseCritique decodes the critic's JSON reply. Models occasionally wrap
// JSON in markdown fences, so those are stripped first.
func parseCritique(raw string) (*types.CritiqueResult, error) {
	cleaned := stripFences(raw)
	var result types.CritiqueResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderFailed, err, "parse critique response")
	}
	return &result, nil
}

// optimizedInputs is the optimizer's reply shape.
type optimizedInputs struct {
	SourceContext       string `json:"source_context"`
	CommunicativeIntent string `json:"communicative_intent"`
}

func parseOptimized(raw string) (*optimizedInputs, error) {
	cleaned := stripFences(raw)
	var out optimizedInputs
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderFailed, err, "parse optimizer response")
	}
	if out.SourceContext == "" || out.CommunicativeIntent == "" {
		return nil, errors.New(errors.ErrCodeEmptyResponse, "optimizer returned empty fields")
	}
	return &out, nil
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
