package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/llmsresearch/paperbanana/pkg/imageutil"
	"github.com/llmsresearch/paperbanana/pkg/judge"
	"github.com/llmsresearch/paperbanana/pkg/pipeline"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

// Tool names exposed over MCP.
const (
	toolGenerateDiagram = "generate_diagram"
	toolGeneratePlot    = "generate_plot"
	toolEvaluateDiagram = "evaluate_diagram"
)

// toolDefinitions returns the tool list advertised by tools/list.
func toolDefinitions() []tool {
	return []tool{
		{
			Name:        toolGenerateDiagram,
			Description: "Generate a publication-quality methodology diagram from paper text. Returns the final image after iterative critique and refinement.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"source_context": {"type": "string", "description": "Methodology section text or relevant paper excerpt."},
					"caption": {"type": "string", "description": "Figure caption describing what the diagram should communicate."},
					"iterations": {"type": "integer", "description": "Number of refinement iterations (default 3)."}
				},
				"required": ["source_context", "caption"]
			}`),
		},
		{
			Name:        toolGeneratePlot,
			Description: "Generate a publication-quality statistical plot from JSON data. Returns the final image after iterative critique and refinement.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"data_json": {"type": "string", "description": "JSON string containing the data to plot, e.g. {\"x\": [1,2,3], \"y\": [4,5,6]}."},
					"intent": {"type": "string", "description": "Description of the desired plot, e.g. 'Bar chart comparing model accuracy'."},
					"iterations": {"type": "integer", "description": "Number of refinement iterations (default 3)."}
				},
				"required": ["data_json", "intent"]
			}`),
		},
		{
			Name:        toolEvaluateDiagram,
			Description: "Evaluate a generated diagram against a human-drawn reference on faithfulness, conciseness, readability, and aesthetics.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"generated_path": {"type": "string", "description": "File path to the model-generated image."},
					"reference_path": {"type": "string", "description": "File path to the human-drawn reference image."},
					"context": {"type": "string", "description": "Original methodology text used to generate the diagram."},
					"caption": {"type": "string", "description": "Figure caption describing what the diagram communicates."}
				},
				"required": ["generated_path", "reference_path", "context", "caption"]
			}`),
		},
	}
}

// callTool dispatches a tools/call to the named handler. Tool failures are
// reported in-band as isError results; only undecodable arguments surface
// as protocol errors.
func (s *Server) callTool(ctx context.Context, params toolsCallParams) (*toolsCallResult, error) {
	switch params.Name {
	case toolGenerateDiagram:
		var args struct {
			SourceContext string `json:"source_context"`
			Caption       string `json:"caption"`
			Iterations    int    `json:"iterations"`
		}
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return nil, fmt.Errorf("decode %s arguments: %w", params.Name, err)
		}
		return s.generate(ctx, &types.GenerationInput{
			SourceContext:       args.SourceContext,
			CommunicativeIntent: args.Caption,
			DiagramType:         types.DiagramMethodology,
		}, args.Iterations), nil

	case toolGeneratePlot:
		var args struct {
			DataJSON   string `json:"data_json"`
			Intent     string `json:"intent"`
			Iterations int    `json:"iterations"`
		}
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return nil, fmt.Errorf("decode %s arguments: %w", params.Name, err)
		}
		var rawData map[string]any
		if err := json.Unmarshal([]byte(args.DataJSON), &rawData); err != nil {
			return errorResult(fmt.Sprintf("data_json is not valid JSON: %v", err)), nil
		}
		return s.generate(ctx, &types.GenerationInput{
			SourceContext:       "Data for plotting:\n" + args.DataJSON,
			CommunicativeIntent: args.Intent,
			DiagramType:         types.DiagramStatisticalPlot,
			RawData:             rawData,
		}, args.Iterations), nil

	case toolEvaluateDiagram:
		var args struct {
			GeneratedPath string `json:"generated_path"`
			ReferencePath string `json:"reference_path"`
			Context       string `json:"context"`
			Caption       string `json:"caption"`
		}
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return nil, fmt.Errorf("decode %s arguments: %w", params.Name, err)
		}
		return s.evaluate(ctx, judge.Request{
			GeneratedPath: args.GeneratedPath,
			ReferencePath: args.ReferencePath,
			SourceContext: args.Context,
			Caption:       args.Caption,
		}), nil
	}

	return errorResult("unknown tool: " + params.Name), nil
}

// generate runs the pipeline and returns the final image as base64 content.
func (s *Server) generate(ctx context.Context, input *types.GenerationInput, iterations int) *toolsCallResult {
	result, err := s.runner.Execute(ctx, pipeline.Options{
		Input:      input,
		Iterations: iterations,
	})
	if err != nil {
		if result != nil && result.RunID != "" {
			return errorResult(fmt.Sprintf("generation failed: %v (artifacts preserved in run %s)", err, result.RunID))
		}
		return errorResult(fmt.Sprintf("generation failed: %v", err))
	}

	effectivePath, format, err := imageutil.FitUnder(result.ImagePath, s.maxImageBytes)
	if err != nil {
		return errorResult(fmt.Sprintf("compress image for transport: %v", err))
	}
	data, err := imageutil.Load(effectivePath)
	if err != nil {
		return errorResult(fmt.Sprintf("read image: %v", err))
	}

	s.logger.Info("tool produced image",
		"run_id", result.RunID,
		"iterations", result.Iterations,
		"bytes", len(data))

	return &toolsCallResult{Content: []content{{
		Type:     "image",
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: "image/" + format,
	}}}
}

// evaluate scores the image pair and formats the verdict as text.
func (s *Server) evaluate(ctx context.Context, req judge.Request) *toolsCallResult {
	if s.judge == nil {
		return errorResult("evaluation unavailable: no VLM provider configured")
	}
	scores, err := s.judge.Evaluate(ctx, req)
	if err != nil {
		return errorResult(fmt.Sprintf("evaluation failed: %v", err))
	}
	return &toolsCallResult{Content: textContent(formatScores(scores))}
}

// formatScores renders the verdict for text-only MCP clients.
func formatScores(scores *types.EvaluationScores) string {
	var b strings.Builder
	b.WriteString("Evaluation Results\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Faithfulness:  %s - %s\n", scores.Faithfulness.Winner, scores.Faithfulness.Reasoning)
	fmt.Fprintf(&b, "Conciseness:   %s - %s\n", scores.Conciseness.Winner, scores.Conciseness.Reasoning)
	fmt.Fprintf(&b, "Readability:   %s - %s\n", scores.Readability.Winner, scores.Readability.Reasoning)
	fmt.Fprintf(&b, "Aesthetics:    %s - %s\n", scores.Aesthetics.Winner, scores.Aesthetics.Reasoning)
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Overall Winner: %s (score: %d)", scores.OverallWinner, scores.OverallScore)
	return b.String()
}
