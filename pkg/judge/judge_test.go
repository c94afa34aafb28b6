package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/llmsresearch/paperbanana/pkg/providers"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

// dimensionVLM answers each dimension prompt with a fixed winner.
type dimensionVLM struct {
	mu       sync.Mutex
	winners  map[string]string
	requests []providers.VLMRequest
	failOn   string
}

func (d *dimensionVLM) Name() string      { return "dimension" }
func (d *dimensionVLM) ModelName() string { return "test" }
func (d *dimensionVLM) Available() bool   { return true }

func (d *dimensionVLM) Generate(ctx context.Context, req providers.VLMRequest) (string, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()

	for name, winner := range d.winners {
		if strings.Contains(req.Prompt, "Dimension: "+name) {
			if name == d.failOn {
				return "", fmt.Errorf("judge call failed")
			}
			reply, _ := json.Marshal(map[string]string{
				"winner":    winner,
				"reasoning": "because " + name,
			})
			return string(reply), nil
		}
	}
	return "", fmt.Errorf("unexpected prompt: %s", req.Prompt)
}

func writeImages(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	gen := filepath.Join(dir, "generated.png")
	ref := filepath.Join(dir, "reference.png")
	for _, p := range []string{gen, ref} {
		if err := os.WriteFile(p, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return gen, ref
}

func evaluate(t *testing.T, winners map[string]string) *types.EvaluationScores {
	t.Helper()
	gen, ref := writeImages(t)
	j := New(&dimensionVLM{winners: winners}, nil)
	scores, err := j.Evaluate(context.Background(), Request{
		GeneratedPath: gen,
		ReferencePath: ref,
		SourceContext: "Our framework has two stages.",
		Caption:       "Overview of the framework",
	})
	if err != nil {
		t.Fatal(err)
	}
	return scores
}

func TestFaithfulnessDominatesLowerDimensions(t *testing.T) {
	scores := evaluate(t, map[string]string{
		"faithfulness": "generated",
		"conciseness":  "reference",
		"readability":  "reference",
		"aesthetics":   "reference",
	})
	if scores.OverallWinner != types.WinnerGenerated {
		t.Errorf("OverallWinner = %v, want generated", scores.OverallWinner)
	}
	// 8 for faithfulness beats 4+2+1 against.
	if scores.OverallScore != 1 {
		t.Errorf("OverallScore = %d, want 1", scores.OverallScore)
	}
}

func TestTieFallsThroughToConciseness(t *testing.T) {
	scores := evaluate(t, map[string]string{
		"faithfulness": "tie",
		"conciseness":  "reference",
		"readability":  "generated",
		"aesthetics":   "generated",
	})
	if scores.OverallWinner != types.WinnerReference {
		t.Errorf("OverallWinner = %v, want reference", scores.OverallWinner)
	}
}

func TestAllTiesProduceTie(t *testing.T) {
	scores := evaluate(t, map[string]string{
		"faithfulness": "tie",
		"conciseness":  "tie",
		"readability":  "tie",
		"aesthetics":   "tie",
	})
	if scores.OverallWinner != types.WinnerTie || scores.OverallScore != 0 {
		t.Errorf("scores = %v/%d, want tie/0", scores.OverallWinner, scores.OverallScore)
	}
}

func TestEvaluateScoresEveryDimensionIndependently(t *testing.T) {
	gen, ref := writeImages(t)
	vlm := &dimensionVLM{winners: map[string]string{
		"faithfulness": "generated",
		"conciseness":  "generated",
		"readability":  "tie",
		"aesthetics":   "reference",
	}}
	j := New(vlm, nil)
	scores, err := j.Evaluate(context.Background(), Request{
		GeneratedPath: gen,
		ReferencePath: ref,
		SourceContext: "ctx",
		Caption:       "cap",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(vlm.requests) != 4 {
		t.Errorf("requests = %d, want 4", len(vlm.requests))
	}
	for _, req := range vlm.requests {
		if len(req.Images) != 2 {
			t.Errorf("each comparison should attach both images, got %d", len(req.Images))
		}
	}
	if scores.Readability.Winner != types.WinnerTie {
		t.Errorf("Readability = %v", scores.Readability.Winner)
	}
	if scores.Aesthetics.Reasoning != "because aesthetics" {
		t.Errorf("Reasoning = %q", scores.Aesthetics.Reasoning)
	}
}

func TestEvaluateDimensionFailurePropagates(t *testing.T) {
	gen, ref := writeImages(t)
	vlm := &dimensionVLM{
		winners: map[string]string{
			"faithfulness": "generated",
			"conciseness":  "generated",
			"readability":  "generated",
			"aesthetics":   "generated",
		},
		failOn: "readability",
	}
	j := New(vlm, nil)
	_, err := j.Evaluate(context.Background(), Request{
		GeneratedPath: gen,
		ReferencePath: ref,
	})
	if err == nil {
		t.Fatal("expected failure to propagate")
	}
	if !strings.Contains(err.Error(), "readability") {
		t.Errorf("error = %v", err)
	}
}

func TestEvaluateMissingImage(t *testing.T) {
	_, ref := writeImages(t)
	j := New(&dimensionVLM{}, nil)
	_, err := j.Evaluate(context.Background(), Request{
		GeneratedPath: filepath.Join(t.TempDir(), "missing.png"),
		ReferencePath: ref,
	})
	if err == nil {
		t.Fatal("expected error for missing image")
	}
}
