package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/llmsresearch/paperbanana/pkg/cache"
	"github.com/llmsresearch/paperbanana/pkg/observability"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

// exampleTTL bounds how long retrieved examples are memoized.
const exampleTTL = 24 * time.Hour

// Curated descriptions of well-designed figures, keyed by diagram type.
// These anchor the planner toward publication conventions.
var curatedExamples = map[types.DiagramType][]string{
	types.DiagramMethodology: {
		"A left-to-right flow of three labeled stages connected by bold arrows, each stage a rounded rectangle with a short title and one-line summary, encoder components in blue and decoder components in orange, with the loss computation shown as a dashed feedback arrow.",
		"A two-row architecture overview: the top row traces the data path through preprocessing, model, and output blocks; the bottom row expands the model block into its submodules, linked to the top row by a magnifying bracket.",
	},
	types.DiagramStatisticalPlot: {
		"A grouped bar chart comparing four methods across three benchmarks, one color per method, y-axis starting at zero with gridlines every 10 units, error bars on each bar, and the proposed method's bars hatched for emphasis.",
		"A line plot of accuracy versus training steps with one line per configuration, a logarithmic x-axis, a shaded confidence band around each line, and a legend placed outside the plot area.",
	},
}

// retrieveExamples returns reference descriptions for the input's diagram
// type, memoized through the cache so repeated runs over the same paper
// skip the lookup.
func retrieveExamples(ctx context.Context, c cache.Cache, input *types.GenerationInput) []string {
	key := cache.ExampleKey(string(input.DiagramType), input.CommunicativeIntent)

	if data, hit, err := c.Get(ctx, key); err == nil && hit {
		var cached []string
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(ctx, "examples")
			return cached
		}
	}
	observability.Cache().OnCacheMiss(ctx, "examples")

	examples := curatedExamples[input.DiagramType]
	if data, err := json.Marshal(examples); err == nil {
		if err := c.Set(ctx, key, data, exampleTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "examples", len(data))
		}
	}
	return examples
}
