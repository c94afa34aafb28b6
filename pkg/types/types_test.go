package types

import (
	"encoding/json"
	"testing"
)

func TestParseDiagramType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DiagramType
		wantErr bool
	}{
		{"methodology", "methodology", DiagramMethodology, false},
		{"statistical plot", "statistical_plot", DiagramStatisticalPlot, false},
		{"unknown value", "flowchart", "", true},
		{"empty", "", "", true},
		{"case sensitive", "Methodology", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDiagramType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDiagramType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDiagramType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCritiqueNeedsRevision(t *testing.T) {
	tests := []struct {
		name     string
		critique CritiqueResult
		want     bool
	}{
		{
			name: "suggestions present",
			critique: CritiqueResult{
				CriticSuggestions:  []string{"Fix arrow direction"},
				RevisedDescription: "Updated desc",
			},
			want: true,
		},
		{
			name:     "no suggestions",
			critique: CritiqueResult{CriticSuggestions: []string{}},
			want:     false,
		},
		{
			name:     "nil suggestions",
			critique: CritiqueResult{},
			want:     false,
		},
		{
			// NeedsRevision depends only on the suggestions, never on
			// whether a revision was produced.
			name: "suggestions without revision",
			critique: CritiqueResult{
				CriticSuggestions: []string{"Labels overlap", "Legend missing"},
			},
			want: true,
		},
		{
			name: "revision without suggestions",
			critique: CritiqueResult{
				RevisedDescription: "New text",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.critique.NeedsRevision(); got != tt.want {
				t.Errorf("NeedsRevision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCritiqueNextDescription(t *testing.T) {
	withRevision := CritiqueResult{
		CriticSuggestions:  []string{"issue"},
		RevisedDescription: "revised",
	}
	if got := withRevision.NextDescription("current"); got != "revised" {
		t.Errorf("NextDescription() = %q, want %q", got, "revised")
	}

	// An empty revision must never be carried forward, even when the
	// critic asked for changes.
	withoutRevision := CritiqueResult{CriticSuggestions: []string{"issue"}}
	if got := withoutRevision.NextDescription("current"); got != "current" {
		t.Errorf("NextDescription() = %q, want %q", got, "current")
	}
}

func TestGenerationInputValidate(t *testing.T) {
	valid := GenerationInput{
		SourceContext:       "Our encoder-decoder framework...",
		CommunicativeIntent: "Overview of our framework",
		DiagramType:         DiagramMethodology,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	tests := []struct {
		name  string
		input GenerationInput
	}{
		{"missing context", GenerationInput{CommunicativeIntent: "c", DiagramType: DiagramMethodology}},
		{"missing caption", GenerationInput{SourceContext: "s", DiagramType: DiagramMethodology}},
		{"bad diagram type", GenerationInput{SourceContext: "s", CommunicativeIntent: "c", DiagramType: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.input.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestGenerationInputRoundTrip(t *testing.T) {
	in := GenerationInput{
		SourceContext:       "text",
		CommunicativeIntent: "caption",
		DiagramType:         DiagramStatisticalPlot,
		RawData:             map[string]any{"x": []any{1.0, 2.0}, "label": "acc"},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out GenerationInput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if out.SourceContext != in.SourceContext || out.DiagramType != in.DiagramType {
		t.Errorf("round trip mismatch: got %+v", out)
	}
	if out.RawData["label"] != "acc" {
		t.Errorf("RawData lost in round trip: %+v", out.RawData)
	}
}

func TestPlanningRecordBestDescription(t *testing.T) {
	optimized := PlanningRecord{InitialDescription: "raw", OptimizedDescription: "better"}
	if got := optimized.BestDescription(); got != "better" {
		t.Errorf("BestDescription() = %q, want %q", got, "better")
	}

	initialOnly := PlanningRecord{InitialDescription: "raw"}
	if got := initialOnly.BestDescription(); got != "raw" {
		t.Errorf("BestDescription() = %q, want %q", got, "raw")
	}
}
