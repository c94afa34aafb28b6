package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/llmsresearch/paperbanana/pkg/config"
	"github.com/llmsresearch/paperbanana/pkg/types"
)

func configWithKey(googleKey string) *config.Settings {
	s := config.Default()
	s.Credentials.GoogleAPIKey = googleKey
	return s
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(&bytes.Buffer{}, log.WarnLevel)
	root := c.RootCommand()

	want := []string{"generate", "evaluate", "runs", "setup", "mcp", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	c := New(&bytes.Buffer{}, log.WarnLevel)
	c.SetLogLevel(log.DebugLevel)
	if got := c.Logger.GetLevel(); got != log.DebugLevel {
		t.Errorf("GetLevel() = %v, want debug", got)
	}
}

func TestCanonicalType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"diagram", string(types.DiagramMethodology)},
		{"plot", string(types.DiagramStatisticalPlot)},
		{"methodology", "methodology"},
		{"statistical_plot", "statistical_plot"},
		{"pie_chart", "pie_chart"},
	}
	for _, tt := range tests {
		if got := canonicalType(tt.in); got != tt.want {
			t.Errorf("canonicalType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildInput(t *testing.T) {
	dir := t.TempDir()
	contextFile := filepath.Join(dir, "context.txt")
	if err := os.WriteFile(contextFile, []byte("We train in two stages.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dataFile := filepath.Join(dir, "data.json")
	if err := os.WriteFile(dataFile, []byte(`{"x": [1, 2], "y": [3, 4]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	input, err := buildInput(contextFile, generateFlags{
		caption:     "Training overview",
		diagramType: "plot",
		dataFile:    dataFile,
	})
	if err != nil {
		t.Fatalf("buildInput() error = %v", err)
	}
	if input.SourceContext != "We train in two stages." {
		t.Errorf("SourceContext = %q", input.SourceContext)
	}
	if input.DiagramType != types.DiagramStatisticalPlot {
		t.Errorf("DiagramType = %q", input.DiagramType)
	}
	if input.RawData == nil {
		t.Fatal("RawData not parsed")
	}
}

func TestBuildInputErrors(t *testing.T) {
	dir := t.TempDir()
	contextFile := filepath.Join(dir, "context.txt")
	if err := os.WriteFile(contextFile, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		contextFile string
		flags       generateFlags
	}{
		{
			name:  "missing context file",
			flags: generateFlags{caption: "c", diagramType: "diagram"},
		},
		{
			name:        "nonexistent context file",
			contextFile: filepath.Join(dir, "missing.txt"),
			flags:       generateFlags{caption: "c", diagramType: "diagram"},
		},
		{
			name:        "invalid type",
			contextFile: contextFile,
			flags:       generateFlags{caption: "c", diagramType: "pie_chart"},
		},
		{
			name:        "missing data file",
			contextFile: contextFile,
			flags:       generateFlags{caption: "c", diagramType: "plot", dataFile: filepath.Join(dir, "missing.json")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildInput(tt.contextFile, tt.flags); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestCredentialValuePrefersSettings(t *testing.T) {
	settings := configWithKey("from-settings")
	if got := credentialValue("GOOGLE_API_KEY", settings); got != "from-settings" {
		t.Errorf("credentialValue = %q, want settings value", got)
	}
}

func TestCredentialValueFallsBackToEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "from-env")
	settings := configWithKey("")
	if got := credentialValue("OPENROUTER_API_KEY", settings); got != "from-env" {
		t.Errorf("credentialValue = %q, want env value", got)
	}
}
