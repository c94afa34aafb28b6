package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/llmsresearch/paperbanana/pkg/cache"
	"github.com/llmsresearch/paperbanana/pkg/judge"
	"github.com/llmsresearch/paperbanana/pkg/pipeline"
	"github.com/llmsresearch/paperbanana/pkg/providers"
	"github.com/llmsresearch/paperbanana/pkg/runstore"
)

// scriptedVLM replays canned responses in call order.
type scriptedVLM struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (v *scriptedVLM) Name() string      { return "scripted" }
func (v *scriptedVLM) ModelName() string { return "scripted-1" }
func (v *scriptedVLM) Available() bool   { return true }

func (v *scriptedVLM) Generate(ctx context.Context, req providers.VLMRequest) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.calls >= len(v.responses) {
		return "", fmt.Errorf("unexpected call %d", v.calls)
	}
	resp := v.responses[v.calls]
	v.calls++
	return resp, nil
}

// pngImageGen returns bytes with a PNG header so MIME sniffing works.
type pngImageGen struct{}

func (pngImageGen) Name() string      { return "png" }
func (pngImageGen) ModelName() string { return "png-1" }
func (pngImageGen) Available() bool   { return true }

func (pngImageGen) Generate(ctx context.Context, req providers.ImageRequest) ([]byte, error) {
	return append([]byte("\x89PNG\r\n\x1a\n"), []byte("fake image")...), nil
}

func newTestServer(t *testing.T, vlm providers.VLM) *Server {
	t.Helper()
	store, err := runstore.NewStore(filepath.Join(t.TempDir(), "runs"))
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(vlm, pngImageGen{}, store, cache.NewNullCache(), logger)
	return New(runner, judge.New(vlm, logger), logger)
}

// session writes each request as a JSON line and returns the decoded
// responses in order.
func session(t *testing.T, s *Server, requests ...string) []response {
	t.Helper()
	var in bytes.Buffer
	for _, req := range requests {
		in.WriteString(req + "\n")
	}
	var out bytes.Buffer
	if err := s.Serve(context.Background(), &in, &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	var responses []response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("decode response %q: %v", line, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func callResult(t *testing.T, resp response) toolsCallResult {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("rpc error: %+v", resp.Error)
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	var result toolsCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	return result
}

func TestInitializeHandshake(t *testing.T) {
	s := newTestServer(t, &scriptedVLM{})

	responses := session(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)

	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2 (notification must not be answered)", len(responses))
	}

	init, err := json.Marshal(responses[0].Result)
	if err != nil {
		t.Fatal(err)
	}
	var initResult initializeResult
	if err := json.Unmarshal(init, &initResult); err != nil {
		t.Fatal(err)
	}
	if initResult.ProtocolVersion != protocolVersion {
		t.Errorf("protocolVersion = %q, want %q", initResult.ProtocolVersion, protocolVersion)
	}
	if initResult.ServerInfo.Name != "paperbanana" {
		t.Errorf("serverInfo.name = %q", initResult.ServerInfo.Name)
	}

	list, err := json.Marshal(responses[1].Result)
	if err != nil {
		t.Fatal(err)
	}
	var listResult toolsListResult
	if err := json.Unmarshal(list, &listResult); err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(listResult.Tools))
	for _, tl := range listResult.Tools {
		names = append(names, tl.Name)
	}
	want := []string{toolGenerateDiagram, toolGeneratePlot, toolEvaluateDiagram}
	if len(names) != len(want) {
		t.Fatalf("tools = %v, want %v", names, want)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("tools[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestGenerateDiagramReturnsImage(t *testing.T) {
	vlm := &scriptedVLM{responses: []string{
		"A two-stage training diagram",
		`{"critic_suggestions": [], "revised_description": ""}`,
	}}
	s := newTestServer(t, vlm)

	args := `{"source_context":"We train in two stages.","caption":"Training overview","iterations":1}`
	responses := session(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"generate_diagram","arguments":`+args+`}}`,
	)

	result := callResult(t, responses[0])
	if result.IsError {
		t.Fatalf("tool error: %+v", result.Content)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "image" {
		t.Fatalf("content = %+v, want one image", result.Content)
	}
	if result.Content[0].MimeType != "image/png" {
		t.Errorf("mimeType = %q, want image/png", result.Content[0].MimeType)
	}
	data, err := base64.StdEncoding.DecodeString(result.Content[0].Data)
	if err != nil {
		t.Fatalf("image data is not base64: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("decoded image lost its PNG header")
	}
}

func TestGeneratePlotRejectsBadJSON(t *testing.T) {
	s := newTestServer(t, &scriptedVLM{})

	responses := session(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"generate_plot","arguments":{"data_json":"not json","intent":"Bar chart"}}}`,
	)

	result := callResult(t, responses[0])
	if !result.IsError {
		t.Fatal("expected isError result for invalid data_json")
	}
}

func TestEvaluateDiagramFormatsVerdict(t *testing.T) {
	vlm := &scriptedVLM{responses: []string{
		`{"winner": "generated", "reasoning": "clear"}`,
		`{"winner": "generated", "reasoning": "clear"}`,
		`{"winner": "generated", "reasoning": "clear"}`,
		`{"winner": "generated", "reasoning": "clear"}`,
	}}
	s := newTestServer(t, vlm)

	dir := t.TempDir()
	generated := filepath.Join(dir, "generated.png")
	reference := filepath.Join(dir, "reference.png")
	png := append([]byte("\x89PNG\r\n\x1a\n"), 0)
	for _, path := range []string{generated, reference} {
		if err := os.WriteFile(path, png, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	args, _ := json.Marshal(map[string]string{
		"generated_path": generated,
		"reference_path": reference,
		"context":        "We train in two stages.",
		"caption":        "Training overview",
	})
	responses := session(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"evaluate_diagram","arguments":`+string(args)+`}}`,
	)

	result := callResult(t, responses[0])
	if result.IsError {
		t.Fatalf("tool error: %+v", result.Content)
	}
	text := result.Content[0].Text
	if !strings.Contains(text, "Overall Winner: generated") {
		t.Errorf("verdict missing overall winner:\n%s", text)
	}
	if !strings.Contains(text, "Faithfulness:") {
		t.Errorf("verdict missing dimension lines:\n%s", text)
	}
}

func TestUnknownToolReportsInBand(t *testing.T) {
	s := newTestServer(t, &scriptedVLM{})

	responses := session(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"make_coffee","arguments":{}}}`,
	)

	result := callResult(t, responses[0])
	if !result.IsError {
		t.Fatal("expected isError result for unknown tool")
	}
}

func TestUnknownMethod(t *testing.T) {
	s := newTestServer(t, &scriptedVLM{})

	responses := session(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
	)

	if responses[0].Error == nil || responses[0].Error.Code != codeMethodNotFound {
		t.Fatalf("error = %+v, want method-not-found", responses[0].Error)
	}
}
