package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func geminiTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiVLMGenerate(t *testing.T) {
	var got geminiRequest
	srv := geminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "a diagram description"}}}},
			},
		})
	})

	vlm := NewGeminiVLM("test-key", "gemini-2.5-flash")
	vlm.client.baseURL = srv.URL

	out, err := vlm.Generate(context.Background(), VLMRequest{
		Prompt:       "describe this",
		SystemPrompt: "you are a critic",
		Images:       [][]byte{pngMagic()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a diagram description" {
		t.Errorf("out = %q", out)
	}

	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "you are a critic" {
		t.Error("system instruction not forwarded")
	}
	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected content shape: %+v", got.Contents)
	}
	inline := got.Contents[0].Parts[1].InlineData
	if inline == nil || inline.MimeType != "image/png" {
		t.Errorf("image part not encoded as inline png data: %+v", inline)
	}
}

func TestGeminiVLMJSONFormat(t *testing.T) {
	var got geminiRequest
	srv := geminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "{}"}}}},
			},
		})
	})

	vlm := NewGeminiVLM("k", "m")
	vlm.client.baseURL = srv.URL

	if _, err := vlm.Generate(context.Background(), VLMRequest{Prompt: "p", ResponseFormat: "json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.ResponseMimeType != "application/json" {
		t.Error("json response format not requested")
	}
}

func TestGeminiVLMErrorStatus(t *testing.T) {
	srv := geminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"bad prompt"}}`, http.StatusBadRequest)
	})

	vlm := NewGeminiVLM("k", "m")
	vlm.client.baseURL = srv.URL

	_, err := vlm.Generate(context.Background(), VLMRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Errorf("error = %v", err)
	}
}

func TestGoogleImageGenGenerate(t *testing.T) {
	imageBytes := pngMagic()
	var got geminiRequest
	srv := geminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"inlineData": map[string]any{
						"mimeType": "image/png",
						"data":     base64.StdEncoding.EncodeToString(imageBytes),
					}},
				}}},
			},
		})
	})

	gen := NewGoogleImageGen("k", "gemini-2.5-flash-image")
	gen.client.baseURL = srv.URL

	out, err := gen.Generate(context.Background(), ImageRequest{
		Prompt:         "a bar chart",
		NegativePrompt: "text artifacts",
		Width:          1536,
		Height:         1024,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != string(imageBytes) {
		t.Error("decoded image does not round-trip")
	}

	prompt := got.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Avoid: text artifacts") {
		t.Errorf("negative prompt not appended: %q", prompt)
	}
	if !strings.Contains(prompt, "landscape") {
		t.Errorf("aspect hint missing: %q", prompt)
	}
}

func TestGoogleImageGenNoImage(t *testing.T) {
	srv := geminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "sorry"}}}},
			},
		})
	})

	gen := NewGoogleImageGen("k", "m")
	gen.client.baseURL = srv.URL

	if _, err := gen.Generate(context.Background(), ImageRequest{Prompt: "p"}); err == nil {
		t.Fatal("expected error for response without image data")
	}
}

// pngMagic returns the smallest byte sequence the MIME sniffer recognizes
// as a PNG.
func pngMagic() []byte {
	return []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
}
