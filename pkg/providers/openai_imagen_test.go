package providers

import (
	"testing"

	openai "github.com/openai/openai-go"
)

func TestSnapImageSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          openai.ImageGenerateParamsSize
	}{
		{"landscape", 1536, 1024, openai.ImageGenerateParamsSize1536x1024},
		{"wide", 1920, 1080, openai.ImageGenerateParamsSize1536x1024},
		{"portrait", 1024, 1536, openai.ImageGenerateParamsSize1024x1536},
		{"square", 1024, 1024, openai.ImageGenerateParamsSize1024x1024},
		{"near square", 1100, 1000, openai.ImageGenerateParamsSize1024x1024},
		{"unspecified", 0, 0, openai.ImageGenerateParamsSize1024x1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snapImageSize(tt.width, tt.height); got != tt.want {
				t.Errorf("snapImageSize(%d, %d) = %v, want %v", tt.width, tt.height, got, tt.want)
			}
		})
	}
}
