package ai

import (
	"context"
	"testing"
)

func TestNewVertexAIClient_NilConfig(t *testing.T) {
	if _, err := NewVertexAIClient(context.Background(), nil); err == nil {
		t.Fatal("Expected error for nil config")
	}
}

func TestNewVertexAIClient_Defaults(t *testing.T) {
	config := &ClientConfig{APIKey: "test-api-key"}

	client, err := NewVertexAIClient(context.Background(), config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.EmbedModel != "text-embedding-005" {
		t.Errorf("Expected EmbedModel 'text-embedding-005', got '%s'", config.EmbedModel)
	}
	if config.ChatModel != "gemini-2.0-flash" {
		t.Errorf("Expected ChatModel 'gemini-2.0-flash', got '%s'", config.ChatModel)
	}
	if client.Dim() != 768 {
		t.Errorf("Expected Dim 768, got %d", client.Dim())
	}
	// an API key selects express mode, which must not carry a location
	if config.Location != "" {
		t.Errorf("Expected empty Location with API key, got '%s'", config.Location)
	}
}

func TestVertexAIClient_Dim(t *testing.T) {
	tests := []struct {
		name        string
		configDim   int
		expectedDim int
	}{
		{"default dimension", 768, 768},
		{"custom dimension", 1536, 1536},
		{"small dimension", 256, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &VertexAIClient{
				config: &ClientConfig{APIKey: "test-key", Dim: tt.configDim},
			}
			if dim := client.Dim(); dim != tt.expectedDim {
				t.Errorf("Expected dimension %d, got %d", tt.expectedDim, dim)
			}
		})
	}
}
