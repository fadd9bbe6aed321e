package external

import (
	"context"
	"errors"
	"testing"
	"time"

	"dailypost/internal/types"

	llmtypes "github.com/aktagon/llmkit/anthropic/types"
)

func TestAnthropicComplete_PassesSchemaAndSettings(t *testing.T) {
	model := NewAnthropicModel(AnthropicConfig{APIKey: "sk-ant", Model: "claude-test"})

	var gotSchema, gotKey string
	var gotSettings llmtypes.RequestSettings
	model.prompt = func(system, user, schema, apiKey string, settings llmtypes.RequestSettings) (string, error) {
		gotSchema, gotKey, gotSettings = schema, apiKey, settings
		return `{"items":["a"]}`, nil
	}

	text, err := model.Complete(context.Background(), CompletionRequest{
		System: "s", User: "u", Schema: `{"type":"object"}`, Temperature: 0.3, MaxTokens: 900,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"items":["a"]}` {
		t.Errorf("text = %q", text)
	}
	if gotSchema != `{"type":"object"}` || gotKey != "sk-ant" {
		t.Errorf("schema=%q key=%q", gotSchema, gotKey)
	}
	if gotSettings.Model != "claude-test" || gotSettings.MaxTokens != 900 || gotSettings.Temperature != 0.3 {
		t.Errorf("settings = %+v", gotSettings)
	}
}

func TestAnthropicComplete_Failure(t *testing.T) {
	model := NewAnthropicModel(AnthropicConfig{APIKey: "sk-ant"})
	model.prompt = func(string, string, string, string, llmtypes.RequestSettings) (string, error) {
		return "", errors.New("529 overloaded")
	}

	_, err := model.Complete(context.Background(), CompletionRequest{})
	if !types.IsCode(err, types.ErrCodeUpstreamSegmenter) {
		t.Fatalf("expected segmenter error, got %v", err)
	}
}

func TestAnthropicComplete_ContextCancelled(t *testing.T) {
	model := NewAnthropicModel(AnthropicConfig{APIKey: "sk-ant"})
	release := make(chan struct{})
	defer close(release)
	model.prompt = func(string, string, string, string, llmtypes.RequestSettings) (string, error) {
		<-release
		return "", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := model.Complete(ctx, CompletionRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestAnthropicComplete_MissingCredential(t *testing.T) {
	model := NewAnthropicModel(AnthropicConfig{})
	_, err := model.Complete(context.Background(), CompletionRequest{})
	if !types.IsCode(err, types.ErrCodeConfigMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}

	if got := model.WithAPIKey("sk-override").(*AnthropicModel).apiKey; got != "sk-override" {
		t.Errorf("override key = %q", got.Unmask())
	}
}
