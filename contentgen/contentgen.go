// Package contentgen drafts post copy for recurring jobs through an AI
// provider.
package contentgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/nivaro/postpilot/scheduling/domain"
)

// GenerationRequest describes the post to draft.
type GenerationRequest struct {
	TargetID   string
	TargetName string
	Kind       domain.PostKind
	Tone       string
	Category   string
	MaxChars   int
}

// IContentProvider drafts a single post text. Implementations wrap one AI
// vendor; provider choice is a deployment setting.
type IContentProvider interface {
	Generate(ctx context.Context, request GenerationRequest) (string, error)
}

// ProviderConfig selects and configures a concrete provider.
type ProviderConfig struct {
	Provider string // "openai" or "gemini"
	Model    string
	APIKey   string
}

// NewProvider builds the configured provider.
func NewProvider(cfg ProviderConfig) (IContentProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model), nil
	case "gemini":
		return NewGeminiProvider(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown content provider: %s", cfg.Provider)
	}
}

// buildPrompt renders the shared drafting instructions. Both providers use
// the same prompt so switching vendors does not change the voice.
func buildPrompt(req GenerationRequest) string {
	var sb strings.Builder
	sb.WriteString("Write a short social post for a local business listing.\n")
	if req.TargetName != "" {
		fmt.Fprintf(&sb, "Business: %s\n", req.TargetName)
	}
	fmt.Fprintf(&sb, "Post type: %s\n", req.Kind)
	if req.Category != "" {
		fmt.Fprintf(&sb, "Topic: %s\n", req.Category)
	}
	tone := req.Tone
	if tone == "" {
		tone = "friendly"
	}
	fmt.Fprintf(&sb, "Tone: %s\n", tone)
	maxChars := req.MaxChars
	if maxChars <= 0 {
		maxChars = 1500
	}
	fmt.Fprintf(&sb, "Hard limit: %d characters. No hashtags, no emojis, no markdown. Return only the post text.", maxChars)
	return sb.String()
}

// clampText enforces the character budget even when the model ignores it.
func clampText(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 {
		maxChars = 1500
	}
	if len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if i := strings.LastIndexAny(cut, ".!?"); i > maxChars/2 {
		return cut[:i+1]
	}
	return strings.TrimSpace(cut)
}
