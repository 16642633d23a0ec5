package contentgen

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider is the adapter for the Google Gemini API.
type GeminiProvider struct {
	apiKey string
	model  string
}

func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{apiKey: apiKey, model: model}
}

func (p *GeminiProvider) Generate(ctx context.Context, request GenerationRequest) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("gemini provider has no API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", err
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			"You write concise, on-brand posts for small business listings.", ""),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(request), genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, contents, genConfig)
	if err != nil {
		return "", err
	}

	text := clampText(resp.Text(), request.MaxChars)
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}

	logrus.WithFields(logrus.Fields{
		"target_id": request.TargetID,
		"model":     p.model,
	}).Debug("[GEMINI] Post draft completed")

	return text, nil
}
