package contentgen

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider is the adapter for the OpenAI API.
type OpenAIProvider struct {
	apiKey string
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{apiKey: apiKey, model: model}
}

func (p *OpenAIProvider) Generate(ctx context.Context, request GenerationRequest) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("openai provider has no API key")
	}

	client := openai.NewClient(
		option.WithAPIKey(p.apiKey),
	)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You write concise, on-brand posts for small business listings."),
			openai.UserMessage(buildPrompt(request)),
		},
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	text := clampText(completion.Choices[0].Message.Content, request.MaxChars)

	logrus.WithFields(logrus.Fields{
		"target_id":     request.TargetID,
		"model":         p.model,
		"input_tokens":  completion.Usage.PromptTokens,
		"output_tokens": completion.Usage.CompletionTokens,
	}).Debug("[OPENAI] Post draft completed")

	return text, nil
}
