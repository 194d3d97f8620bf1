package ai

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"strings"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/sashabaranov/go-openai"
)

const MaxTokens = 4096

// OpenAIGenerator sends the prompt and images inline as data URLs to the chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIGenerator creates a generator for apiKey. An empty baseURL keeps the public API endpoint.
func NewOpenAIGenerator(apiKey, baseURL, model string, logger *slog.Logger) *OpenAIGenerator {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.With(slog.String("source", "OpenAIGenerator")),
	}
}

func (g *OpenAIGenerator) GenerateRoutine(ctx context.Context, prompt string, images []Image) (string, error) {
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}} //nolint:exhaustruct // text part.
	for _, img := range images {
		dataURL, err := readDataURL(img)
		if err != nil {
			return "", errors.Wrap(err, "read image", slog.String("name", img.Name))
		}
		parts = append(parts, openai.ChatMessagePart{ //nolint:exhaustruct // image part.
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	completion, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{ //nolint:exhaustruct // readability.
		Model:     g.model,
		MaxTokens: MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{ //nolint:exhaustruct // no schema.
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts}, //nolint:exhaustruct // multi content message.
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "create chat completion", slog.String("model", g.model))
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", errors.Wrap(ErrEmptyResponse, "read completion", slog.String("model", g.model))
	}
	g.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion finished",
		slog.String("model", completion.Model),
		slog.Int("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int("completion_tokens", completion.Usage.CompletionTokens))
	return completion.Choices[0].Message.Content, nil
}

// GeneratePlaceholder draws a square product placeholder image and returns it PNG encoded.
func (g *OpenAIGenerator) GeneratePlaceholder(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{ //nolint:exhaustruct // defaults are fine.
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create image")
	}
	if len(resp.Data) == 0 {
		return nil, errors.Wrap(ErrEmptyResponse, "read image response")
	}
	var png []byte
	if png, err = base64.StdEncoding.DecodeString(resp.Data[0].B64JSON); err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return png, nil
}

func readDataURL(img Image) (string, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return "", errors.Wrap(err, "read file", slog.String("path", img.Path))
	}
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
