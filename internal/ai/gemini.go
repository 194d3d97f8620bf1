package ai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/myrjola/skinwise/internal/errors"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiGenerator uploads the images through the Files API and references them from the prompt.
//
// Uploads happen one at a time and the uploaded files are deleted once the response is in.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiGenerator creates a generator for apiKey. An empty baseURL keeps the public API endpoint.
func NewGeminiGenerator(ctx context.Context, apiKey, baseURL, model string, logger *slog.Logger) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{ //nolint:exhaustruct // defaults are fine.
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL}, //nolint:exhaustruct // only the base URL is overridden.
	})
	if err != nil {
		return nil, errors.Wrap(err, "new genai client")
	}
	return &GeminiGenerator{
		client: client,
		model:  model,
		logger: logger.With(slog.String("source", "GeminiGenerator")),
	}, nil
}

func (g *GeminiGenerator) GenerateRoutine(ctx context.Context, prompt string, images []Image) (string, error) {
	var uploaded []*genai.File
	defer func() {
		for _, f := range uploaded {
			if _, err := g.client.Files.Delete(context.WithoutCancel(ctx), f.Name, nil); err != nil {
				g.logger.LogAttrs(ctx, slog.LevelWarn, "failed to delete uploaded file",
					slog.String("file", f.Name), errors.SlogError(errors.Wrap(err, "delete file")))
			}
		}
	}()

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range images {
		f, err := g.client.Files.UploadFromPath(ctx, img.Path, &genai.UploadFileConfig{ //nolint:exhaustruct // name is assigned.
			MIMEType:    img.MIMEType,
			DisplayName: img.Name,
		})
		if err != nil {
			return "", errors.Wrap(err, "upload image", slog.String("name", img.Name))
		}
		uploaded = append(uploaded, f)
		parts = append(parts, genai.NewPartFromURI(f.URI, f.MIMEType))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"}, //nolint:exhaustruct // JSON output only.
	)
	if err != nil {
		return "", errors.Wrap(err, "generate content", slog.String("model", g.model))
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.Wrap(ErrEmptyResponse, "read content", slog.String("model", g.model))
	}
	return text, nil
}
