// Package img generates artwork for the web UI.
package img

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/myrjola/skinwise/internal/ai"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/logging"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{ //nolint:gochecknoglobals // cobra command group.
	ID:    "img",
	Title: "Image operations",
}

const (
	outDirFlag   = "out-dir"
	baseURLFlag  = "openai-base-url"
	promptPrefix = "A minimalist studio product photo of an unbranded skincare bottle on a plain pastel background, " +
		"soft lighting, no text, inspired by "
)

// NewPlaceholderCmd generates a product placeholder image with DALL-E.
func NewPlaceholderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "placeholder [brand]",
		GroupID: Group.ID,
		Short:   "Generate a product placeholder image",
		Long: `Generates a product placeholder with DALL-E and stores it as <out-dir>/<brand>.png.

Needs OPENAI_API_KEY.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runPlaceholder,
	}
	cmd.Flags().String(outDirFlag, "./ui/static/products", "directory of the generated image")
	cmd.Flags().String(baseURLFlag, "", "OpenAI compatible API base URL")
	return cmd
}

func slug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func runPlaceholder(cmd *cobra.Command, args []string) error {
	brand := strings.Join(args, " ")
	name := slug(brand)
	if name == "" {
		return errors.New("brand must contain letters or digits")
	}
	outDir, err := cmd.Flags().GetString(outDirFlag)
	if err != nil {
		return errors.Wrap(err, "out-dir flag")
	}
	baseURL, err := cmd.Flags().GetString(baseURLFlag)
	if err != nil {
		return errors.Wrap(err, "openai-base-url flag")
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}

	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(cmd.ErrOrStderr(), nil)))
	generator := ai.NewOpenAIGenerator(apiKey, baseURL, "", logger)
	imgBytes, err := generator.GeneratePlaceholder(cmd.Context(), promptPrefix+brand)
	if err != nil {
		return errors.Wrap(err, "generate placeholder", slog.String("brand", brand))
	}

	// Decoding verifies that the provider returned a PNG before anything is written.
	imgData, err := png.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return errors.Wrap(err, "decode PNG")
	}
	if err = os.MkdirAll(outDir, 0o755); err != nil { //nolint:gosec // static assets are world readable.
		return errors.Wrap(err, "create out dir", slog.String("dir", outDir))
	}
	outPath := filepath.Join(outDir, name+".png")
	file, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "create file", slog.String("path", outPath))
	}
	if err = png.Encode(file, imgData); err != nil {
		_ = file.Close()
		return errors.Wrap(err, "encode PNG", slog.String("path", outPath))
	}
	if err = file.Close(); err != nil {
		return errors.Wrap(err, "close file", slog.String("path", outPath))
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
	return nil
}
