package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/skinwise/cmd/cli/analyze"
	"github.com/myrjola/skinwise/cmd/cli/img"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "skinwise",
		Long:          `Command line client for Skinwise, a personal skincare routine from a short questionnaire and three photos.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	analyze.AddFlags(rootCmd)
	rootCmd.AddGroup(analyze.Group)
	rootCmd.AddCommand(analyze.NewAnalyzeCmd(), analyze.NewReportCmd(), analyze.NewHistoryCmd())
	rootCmd.AddGroup(img.Group)
	rootCmd.AddCommand(img.NewPlaceholderCmd())
	return rootCmd
}

func main() {
	// A missing .env file is fine, the environment may be configured directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
