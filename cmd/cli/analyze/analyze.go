package analyze

import (
	"fmt"
	"strings"
	"time"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/imageinput"
	"github.com/myrjola/skinwise/internal/payload"
	"github.com/myrjola/skinwise/internal/questionnaire"
	"github.com/myrjola/skinwise/internal/resultcache"
	"github.com/myrjola/skinwise/internal/submission"
	"github.com/myrjola/skinwise/internal/wizard"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd walks through the questionnaire, submits it and shows the routine.
func NewAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "analyze",
		GroupID: Group.ID,
		Short:   "Answer the questionnaire and get a skincare routine",
		Long: `Asks the questionnaire step by step, submits the answers with the three photos and prints the routine.

Type "back" to return to the previous step and "quit" to stop. The result is kept in the local cache so that
"skinwise report" shows it again.`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	machine := wizard.New()
	if err = questionnaire.Run(ctx, cmd.InOrStdin(), out, machine); err != nil {
		if errors.Is(err, questionnaire.ErrAborted) {
			_, _ = fmt.Fprintln(out, "Analysis cancelled, nothing was sent.")
			return nil
		}
		return errors.Wrap(err, "questionnaire")
	}

	answers := machine.Answers()
	images, err := imageinput.NormalizeAll(answers.ImageSlots())
	if err != nil {
		return errors.Wrap(err, "prepare photos")
	}
	parts := make([]*imageinput.Image, 0, len(images))
	for i := range images {
		parts = append(parts, &images[i])
	}
	p := payload.Assemble(answers, parts, payload.NewMetadata(time.Now()))

	client := submission.NewClient(strings.TrimRight(s.server, "/")+"/api/analysis", s.logger,
		submission.WithBearerToken(s.token), submission.WithTimeout(s.timeout))
	_, _ = fmt.Fprintln(out, "Analysing your answers, this can take a minute...")
	result, err := client.Submit(ctx, p)
	if err != nil {
		_, _ = fmt.Fprintf(out, "Analysis failed: %s\n", submission.Message(err))
		var transportErr *submission.TransportError
		if errors.As(err, &transportErr) {
			_, _ = fmt.Fprintln(out, "Check your connection and the --server address, then run the command again.")
		}
		return errors.Wrap(err, "submit")
	}

	entry := resultcache.Entry{ReportID: result.ReportID, Result: result.Result, SavedAt: time.Now().UTC()}
	if err = s.cache.Put(resultcache.LatestKey, entry); err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Could not cache the result: %v\n", err)
	}

	report, err := decodeReport(result.Result)
	if err != nil {
		return err
	}
	printReport(out, report)
	if result.ReportID != "" {
		_, _ = fmt.Fprintf(out, "\nSaved as report %s.\n", result.ReportID)
	}
	return nil
}
