package analyze

import (
	"encoding/json"
	"fmt"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/resultcache"
	"github.com/myrjola/skinwise/internal/routine"
	"github.com/spf13/cobra"
)

// NewReportCmd shows a stored report or the latest local result.
func NewReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "report [id]",
		GroupID: Group.ID,
		Short:   "Show a report",
		Long: `Shows the report with the given id from the server. Without an id the latest analysis is shown: when the
server stored it, the server copy is read, otherwise the locally cached result.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReport,
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		if s.token == "" {
			return errors.New("reading a stored report needs --token")
		}
		stored, fetchErr := newAPI(s).report(ctx, args[0])
		if fetchErr != nil {
			return errors.Wrap(fetchErr, "fetch report")
		}
		return printStored(cmd, stored)
	}

	entry, err := s.cache.Get(resultcache.LatestKey)
	if errors.Is(err, resultcache.ErrMiss) {
		_, _ = fmt.Fprintln(out, `No analysis yet. Run "skinwise analyze" to get your routine.`)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read cache")
	}

	if entry.ReportID != "" && s.token != "" {
		stored, fetchErr := newAPI(s).report(ctx, entry.ReportID)
		if fetchErr == nil {
			return printStored(cmd, stored)
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Could not read report %s from the server, showing the local copy: %v\n",
			entry.ReportID, fetchErr)
	}

	report, err := decodeReport(entry.Result)
	if err != nil {
		return err
	}
	printReport(out, report)
	_, _ = fmt.Fprintf(out, "\nAnalysed %s.\n", entry.SavedAt.Local().Format("2 Jan 2006 15:04"))
	return nil
}

func printStored(cmd *cobra.Command, stored storedReport) error {
	report, err := decodeReport(stored.Data)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printReport(out, report)
	_, _ = fmt.Fprintf(out, "\nReport %s, created %s.\n", stored.ID, stored.CreatedAt.Local().Format("2 Jan 2006 15:04"))
	return nil
}

// decodeReport renders any stored or returned result through the normalizer so that older shapes still display.
func decodeReport(raw json.RawMessage) (routine.Report, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return routine.Report{}, errors.Wrap(err, "decode result")
	}
	return routine.NormalizeValue(decoded), nil
}
