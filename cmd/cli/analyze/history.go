package analyze

import (
	"fmt"
	"text/tabwriter"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/spf13/cobra"
)

const historyLimitFlag = "limit"

// NewHistoryCmd lists the reports stored on the server.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		GroupID: Group.ID,
		Short:   "List your stored reports, newest first",
		Args:    cobra.NoArgs,
		RunE:    runHistory,
	}
	cmd.Flags().Int(historyLimitFlag, 0, "maximum number of reports, 0 uses the server default")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if s.token == "" {
		return errors.New("listing stored reports needs --token")
	}
	limit, err := cmd.Flags().GetInt(historyLimitFlag)
	if err != nil {
		return errors.Wrap(err, "limit flag")
	}

	reports, err := newAPI(s).history(cmd.Context(), limit)
	if err != nil {
		return errors.Wrap(err, "fetch history")
	}
	out := cmd.OutOrStdout()
	if len(reports) == 0 {
		_, _ = fmt.Fprintln(out, "No stored reports.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd // column padding.
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tSUMMARY")
	for _, stored := range reports {
		summary := ""
		if report, decodeErr := decodeReport(stored.Data); decodeErr == nil {
			summary = truncate(report.Analysis, 60) //nolint:mnd // fits a terminal line.
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", stored.ID, stored.CreatedAt.Local().Format("2006-01-02 15:04"), summary)
	}
	return errors.Wrap(w.Flush(), "flush table")
}
