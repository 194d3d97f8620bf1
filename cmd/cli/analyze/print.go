package analyze

import (
	"fmt"
	"io"
	"strings"

	"github.com/myrjola/skinwise/internal/routine"
)

func printReport(w io.Writer, report routine.Report) {
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, format, args...)
	}
	if report.IsEmpty() {
		p("The analysis did not return a routine. Run \"skinwise analyze\" to try again.\n")
		return
	}
	if report.Analysis != "" {
		p("Skin analysis\n  %s\n", report.Analysis)
	}
	printSteps(w, "Morning routine", report.MorningRoutine)
	printSteps(w, "Night routine", report.NightRoutine)

	p("\nLifestyle\n")
	printList(w, "Do", report.Lifestyle.Do)
	printList(w, "Don't", report.Lifestyle.Dont)
	printList(w, "Tips", report.Lifestyle.Tips)

	if len(report.Products) > 0 {
		p("\nRecommended products\n")
		for _, product := range report.Products {
			p("  - %s\n", product.Name)
		}
	}
}

func printSteps(w io.Writer, title string, steps []routine.Step) {
	_, _ = fmt.Fprintf(w, "\n%s\n", title)
	if len(steps) == 0 {
		_, _ = fmt.Fprintln(w, "  No steps.")
		return
	}
	for i, step := range steps {
		_, _ = fmt.Fprintf(w, "  %d. %s\n", i+1, step.Title)
		if step.Description != "" {
			_, _ = fmt.Fprintf(w, "     %s\n", step.Description)
		}
		for _, product := range step.Products {
			line := product.Name
			if product.Usage != "" {
				line += ": " + product.Usage
			}
			if len(product.Ingredients) > 0 {
				line += " (" + strings.Join(product.Ingredients, ", ") + ")"
			}
			_, _ = fmt.Fprintf(w, "     * %s\n", line)
		}
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "  %s\n", title)
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "    - %s\n", item)
	}
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "…"
}
