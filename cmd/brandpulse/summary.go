package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"brandpulse/internal/domain/workflow"
)

// writeSummary prints the human-readable form of a report
func writeSummary(out io.Writer, r *workflow.Report) {
	fmt.Fprintf(out, "Brand:     %s\n", r.Brand)
	fmt.Fprintf(out, "Run:       %s\n", r.RunID)
	fmt.Fprintf(out, "Status:    %s (%s)\n", r.Status, r.ExecutionTime.Round(time.Millisecond))

	docs := fmt.Sprintf("%d of %s available", len(r.Documents), humanize.Comma(int64(r.TotalAvailable)))
	if r.Degraded {
		docs += ", served from fallback"
	}
	fmt.Fprintf(out, "Documents: %s\n", docs)

	if a := r.RiskAssessment; a != nil {
		fmt.Fprintf(out, "Risk:      %s, score %.2f, %d%% negative, %d crisis indicators\n",
			a.CrisisLevel, a.CrisisScore, int(a.NegativeSentimentRatio*100+0.5), a.CrisisIndicatorCount)
	}

	if len(r.Steps) > 0 {
		fmt.Fprintln(out, "\nSteps:")
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, s := range r.Steps {
			note := s.Detail
			if s.Error != "" {
				note = s.Error
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", s.Step, s.Outcome, note)
		}
		_ = tw.Flush()
	}

	if len(r.Responses) > 0 {
		fmt.Fprintln(out, "\nResponses:")
		for _, o := range r.Responses {
			fmt.Fprintf(out, "  [%s risk %.2f] %s\n", o.Decision.Status, o.Decision.RiskScore, o.Response.Text)
		}
	}

	if e := r.Escalation; e != nil {
		fmt.Fprintf(out, "\nCrisis escalated to %s\n", strings.Join(e.Reviewers, ", "))
	}

	printList(out, "Recommendations", r.Recommendations)
	printList(out, "Next actions", r.NextActions)
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(out, "  - %s\n", it)
	}
}
