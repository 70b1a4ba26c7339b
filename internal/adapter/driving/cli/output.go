package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ericfisherdev/orgsync/internal/application"
	"github.com/ericfisherdev/orgsync/internal/domain/model"
)

func printReport(w io.Writer, r model.RunReport) {
	fmt.Fprintf(w, "Run %s: %s PR #%d at %s\n", r.ID, r.SourceFullName(), r.PRNumber, shortSHA(r.HeadSHA))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORG\tSTATUS\tFILES\tRESULT")
	for _, j := range r.Jobs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", j.OrgName, j.Status, len(j.Committed), jobResult(j))
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(tw, "%s\tskipped\t0\t%s\n", s.OrgName, s.Reason)
	}
	_ = tw.Flush()
}

func jobResult(j model.SyncJob) string {
	switch j.Status {
	case model.JobPROpened:
		return j.PullRequestURL
	case model.JobNoChanges:
		return "destination already up to date"
	case model.JobFailed:
		return j.FailureKind + ": " + j.FailureReason
	default:
		return ""
	}
}

func printChecks(w io.Writer, checks []application.CredentialCheck) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORG\tOK\tDETAIL")
	for _, c := range checks {
		detail := c.Error
		if c.OK {
			detail = "token expires " + c.ExpiresAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\n", c.OrgName, c.OK, detail)
	}
	_ = tw.Flush()
}

func printRuns(w io.Writer, runs []model.RunReport) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFINISHED\tSOURCE\tPR\tJOBS\tFAILED\tSKIPPED")
	for _, r := range runs {
		s := application.Summarize(r)
		fmt.Fprintf(tw, "%s\t%s\t%s\t#%d\t%d\t%d\t%d\n",
			s.ID, s.FinishedAt.UTC().Format(time.RFC3339), s.Source, s.PRNumber, s.Jobs, s.Failed, s.Skipped)
	}
	_ = tw.Flush()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
