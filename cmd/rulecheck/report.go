package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cory-johannsen/modstack/internal/ruleset/loader"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

func writeSummary(w io.Writer, res *loader.Result, elapsed time.Duration) {
	fmt.Fprintf(w, "load %s: %d mod(s) linked in %d attempt(s) [%s]\n",
		res.LoadID, len(res.Mods), res.Attempts, elapsed.Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MOD\tVERSION\tOFFSET\tBUDGET")
	for _, a := range res.Table.Allocations() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", a.Mod.ID, a.Mod.Version, a.Offset, a.Budget)
	}
	_ = tw.Flush()

	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tRULES")
	for _, v := range res.DB.Views() {
		fmt.Fprintf(tw, "%s\t%d\n", v.Kind(), v.Len())
	}
	_ = tw.Flush()

	s := res.Stats
	fmt.Fprintf(w, "documents=%d created=%d modified=%d deleted=%d skipped=%d ignored=%d warnings=%d\n",
		s.Documents, s.Created, s.Modified, s.Deleted, s.Skipped, s.Ignored, s.Warnings)
	for _, sk := range res.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", sk.Mod.ID, sk.Reason)
	}
	for _, id := range res.Disabled {
		fmt.Fprintf(w, "disabled %s\n", id)
	}
}

func writeFailure(w io.Writer, err error) {
	var report *ruleerr.LinkReport
	if errors.As(err, &report) {
		fmt.Fprintf(w, "linking failed with %d error(s)", len(report.Failures))
		if report.Aborted {
			fmt.Fprint(w, ", stopped at the limit")
		}
		fmt.Fprintln(w, ":")
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  %s\n", f)
		}
		return
	}
	fmt.Fprintf(w, "load failed: %v\n", err)
}
