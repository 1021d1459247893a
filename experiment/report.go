package experiment

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteReport prints one block per result: a per-trial table when verbose
// is set, followed by the mean ± standard error of the absolute and
// relative errors.
func WriteReport(w io.Writer, s Sampling, results []Result, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, r := range results {
		fmt.Fprintf(tw, "N = %d; D = %d; sampling = %s\t\n", r.N, r.D, s)
		fmt.Fprintln(tw, "True value\tApproximated value\tAbsolute error\tRelative error\t")
		if verbose {
			for _, t := range r.Trials {
				fmt.Fprintf(tw, "%.2f\t%.2f\t%.2f\t%.2f %%\t\n", t.True, t.Approx, t.AbsError(), t.RelError())
			}
		}
		fmt.Fprintf(tw, "\t\t%.2f +/- %.2f\t%.2f +/- %.2f\t\n\n", r.MeanAbs, r.StdErrAbs, r.MeanRel, r.StdErrRel)
	}
	return tw.Flush()
}
