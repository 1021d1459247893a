package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/fvapprox/experiment"
)

func newExperimentCmd(root *rootOptions) *cobra.Command {
	var (
		cfg      experiment.Config
		sampling string
	)
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Measure the error of the L2 norm approximation",
		Long: `Draws N samples of dimension D, aggregates them and compares the exact
squared L2 norm of their mean with the approximation built from per-sample
squared norms. Reports mean absolute and relative error with standard errors.

Sampling types:
  independent   standard normal entries
  sparse_N      N non-zero entries per sample
  sparse_F      a fraction F in (0, 1) of non-zero entries per sample`,
		Example: `  fvapprox experiment -N 1,10,100 -D 64,256 --repeats 20
  fvapprox experiment -N 10 -D 100 --sampling sparse_0.1 -v`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := experiment.ParseSampling(sampling)
			if err != nil {
				return err
			}
			cfg.Sampling = s
			results, err := experiment.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return experiment.WriteReport(cmd.OutOrStdout(), s, results, root.verbose > 0)
		},
	}
	f := cmd.Flags()
	f.IntSliceVarP(&cfg.Ns, "nr-samples", "N", nil, "numbers of samples")
	f.IntSliceVarP(&cfg.Ds, "nr-dimensions", "D", nil, "numbers of dimensions")
	f.IntVar(&cfg.Repeats, "repeats", 10, "number of times to repeat each experiment")
	f.StringVar(&sampling, "sampling", "independent", "how samples are drawn")
	f.Uint64Var(&cfg.Seed, "seed", 0, "random seed")
	f.IntVarP(&cfg.Workers, "workers", "t", 0, "concurrent cells (0 = GOMAXPROCS)")
	_ = cmd.MarkFlagRequired("nr-samples")
	_ = cmd.MarkFlagRequired("nr-dimensions")
	return cmd
}
