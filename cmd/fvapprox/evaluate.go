package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/fvapprox"
	"github.com/hupe1980/fvapprox/classifier"
	"github.com/hupe1980/fvapprox/normalize"
	"github.com/hupe1980/fvapprox/scorer"
	"github.com/hupe1980/fvapprox/synthetic"
)

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	var (
		configPath string
		nAgg        int
		workers     int
		standardize bool
		trainL2     string
		data        = synthetic.DefaultConfig()
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compare exact and approximate scores on synthetic data",
		Long: `Generates blob-clustered slice data with one classifier per class, scores
every video exactly and approximately, and prints per-class agreement
between the two modes.

The layout, aggregation, chunking and cache settings come from --config;
the mode settings in it are ignored.

With --standardize or --train-l2, a training split of the same size is
drawn around the same class centers and normalized with the configured
square root and the --train-l2 norm. Standardizing fits the scaler on it.
The classifiers are then the class centroids of that split.`,
		Example: `  fvapprox evaluate --videos 500 --classes 10 --n-agg 4
  fvapprox evaluate --standardize --train-l2 approx
  fvapprox evaluate --config fvapprox.yaml -v`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := fvapprox.DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = fvapprox.LoadConfig(configPath); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("n-agg") {
				cfg.NAgg = nAgg
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if standardize {
				cfg.Standardize = true
			}
			l2, err := normalize.ParseL2Mode(trainL2)
			if err != nil {
				return err
			}
			data.Layout = cfg.Layout()

			ds, err := synthetic.Generate(data)
			if err != nil {
				return err
			}

			logger := root.logger()
			models := classifier.Source(ds.Classifiers)
			optFns := []fvapprox.Option{fvapprox.WithLogger(logger)}
			if cfg.Standardize || cmd.Flags().Changed("train-l2") {
				split, _, err := ds.Split(data.Videos, data.Seed+1)
				if err != nil {
					return err
				}
				tr, err := train(cfg, l2, split, data.Classes)
				if err != nil {
					return fmt.Errorf("train: %w", err)
				}
				models = tr.models
				if tr.scaler != nil {
					optFns = append(optFns, fvapprox.WithScaler(tr.scaler))
				}
				logger.InfoContext(cmd.Context(), "trained centroid classifiers",
					"videos", tr.videos,
					"l2", l2.String(),
					"standardize", cfg.Standardize,
				)
			}

			mc := &fvapprox.BasicMetricsCollector{}
			optFns = append(optFns, fvapprox.WithMetricsCollector(mc))
			results := make(map[normalize.PredictionMode]scorer.Results, 2)
			for _, mode := range []normalize.PredictionMode{normalize.PredictExact, normalize.PredictApprox} {
				cfg.Mode = mode.String()
				ev, err := fvapprox.NewEvaluator(cfg, optFns...)
				if err != nil {
					return err
				}
				res, err := ev.Evaluate(cmd.Context(), ds.Slices, ds.NrSlices, models)
				if err != nil {
					return fmt.Errorf("%s: %w", mode, err)
				}
				results[mode] = res
			}

			stats := mc.GetStats()
			logger.InfoContext(cmd.Context(), "evaluation finished",
				"videos", len(ds.NrSlices),
				"classes", models.NumClasses(),
				"batches", stats.BatchCount,
				"cache_hits", stats.CacheHits,
			)
			return writeAgreement(cmd.OutOrStdout(), results[normalize.PredictExact], results[normalize.PredictApprox])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.IntVar(&nAgg, "n-agg", 1, "number of consecutive slices to aggregate")
	f.IntVarP(&workers, "workers", "t", 0, "concurrent classes (0 = GOMAXPROCS)")
	f.BoolVar(&standardize, "standardize", false, "standardize with a scaler fit on a synthetic training split")
	f.StringVar(&trainL2, "train-l2", normalize.L2Exact.String(), "L2 normalization of the training split: exact or approx")
	f.IntVar(&data.Videos, "videos", data.Videos, "number of synthetic videos")
	f.IntVar(&data.Classes, "classes", data.Classes, "number of classes")
	f.IntVar(&data.MaxSlices, "max-slices", data.MaxSlices, "maximum slices per video")
	f.Float64Var(&data.Spread, "spread", data.Spread, "slice spread around the class center")
	f.Uint64Var(&data.Seed, "seed", data.Seed, "random seed")
	return cmd
}

// writeAgreement prints, per class, the largest score difference and the
// correlation between the two modes, followed by the fraction of videos
// whose top-scoring class agrees.
func writeAgreement(w io.Writer, exact, approx scorer.Results) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Class\tMax abs diff\tCorrelation\t")
	diff := make([]float64, 0)
	for _, cls := range exact.Classes() {
		e, a := exact[cls], approx[cls]
		diff = diff[:0]
		for i := range e {
			diff = append(diff, math.Abs(e[i]-a[i]))
		}
		fmt.Fprintf(tw, "%d\t%.4g\t%.4f\t\n", cls, floats.Max(diff), stat.Correlation(e, a, nil))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	agree, videos := topClassAgreement(exact, approx)
	_, err := fmt.Fprintf(w, "\nTop class agreement: %d / %d videos\n", agree, videos)
	return err
}

func topClassAgreement(exact, approx scorer.Results) (agree, videos int) {
	classes := exact.Classes()
	if len(classes) == 0 {
		return 0, 0
	}
	videos = len(exact[classes[0]])
	for v := range videos {
		if argmax(exact, classes, v) == argmax(approx, classes, v) {
			agree++
		}
	}
	return agree, videos
}

func argmax(r scorer.Results, classes []int, v int) int {
	best := classes[0]
	for _, cls := range classes[1:] {
		if r[cls][v] > r[best][v] {
			best = cls
		}
	}
	return best
}
