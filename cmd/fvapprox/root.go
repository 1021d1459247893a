package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/fvapprox"
)

type rootOptions struct {
	verbose  int
	jsonLogs bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "fvapprox",
		Short:         "Exact and approximate Fisher vector scoring",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().CountVarP(&opts.verbose, "verbose", "v", "verbosity level (repeat for debug output)")
	cmd.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "emit JSON logs")

	cmd.AddCommand(newEvaluateCmd(opts))
	cmd.AddCommand(newExperimentCmd(opts))
	return cmd
}

// logger returns a no-op logger unless -v is given.
func (o *rootOptions) logger() *fvapprox.Logger {
	var level slog.Level
	switch o.verbose {
	case 0:
		return fvapprox.NoopLogger()
	case 1:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}
	if o.jsonLogs {
		return fvapprox.NewJSONLogger(level)
	}
	return fvapprox.NewTextLogger(level)
}
