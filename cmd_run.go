package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/machina-dev/matrixtool/pkg/cliutil"
	"github.com/machina-dev/matrixtool/pkg/harness"
	"github.com/machina-dev/matrixtool/pkg/matrix"
)

// parseOnly turns repeated "--only AXIS=VALUE" flags in to per-axis value
// sets.  The split is on the first "=" only, since axis values may themselves
// contain "=" or ",".
func parseOnly(flags []string) (map[string][]string, error) {
	ret := make(map[string][]string)
	for _, flag := range flags {
		idx := strings.Index(flag, "=")
		if idx <= 0 {
			return nil, fmt.Errorf("invalid --only %q: expected AXIS=VALUE", flag)
		}
		axis, val := flag[:idx], flag[idx+1:]
		ret[axis] = append(ret[axis], val)
	}
	return ret, nil
}

func filterJobs(file *matrix.File, jobs []matrix.Job, only map[string][]string) ([]matrix.Job, error) {
	if len(only) == 0 {
		return jobs, nil
	}
	// validate the constraints the same way rules are validated
	for axis, vals := range only {
		for _, val := range vals {
			if err := matrix.CheckRule(file.Axes, matrix.Rule{axis: val}); err != nil {
				return nil, err
			}
		}
	}
	ret := make([]matrix.Job, 0, len(jobs))
	for _, job := range jobs {
		keep := true
		for axis, vals := range only {
			matched := false
			for _, val := range vals {
				if job.Coords[axis] == val {
					matched = true
					break
				}
			}
			if !matched {
				keep = false
				break
			}
		}
		if keep {
			ret = append(ret, job)
		}
	}
	return ret, nil
}

func printSummary(summary *harness.Summary) {
	table := tabwriter.NewWriter(
		os.Stderr, // output
		0,         // minwidth
		1,         // tabwidth
		3,         // padding
		' ',       // padchar
		0)         // flags
	for _, result := range summary.Results {
		status := "ok"
		switch {
		case result.Failed() && result.AllowedToFail:
			status = "failed (allowed)"
		case result.Failed():
			status = "FAILED"
		}
		fmt.Fprintf(table, "%s\t%s\t%v\n", result.Name, status,
			result.Duration.Round(10*time.Millisecond))
	}
	_ = table.Flush()
}

func init() {
	var argParallelism int
	var argOnly []string
	cmd := &cobra.Command{
		Use:   "run [flags] IN_MATRIXFILE.yml",
		Short: "Resolve a matrix file and execute the resulting jobs",
		Long: "Resolve the matrix and run the configured command once per job, with the " +
			"job's axis values exported as MATRIX_<AXIS> environment variables, followed " +
			"by the file's static jobs.  The run fails if any blocking job fails; " +
			"failures of allowed-to-fail jobs are reported but do not affect the exit " +
			"status.",
		Args: cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			ctx := flags.Context()

			file, err := matrix.Load(args[0])
			if err != nil {
				return err
			}
			jobs, err := file.Resolve()
			if err != nil {
				return err
			}
			only, err := parseOnly(argOnly)
			if err != nil {
				return cliutil.FlagErrorFunc(flags, err)
			}
			jobs, err = filterJobs(file, jobs, only)
			if err != nil {
				return err
			}

			runner := &harness.Runner{
				Command:     file.Command,
				Env:         file.Env,
				Static:      file.Static,
				Parallelism: argParallelism,
			}
			if len(only) > 0 {
				// a filtered run is a dev loop, skip the static jobs
				runner.Static = nil
			}
			summary, err := runner.Run(ctx, jobs)
			if err != nil {
				return err
			}

			printSummary(summary)
			if !summary.OK() {
				return fmt.Errorf("%d blocking job(s) failed", len(summary.BlockingFailures()))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&argParallelism, "parallelism", 1,
		"Run up to `N` jobs at once")
	cmd.Flags().StringArrayVar(&argOnly, "only", nil,
		"Only run jobs whose `AXIS=VALUE` matches; repeat to add values (same axis: any-of, "+
			"different axes: all-of).  Skips static jobs.")
	argparser.AddCommand(cmd)
}
