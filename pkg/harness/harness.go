// Package harness executes a resolved job set.  It is deliberately thin: one
// external command per job, bounded parallelism, and an overall verdict that
// honors each job's AllowedToFail flag.
package harness

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/datawire/dlib/dexec"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"

	"github.com/machina-dev/matrixtool/pkg/matrix"
)

// A Runner describes how to turn jobs in to command invocations.
type Runner struct {
	// Command is the argv run for every matrix job.  The job's axis values
	// are exported to it as MATRIX_<AXIS> environment variables.
	Command []string

	// Env is extra environment (on top of the process environment) for
	// every job, matrix and static alike.
	Env map[string]string

	// Static jobs run their own argv, after the matrix jobs.  They are
	// always blocking.
	Static []matrix.StaticJob

	// Parallelism is the number of jobs that may run at once; values < 1
	// mean 1.
	Parallelism int
}

// A Result records one job's execution.
type Result struct {
	Name          string
	AllowedToFail bool
	Err           error
	Duration      time.Duration
}

// Failed reports whether the job failed at all, blocking or not.
func (r Result) Failed() bool {
	return r.Err != nil
}

// A Summary is the aggregate outcome of a run, in dispatch order.
type Summary struct {
	Results []Result
}

// BlockingFailures returns the failed results that gate the overall verdict.
func (s *Summary) BlockingFailures() []Result {
	var ret []Result
	for _, r := range s.Results {
		if r.Failed() && !r.AllowedToFail {
			ret = append(ret, r)
		}
	}
	return ret
}

// AllowedFailures returns the failed results that do not gate the verdict.
func (s *Summary) AllowedFailures() []Result {
	var ret []Result
	for _, r := range s.Results {
		if r.Failed() && r.AllowedToFail {
			ret = append(ret, r)
		}
	}
	return ret
}

// OK reports the overall verdict: true iff every blocking job succeeded.
// Failures of allowed-to-fail jobs never turn the run red.
func (s *Summary) OK() bool {
	return len(s.BlockingFailures()) == 0
}

var reEnvVarChars = regexp.MustCompile(`[^A-Z0-9]+`)

// EnvVarName returns the environment variable that carries the given axis's
// value in to a job's command: "MATRIX_" plus the upper-cased axis name with
// runs of non-alphanumerics collapsed to "_".
func EnvVarName(axis string) string {
	return "MATRIX_" + reEnvVarChars.ReplaceAllString(strings.ToUpper(axis), "_")
}

type task struct {
	name          string
	argv          []string
	env           []string
	allowedToFail bool
}

func (r *Runner) tasks(jobs []matrix.Job) ([]task, error) {
	baseEnv := os.Environ()
	envKeys := make([]string, 0, len(r.Env))
	for key := range r.Env {
		envKeys = append(envKeys, key)
	}
	sort.Strings(envKeys)
	for _, key := range envKeys {
		baseEnv = append(baseEnv, key+"="+r.Env[key])
	}

	ret := make([]task, 0, len(jobs)+len(r.Static))
	for _, job := range jobs {
		if len(r.Command) == 0 {
			return nil, fmt.Errorf("harness: matrix jobs declared but no command to run them")
		}
		env := make([]string, len(baseEnv), len(baseEnv)+len(job.Coords))
		copy(env, baseEnv)
		axes := make([]string, 0, len(job.Coords))
		for axis := range job.Coords {
			axes = append(axes, axis)
		}
		sort.Strings(axes)
		for _, axis := range axes {
			env = append(env, EnvVarName(axis)+"="+job.Coords[axis])
		}
		ret = append(ret, task{
			name:          job.Name,
			argv:          r.Command,
			env:           env,
			allowedToFail: job.AllowedToFail,
		})
	}
	for _, static := range r.Static {
		if len(static.Command) == 0 {
			return nil, fmt.Errorf("harness: static job %q has no command", static.Name)
		}
		ret = append(ret, task{
			name: static.Name,
			argv: static.Command,
			env:  baseEnv,
		})
	}
	return ret, nil
}

func runTask(ctx context.Context, t task) Result {
	ctx = dlog.WithField(ctx, "job", t.name)
	dlog.Infof(ctx, "starting: %q", t.argv)

	cmd := dexec.CommandContext(ctx, t.argv[0], t.argv[1:]...)
	cmd.Env = t.env

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	switch {
	case err == nil:
		dlog.Infof(ctx, "passed in %v", duration)
	case t.allowedToFail:
		dlog.Warnf(ctx, "failed in %v (allowed to fail): %v", duration, err)
	default:
		dlog.Errorf(ctx, "failed in %v: %v", duration, err)
	}

	return Result{
		Name:          t.name,
		AllowedToFail: t.allowedToFail,
		Err:           err,
		Duration:      duration,
	}
}

// Run executes the job set and the static jobs.  Job failures are recorded in
// the Summary, not returned as an error; the returned error is reserved for
// the harness itself failing (bad configuration, canceled context).
func (r *Runner) Run(ctx context.Context, jobs []matrix.Job) (*Summary, error) {
	tasks, err := r.tasks(jobs)
	if err != nil {
		return nil, err
	}

	workers := r.Parallelism
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	results := make([]Result, len(tasks))
	queue := make(chan int)

	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{})
	grp.Go("dispatch", func(ctx context.Context) error {
		defer close(queue)
		for i := range tasks {
			select {
			case queue <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		grp.Go(fmt.Sprintf("worker-%d", w), func(ctx context.Context) error {
			for i := range queue {
				results[i] = runTask(ctx, tasks[i])
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return &Summary{Results: results}, nil
}
