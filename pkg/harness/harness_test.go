package harness_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machina-dev/matrixtool/pkg/harness"
	"github.com/machina-dev/matrixtool/pkg/matrix"
)

func TestEnvVarName(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"python":    "MATRIX_PYTHON",
		"django":    "MATRIX_DJANGO",
		"db":        "MATRIX_DB",
		"node-env":  "MATRIX_NODE_ENV",
		"node.env":  "MATRIX_NODE_ENV",
		"a  b--c":   "MATRIX_A_B_C",
		"Python3.6": "MATRIX_PYTHON3_6",
	}
	for in, out := range testcases {
		assert.Equal(t, out, harness.EnvVarName(in), "input %q", in)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()
	summary := harness.Summary{
		Results: []harness.Result{
			{Name: "a"},
			{Name: "b", Err: assert.AnError, AllowedToFail: true},
			{Name: "c", Err: assert.AnError},
		},
	}
	assert.False(t, summary.OK())
	require.Len(t, summary.BlockingFailures(), 1)
	assert.Equal(t, "c", summary.BlockingFailures()[0].Name)
	require.Len(t, summary.AllowedFailures(), 1)
	assert.Equal(t, "b", summary.AllowedFailures()[0].Name)

	summary.Results = summary.Results[:2]
	assert.True(t, summary.OK())
}

func needSh(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test requires a POSIX shell")
	}
}

func TestRun(t *testing.T) {
	t.Parallel()
	needSh(t)

	jobs := []matrix.Job{
		{Name: "3.6/good", Coords: matrix.Assignment{"python": "3.6", "state": "good"}},
		{Name: "3.6/bad", Coords: matrix.Assignment{"python": "3.6", "state": "bad"}},
		{Name: "3.7/bad", Coords: matrix.Assignment{"python": "3.7", "state": "bad"}, AllowedToFail: true},
	}
	runner := &harness.Runner{
		Command: []string{"sh", "-c",
			`test "$MATRIX_STATE" = good && test "$EXTRA" = extra-val`},
		Env:         map[string]string{"EXTRA": "extra-val"},
		Static:      []matrix.StaticJob{{Name: "lint", Command: []string{"true"}}},
		Parallelism: 2,
	}

	ctx := dlog.NewTestContext(t, true)
	summary, err := runner.Run(ctx, jobs)
	require.NoError(t, err)
	require.Len(t, summary.Results, 4)

	byName := make(map[string]harness.Result, len(summary.Results))
	for _, result := range summary.Results {
		byName[result.Name] = result
	}
	assert.False(t, byName["3.6/good"].Failed())
	assert.True(t, byName["3.6/bad"].Failed())
	assert.True(t, byName["3.7/bad"].Failed())
	assert.True(t, byName["3.7/bad"].AllowedToFail)
	assert.False(t, byName["lint"].Failed())

	assert.False(t, summary.OK())
	require.Len(t, summary.BlockingFailures(), 1)
	assert.Equal(t, "3.6/bad", summary.BlockingFailures()[0].Name)
	require.Len(t, summary.AllowedFailures(), 1)
	assert.Equal(t, "3.7/bad", summary.AllowedFailures()[0].Name)
}

func TestRunAllGreen(t *testing.T) {
	t.Parallel()
	needSh(t)

	jobs := []matrix.Job{
		{Name: "x", Coords: matrix.Assignment{"axis": "x"}},
		{Name: "y", Coords: matrix.Assignment{"axis": "y"}},
	}
	runner := &harness.Runner{
		Command:     []string{"sh", "-c", `test -n "$MATRIX_AXIS"`},
		Parallelism: 8, // more workers than jobs
	}

	ctx := dlog.NewTestContext(t, true)
	summary, err := runner.Run(ctx, jobs)
	require.NoError(t, err)
	assert.True(t, summary.OK())
	require.Len(t, summary.Results, 2)
	// dispatch order is preserved in the summary
	assert.Equal(t, "x", summary.Results[0].Name)
	assert.Equal(t, "y", summary.Results[1].Name)
}

func TestRunStaticOnly(t *testing.T) {
	t.Parallel()
	needSh(t)

	runner := &harness.Runner{
		Static: []matrix.StaticJob{
			{Name: "lint", Command: []string{"true"}},
			{Name: "isort", Command: []string{"false"}},
		},
	}

	ctx := dlog.NewTestContext(t, true)
	summary, err := runner.Run(ctx, nil)
	require.NoError(t, err)
	assert.False(t, summary.OK())
	require.Len(t, summary.BlockingFailures(), 1)
	assert.Equal(t, "isort", summary.BlockingFailures()[0].Name)
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, true)

	noCommand := &harness.Runner{}
	_, err := noCommand.Run(ctx, []matrix.Job{
		{Name: "x", Coords: matrix.Assignment{"axis": "x"}},
	})
	assert.EqualError(t, err, "harness: matrix jobs declared but no command to run them")

	badStatic := &harness.Runner{
		Static: []matrix.StaticJob{{Name: "lint"}},
	}
	_, err = badStatic.Run(ctx, nil)
	assert.EqualError(t, err, `harness: static job "lint" has no command`)
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()
	needSh(t)

	tmpdir := t.TempDir()
	jobs := []matrix.Job{
		{Name: "first", Coords: matrix.Assignment{"job": "first"}},
		{Name: "second", Coords: matrix.Assignment{"job": "second"}},
		{Name: "third", Coords: matrix.Assignment{"job": "third"}},
	}
	runner := &harness.Runner{
		// each job announces itself, then hangs until killed
		Command:     []string{"sh", "-c", `touch "$WORKDIR/$MATRIX_JOB" && sleep 30`},
		Env:         map[string]string{"WORKDIR": tmpdir},
		Parallelism: 1,
	}

	ctx, cancel := context.WithCancel(dlog.NewTestContext(t, true))
	defer cancel()
	go func() {
		// cancel once the first job is underway
		for {
			if _, err := os.Stat(filepath.Join(tmpdir, "first")); err == nil {
				cancel()
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	start := time.Now()
	summary, err := runner.Run(ctx, jobs)
	assert.Error(t, err)
	assert.Nil(t, summary)
	// the in-flight sleep was killed rather than run to completion
	assert.Less(t, time.Since(start), 15*time.Second)
	// dispatching stopped: the queued jobs never started
	_, statErr := os.Stat(filepath.Join(tmpdir, "third"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunEmpty(t *testing.T) {
	t.Parallel()
	runner := &harness.Runner{}
	ctx := dlog.NewTestContext(t, true)
	summary, err := runner.Run(ctx, nil)
	require.NoError(t, err)
	assert.True(t, summary.OK())
	assert.Empty(t, summary.Results)
}
