package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machina-dev/matrixtool/pkg/matrix"
)

func TestParseOnly(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		In     []string
		OutVal map[string][]string
		OutErr string
	}{
		"empty": {
			In:     nil,
			OutVal: map[string][]string{},
		},
		"single": {
			In:     []string{"python=2.7"},
			OutVal: map[string][]string{"python": {"2.7"}},
		},
		"value-with-separators": {
			// only the first "=" separates; the value keeps its own
			// "=" and ","
			In:     []string{"django=django>=2.0,<2.1"},
			OutVal: map[string][]string{"django": {"django>=2.0,<2.1"}},
		},
		"repeated-axis": {
			In:     []string{"python=2.7", "python=3.6"},
			OutVal: map[string][]string{"python": {"2.7", "3.6"}},
		},
		"mixed-axes": {
			In: []string{"python=2.7", "db=sqlite"},
			OutVal: map[string][]string{
				"python": {"2.7"},
				"db":     {"sqlite"},
			},
		},
		"no-equals": {
			In:     []string{"python"},
			OutErr: `invalid --only "python": expected AXIS=VALUE`,
		},
		"empty-axis": {
			In:     []string{"=2.7"},
			OutErr: `invalid --only "=2.7": expected AXIS=VALUE`,
		},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			val, err := parseOnly(tc.In)
			if tc.OutErr != "" {
				assert.Nil(t, val)
				assert.EqualError(t, err, tc.OutErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.OutVal, val)
			}
		})
	}
}

func TestFilterJobs(t *testing.T) {
	t.Parallel()
	file := &matrix.File{
		Axes: []matrix.Axis{
			{Name: "python", Values: []string{"2.7", "3.6"}},
			{Name: "django", Values: []string{"django>=1.11,<2.0", "django>=2.0,<2.1"}},
			{Name: "db", Values: []string{"sqlite", "postgres"}},
		},
	}
	jobs, err := file.Resolve()
	require.NoError(t, err)
	require.Len(t, jobs, 8)

	names := func(jobs []matrix.Job) []string {
		ret := make([]string, 0, len(jobs))
		for _, job := range jobs {
			ret = append(ret, job.Name)
		}
		return ret
	}

	testcases := map[string]struct {
		InOnly   map[string][]string
		OutNames []string
		OutErr   bool
	}{
		"no-filter": {
			InOnly:   nil,
			OutNames: names(jobs),
		},
		"one-axis": {
			InOnly: map[string][]string{"python": {"2.7"}},
			OutNames: []string{
				"2.7/django>=1.11,<2.0/sqlite",
				"2.7/django>=1.11,<2.0/postgres",
				"2.7/django>=2.0,<2.1/sqlite",
				"2.7/django>=2.0,<2.1/postgres",
			},
		},
		"same-axis-any-of": {
			InOnly: map[string][]string{"db": {"sqlite", "postgres"}},
			// both values on the axis: nothing filtered out
			OutNames: names(jobs),
		},
		"cross-axes-all-of": {
			InOnly: map[string][]string{
				"python": {"3.6"},
				"django": {"django>=2.0,<2.1"},
				"db":     {"sqlite"},
			},
			OutNames: []string{"3.6/django>=2.0,<2.1/sqlite"},
		},
		"unknown-axis": {
			InOnly: map[string][]string{"ruby": {"2.5"}},
			OutErr: true,
		},
		"unknown-value": {
			InOnly: map[string][]string{"db": {"oracle"}},
			OutErr: true,
		},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			filtered, err := filterJobs(file, jobs, tc.InOnly)
			if tc.OutErr {
				assert.Nil(t, filtered)
				require.Error(t, err)
				var confErr *matrix.ConfigurationError
				assert.True(t, errors.As(err, &confErr))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.OutNames, names(filtered))
			}
		})
	}
}
