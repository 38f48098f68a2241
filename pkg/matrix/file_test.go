package matrix_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machina-dev/matrixtool/pkg/matrix"
)

const machinaFile = `
axes:
  - name: python
    values: ["2.7", "3.4", "3.5", "3.6", "3.7-dev", "3.8-dev"]
  - name: django
    values: ["django>=1.11,<2.0", "django>=2.0,<2.1", "django==2.1b1"]
  - name: db
    values: [sqlite, postgres, mysql]
exclude:
  - {python: "2.7", django: "django>=2.0,<2.1"}
  - {python: "2.7", django: "django==2.1b1"}
  - {python: "3.4", django: "django==2.1b1"}
allow_failures:
  - {python: "3.7-dev"}
  - {python: "3.8-dev"}
env:
  DJANGO_SETTINGS_MODULE: tests.settings
command: ["tox"]
static:
  - name: lint
    command: ["tox", "-e", "lint"]
  - name: isort
    command: ["tox", "-e", "isort"]
`

func TestParse(t *testing.T) {
	t.Parallel()
	file, err := matrix.Parse([]byte(machinaFile))
	require.NoError(t, err)

	require.Len(t, file.Axes, 3)
	assert.Equal(t, "python", file.Axes[0].Name)
	assert.Equal(t, []string{"sqlite", "postgres", "mysql"}, file.Axes[2].Values)
	assert.Len(t, file.Exclude, 3)
	assert.Len(t, file.AllowFailures, 2)
	assert.Equal(t, []string{"tox"}, file.Command)
	require.Len(t, file.Static, 2)
	assert.Equal(t, "lint", file.Static[0].Name)
	assert.Equal(t, map[string]string{"DJANGO_SETTINGS_MODULE": "tests.settings"}, file.Env)

	// the compact rules cover the same 9 tuples as the fully expanded
	// per-backend form
	jobs, err := file.Resolve()
	require.NoError(t, err)
	assert.Len(t, jobs, 45)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		In     string
		OutErr string
	}{
		"no-axes": {
			In:     `command: ["tox"]`,
			OutErr: "matrix: no axes declared",
		},
		"duplicate-axis": {
			In: `
axes:
  - name: a
    values: ["1"]
  - name: a
    values: ["2"]
`,
			OutErr: `matrix: axis "a" declared twice`,
		},
		"empty-values": {
			In: `
axes:
  - name: a
    values: []
`,
			OutErr: `matrix: axis "a" has no values`,
		},
		"duplicate-value": {
			In: `
axes:
  - name: a
    values: ["1", "1"]
`,
			OutErr: `matrix: axis "a" declares value "1" twice`,
		},
		"static-no-command": {
			In: `
axes:
  - name: a
    values: ["1"]
static:
  - name: lint
`,
			OutErr: `matrix: static job "lint" has no command`,
		},
		"duplicate-static": {
			In: `
axes:
  - name: a
    values: ["1"]
static:
  - name: lint
    command: ["true"]
  - name: lint
    command: ["true"]
`,
			OutErr: `matrix: static job "lint" declared twice`,
		},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			file, err := matrix.Parse([]byte(tc.In))
			assert.Nil(t, file)
			assert.EqualError(t, err, tc.OutErr)
		})
	}
}

func TestParseUnknownField(t *testing.T) {
	t.Parallel()
	// "excludes" is a typo for "exclude"; strict decoding has to reject it
	file, err := matrix.Parse([]byte(`
axes:
  - name: a
    values: ["1"]
excludes:
  - {a: "1"}
`))
	assert.Nil(t, file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field "excludes"`)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	tmpdir := t.TempDir()

	filename := filepath.Join(tmpdir, "matrix.yml")
	require.NoError(t, os.WriteFile(filename, []byte(machinaFile), 0666))
	file, err := matrix.Load(filename)
	require.NoError(t, err)
	assert.Len(t, file.Axes, 3)

	_, err = matrix.Load(filepath.Join(tmpdir, "does-not-exist.yml"))
	assert.Error(t, err)

	badname := filepath.Join(tmpdir, "bad.yml")
	require.NoError(t, os.WriteFile(badname, []byte(`command: ["tox"]`), 0666))
	_, err = matrix.Load(badname)
	// parse errors are prefixed with the filename
	assert.EqualError(t, err, badname+": matrix: no axes declared")
}
