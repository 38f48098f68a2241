package matrix

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// A File is the declarative matrix description that drives resolution and
// execution.  For example:
//
//	axes:
//	  - name: python
//	    values: ["2.7", "3.4", "3.5", "3.6", "3.7-dev", "3.8-dev"]
//	  - name: django
//	    values: ["django>=1.11,<2.0", "django>=2.0,<2.1", "django==2.1b1"]
//	  - name: db
//	    values: [sqlite, postgres, mysql]
//	exclude:
//	  - {python: "2.7", django: "django>=2.0,<2.1"}
//	allow_failures:
//	  - {python: "3.7-dev"}
//	env:
//	  DJANGO_SETTINGS_MODULE: tests.settings
//	command: ["tox"]
//	static:
//	  - name: lint
//	    command: ["tox", "-e", "lint"]
type File struct {
	Axes          []Axis `json:"axes"`
	Exclude       []Rule `json:"exclude,omitempty"`
	AllowFailures []Rule `json:"allow_failures,omitempty"`

	// Env is extra environment exported to every job, matrix and static
	// alike.
	Env map[string]string `json:"env,omitempty"`

	// Command is the argv run once per matrix job; the job's axis values
	// are exported to it as MATRIX_<AXIS> environment variables.
	Command []string `json:"command,omitempty"`

	// Static jobs have no axis coordinates; they are never excluded, never
	// allowed to fail, and always blocking.
	Static []StaticJob `json:"static,omitempty"`
}

// A StaticJob is an axis-less job that runs alongside the matrix (linting,
// import-order checking, ...).
type StaticJob struct {
	Name    string   `json:"name"`
	Command []string `json:"command"`
}

// Parse parses and statically validates a matrix file.  Rule-to-axis
// consistency is not checked here; that is Resolve's job.
func Parse(yamlBytes []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(yamlBytes, &file, yaml.DisallowUnknownFields); err != nil {
		return nil, err
	}
	if err := file.validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Load reads and parses the matrix file at the given path.
func Load(filename string) (*File, error) {
	yamlBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	file, err := Parse(yamlBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return file, nil
}

func (file *File) validate() error {
	if len(file.Axes) == 0 {
		return fmt.Errorf("matrix: no axes declared")
	}
	if err := checkAxes(file.Axes); err != nil {
		return err
	}
	for _, axis := range file.Axes {
		if len(axis.Values) == 0 {
			return fmt.Errorf("matrix: axis %q has no values", axis.Name)
		}
		seen := make(map[string]struct{}, len(axis.Values))
		for _, val := range axis.Values {
			if _, dup := seen[val]; dup {
				return fmt.Errorf("matrix: axis %q declares value %q twice",
					axis.Name, val)
			}
			seen[val] = struct{}{}
		}
	}
	staticNames := make(map[string]struct{}, len(file.Static))
	for _, static := range file.Static {
		if static.Name == "" {
			return fmt.Errorf("matrix: static job with empty name")
		}
		if _, dup := staticNames[static.Name]; dup {
			return fmt.Errorf("matrix: static job %q declared twice", static.Name)
		}
		staticNames[static.Name] = struct{}{}
		if len(static.Command) == 0 {
			return fmt.Errorf("matrix: static job %q has no command", static.Name)
		}
	}
	return nil
}

// Resolve resolves the file's axes and rules to the concrete job set.
func (file *File) Resolve() ([]Job, error) {
	return Resolve(file.Axes, file.Exclude, file.AllowFailures)
}
