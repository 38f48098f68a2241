package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"github.com/machina-dev/matrixtool/pkg/cliutil"
	"github.com/machina-dev/matrixtool/pkg/matrix"
)

// outputFormat is a pflag.Value for the --format flag.
type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func (f *outputFormat) String() string { return string(*f) }
func (f *outputFormat) Type() string   { return "table|json|yaml" }
func (f *outputFormat) Set(val string) error {
	switch outputFormat(val) {
	case formatTable, formatJSON, formatYAML:
		*f = outputFormat(val)
		return nil
	default:
		return fmt.Errorf("invalid format %q (must be one of \"table\", \"json\", \"yaml\")", val)
	}
}

var _ pflag.Value = (*outputFormat)(nil)

func printJobs(file *matrix.File, jobs []matrix.Job, format outputFormat) error {
	switch format {
	case formatJSON:
		out, err := json.MarshalIndent(jobs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case formatYAML:
		out, err := yaml.Marshal(jobs)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	default:
		table := tabwriter.NewWriter(
			os.Stdout, // output
			0,         // minwidth
			1,         // tabwidth
			3,         // padding
			' ',       // padchar
			0)         // flags
		for _, axis := range file.Axes {
			fmt.Fprintf(table, "%s\t", axis.Name)
		}
		fmt.Fprintln(table, "allowed-to-fail")
		for _, job := range jobs {
			for _, axis := range file.Axes {
				fmt.Fprintf(table, "%s\t", job.Coords[axis.Name])
			}
			fmt.Fprintln(table, fmt.Sprint(job.AllowedToFail))
		}
		if err := table.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	format := formatTable
	cmd := &cobra.Command{
		Use:   "resolve [flags] IN_MATRIXFILE.yml",
		Short: "Resolve a matrix file to its concrete job set",
		Long: "Compute the concrete job set for a matrix file: the cartesian product of " +
			"the declared axes, minus jobs matching any exclusion rule, with surviving " +
			"jobs matching an allow-failure rule marked as non-blocking.  The job set is " +
			"printed in enumeration order (first declared axis outermost) and nothing is " +
			"executed.",
		Args: cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			file, err := matrix.Load(args[0])
			if err != nil {
				return err
			}
			jobs, err := file.Resolve()
			if err != nil {
				return err
			}
			return printJobs(file, jobs, format)
		},
	}
	cmd.Flags().Var(&format, "format", "Print the job set as `table|json|yaml`")
	argparser.AddCommand(cmd)
}
