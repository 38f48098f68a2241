package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/machina-dev/matrixtool/pkg/cliutil"
	"github.com/machina-dev/matrixtool/pkg/matrix"
	"github.com/machina-dev/matrixtool/pkg/pep440"
	"github.com/machina-dev/matrixtool/pkg/pypi"
)

func init() {
	var argAxis string
	var argIndex string
	cmd := &cobra.Command{
		Use:   "versions [flags] IN_MATRIXFILE.yml",
		Short: "Show which release each requirement on an axis selects",
		Long: "For each value of the named axis (which must hold requirement strings such " +
			"as \"django>=2.0,<2.1\"), query the package index and print the concrete " +
			"release an installer would pick.  Pre-releases are only selected when " +
			"nothing else matches, so a row like \"django==2.1b1\" still resolves to " +
			"the b1 pre-release.",
		Args: cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(flags *cobra.Command, args []string) error {
			ctx := flags.Context()

			file, err := matrix.Load(args[0])
			if err != nil {
				return err
			}
			var axis *matrix.Axis
			for i := range file.Axes {
				if file.Axes[i].Name == argAxis {
					axis = &file.Axes[i]
					break
				}
			}
			if axis == nil {
				return fmt.Errorf("%s: no axis named %q", args[0], argAxis)
			}

			client := pypi.Client{BaseURL: argIndex}
			// releases per distribution, fetched once even if several
			// axis values name the same distribution
			releases := make(map[string][]pep440.Version)
			for _, val := range axis.Values {
				req, err := pep440.ParseRequirement(val)
				if err != nil {
					return err
				}
				name := pypi.NormalizeName(req.Name)
				if _, done := releases[name]; !done {
					vers, err := client.Releases(ctx, req.Name)
					if err != nil {
						return err
					}
					releases[name] = vers
				}
				sel := req.Specifier.Select(releases[name], pep440.ExcludePreReleases{})
				if sel == nil {
					fmt.Printf("%s\t(no matching release)\n", val)
					continue
				}
				fmt.Printf("%s\t%s %s\n", val, req.Name, sel)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&argAxis, "axis", "",
		"Resolve the requirements on axis `NAME`")
	cmd.Flags().StringVar(&argIndex, "index", pypi.DefaultBaseURL,
		"Query the simple-repository index at `URL`")
	if err := cmd.MarkFlagRequired("axis"); err != nil {
		panic(err)
	}
	argparser.AddCommand(cmd)
}
