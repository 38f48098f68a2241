package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/machina-dev/matrixtool/pkg/cliutil"
	"github.com/machina-dev/matrixtool/pkg/matrix"
)

func init() {
	cmd := &cobra.Command{
		Use:   "validate [flags] IN_MATRIXFILE.yml",
		Short: "Check a matrix file without running anything",
		Long: "Parse and resolve a matrix file, reporting configuration errors (unknown " +
			"fields, rules referencing undeclared axes or values) without executing any " +
			"jobs.",
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
			allowed := 0
			for _, job := range jobs {
				if job.AllowedToFail {
					allowed++
				}
			}
			fmt.Printf("%s: ok: %d jobs (%d allowed to fail), %d static jobs\n",
				args[0], len(jobs), allowed, len(file.Static))
			return nil
		},
	}
	argparser.AddCommand(cmd)
}
