package testutil

import (
	"fmt"
	"strings"
	"testing"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/machina-dev/matrixtool/pkg/matrix"
)

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// DumpJobListing renders a job set as an aligned one-line-per-job table.
func DumpJobListing(jobs []matrix.Job) string {
	ret := new(strings.Builder)
	table := tabwriter.NewWriter(
		ret, // output
		0,   // minwidth
		1,   // tabwidth
		1,   // padding
		' ', // padchar
		0)   // flags
	for _, job := range jobs {
		flag := "blocking"
		if job.AllowedToFail {
			flag = "allowed-to-fail"
		}
		fmt.Fprintf(table, "\t%s\t%s\n", job.Name, flag)
	}
	_ = table.Flush()
	return ret.String()
}

// AssertEqualJobs compares two job sets, failing the test with a readable diff
// on mismatch.
func AssertEqualJobs(t *testing.T, exp, act []matrix.Job) bool {
	t.Helper()

	// First compare just the listings, in order to "fail fast" and give
	// more readable output.
	expStr := DumpJobListing(exp)
	actStr := DumpJobListing(act)
	if expStr != actStr {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(expStr),
			B:        difflib.SplitLines(actStr),
			FromFile: "Expected",
			ToFile:   "Actual",
			Context:  1,
		})
		t.Errorf("Listing diff:\n%s", diff)
		return false
	}

	// OK, that passed, now do a comprehensive diff.
	expStr = spewConfig.Sdump(exp)
	actStr = spewConfig.Sdump(act)
	if expStr != actStr {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(expStr),
			B:        difflib.SplitLines(actStr),
			FromFile: "Expected",
			ToFile:   "Actual",
			Context:  1,
		})
		t.Errorf("Full diff:\n%s", diff)
		return false
	}

	return true
}
