package cliutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/machina-dev/matrixtool/pkg/cliutil"
)

func TestWrap(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		InWidth int
		InStr   string
		Out     string
	}{
		"nowrap": {0, "the quick brown fox jumps over", "the quick brown fox jumps over"},
		"fits":   {40, "the quick brown fox", "the quick brown fox"},
		"simple": {20, "the quick brown fox jumps over", "the quick brown\nfox jumps over"},
		"longword": {10, "abcdefghijklmnop more",
			"abcdefghijklmnop\nmore"},
		"oneword":    {10, "abcdefghijkl", "abcdefghijkl"},
		"paragraphs": {20, "ab\ncd", "ab\ncd"},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.Out, cliutil.Wrap(tc.InWidth, tc.InStr))
		})
	}
}

func TestWrapIndent(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"the quick\n    brown fox\n    jumps over",
		cliutil.WrapIndent(4, 20, "the quick brown fox jumps over"))
	// no room left after the indent
	assert.Equal(t,
		"the quick brown fox",
		cliutil.WrapIndent(20, 20, "the quick brown fox"))
}
