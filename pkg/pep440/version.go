// Package pep440 implements the parts of PEP 440 ("Version Identification and
// Dependency Specification") that a test matrix needs: version parsing and
// ordering, version specifiers, and requirement strings such as
// "django>=2.0,<2.1".
//
// https://www.python.org/dev/peps/pep-0440/
package pep440

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// A PublicVersion is a public version identifier:
//
//	[N!]N(.N)*[{a|b|rc}N][.postN][.devN]
type PublicVersion struct {
	Epoch   int
	Release []int
	Pre     *PreRelease
	Post    *int
	Dev     *int
}

type PreRelease struct {
	L string // "a", "b", or "rc"
	N int
}

// A LocalVersion is a public version identifier with an optional local version
// label ("+label").  Each dot-separated segment of the label is either numeric
// or lexical, which affects ordering, hence intstr.
type LocalVersion struct {
	PublicVersion
	Local []intstr.IntOrString
}

type Version = LocalVersion

// The pattern is the "permissive" regular expression from PEP 440 Appendix B,
// accepting inputs that require normalization (case, alternate pre/post
// spellings, "-"/"_"/"." separators, leading "v").
var reVersion = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?:[-_\.]?(?P<pre_l>a|b|c|rc|alpha|beta|pre|preview)[-_\.]?(?P<pre_n>[0-9]+)?)?` +
	`(?:(?:-(?P<post_n1>[0-9]+))|(?:[-_\.]?(?P<post_l>post|rev|r)[-_\.]?(?P<post_n2>[0-9]+)?))?` +
	`(?:[-_\.]?(?P<dev_l>dev)[-_\.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_\.][a-z0-9]+)*))?` +
	`\s*$`)

// ParseVersion parses a string to a Version object, performing normalization.
func ParseVersion(str string) (*Version, error) {
	match := reVersion.FindStringSubmatch(str)
	if match == nil {
		return nil, fmt.Errorf("pep440.ParseVersion: invalid version: %q", str)
	}
	group := func(name string) string {
		return match[reVersion.SubexpIndex(name)]
	}

	var ver Version

	if epoch := group("epoch"); epoch != "" {
		n, err := strconv.Atoi(epoch)
		if err != nil {
			return nil, fmt.Errorf("pep440.ParseVersion: %w", err)
		}
		ver.Epoch = n
	}

	for _, segStr := range strings.Split(group("release"), ".") {
		seg, err := strconv.Atoi(segStr)
		if err != nil {
			return nil, fmt.Errorf("pep440.ParseVersion: %w", err)
		}
		ver.Release = append(ver.Release, seg)
	}

	if preL := strings.ToLower(group("pre_l")); preL != "" {
		// normalize the alternate spellings
		switch preL {
		case "alpha":
			preL = "a"
		case "beta":
			preL = "b"
		case "c", "pre", "preview":
			preL = "rc"
		}
		preN := 0
		if str := group("pre_n"); str != "" {
			n, err := strconv.Atoi(str)
			if err != nil {
				return nil, fmt.Errorf("pep440.ParseVersion: %w", err)
			}
			preN = n
		}
		ver.Pre = &PreRelease{L: preL, N: preN}
	}

	if group("post_n1") != "" || group("post_l") != "" {
		postN := 0
		if str := group("post_n1") + group("post_n2"); str != "" {
			n, err := strconv.Atoi(str)
			if err != nil {
				return nil, fmt.Errorf("pep440.ParseVersion: %w", err)
			}
			postN = n
		}
		ver.Post = &postN
	}

	if group("dev_l") != "" {
		devN := 0
		if str := group("dev_n"); str != "" {
			n, err := strconv.Atoi(str)
			if err != nil {
				return nil, fmt.Errorf("pep440.ParseVersion: %w", err)
			}
			devN = n
		}
		ver.Dev = &devN
	}

	if local := strings.ToLower(group("local")); local != "" {
		for _, segStr := range strings.FieldsFunc(local, func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		}) {
			if seg, err := strconv.Atoi(segStr); err == nil {
				ver.Local = append(ver.Local, intstr.FromInt(seg))
			} else {
				ver.Local = append(ver.Local, intstr.FromString(segStr))
			}
		}
	}

	return &ver, nil
}

func (ver PublicVersion) writeTo(ret *strings.Builder) {
	if ver.Epoch > 0 {
		fmt.Fprintf(ret, "%d!", ver.Epoch)
	}
	if len(ver.Release) == 0 {
		panic("invalid version: no release segments")
	}
	fmt.Fprintf(ret, "%d", ver.Release[0])
	for _, segment := range ver.Release[1:] {
		fmt.Fprintf(ret, ".%d", segment)
	}
	if ver.Pre != nil {
		fmt.Fprintf(ret, "%s%d", ver.Pre.L, ver.Pre.N)
	}
	if ver.Post != nil {
		fmt.Fprintf(ret, ".post%d", *ver.Post)
	}
	if ver.Dev != nil {
		fmt.Fprintf(ret, ".dev%d", *ver.Dev)
	}
}

// String implements fmt.Stringer.  String does not perform any normalization.
func (ver PublicVersion) String() string {
	var ret strings.Builder
	ver.writeTo(&ret)
	return ret.String()
}

// String implements fmt.Stringer.  String does not perform any normalization.
func (ver LocalVersion) String() string {
	var ret strings.Builder
	ver.PublicVersion.writeTo(&ret)
	sep := "+"
	for _, local := range ver.Local {
		ret.WriteString(sep)
		ret.WriteString(local.String())
		sep = "."
	}
	return ret.String()
}

func (ver PublicVersion) IsFinal() bool {
	return ver.Pre == nil && ver.Post == nil && ver.Dev == nil
}

func (ver LocalVersion) IsFinal() bool {
	return ver.PublicVersion.IsFinal() && len(ver.Local) == 0
}

func (ver PublicVersion) IsPreRelease() bool {
	return ver.Pre != nil || ver.Dev != nil
}

func (ver PublicVersion) releaseSegment(n int) int {
	// shorter release segments compare as if zero-padded
	if n < len(ver.Release) {
		return ver.Release[n]
	}
	return 0
}

func (ver PublicVersion) Major() int { return ver.releaseSegment(0) }
func (ver PublicVersion) Minor() int { return ver.releaseSegment(1) }
func (ver PublicVersion) Micro() int { return ver.releaseSegment(2) }

func cmpEpoch(a, b PublicVersion) int {
	return a.Epoch - b.Epoch
}

func cmpRelease(a, b PublicVersion) int {
	for i := 0; i < len(a.Release) || i < len(b.Release); i++ {
		if diff := a.releaseSegment(i) - b.releaseSegment(i); diff != 0 {
			return diff
		}
	}
	return 0
}

// Pre-releases order a < b < rc, all before the final release.  A dev release
// with no pre/post part sorts before any pre-release.
var preReleaseOrder = map[string]int{
	"a":  -3,
	"b":  -2,
	"rc": -1,
	// absent: 0
}

func cmpPreRelease(a, b PublicVersion) int {
	var aL, aN, bL, bN int
	if a.Pre != nil {
		ord, ok := preReleaseOrder[a.Pre.L]
		if !ok {
			panic(fmt.Errorf("invalid pre-release string: %q", a.Pre.L))
		}
		aL, aN = ord, a.Pre.N
	} else if a.Dev != nil && a.Post == nil {
		aL = -4
	}
	if b.Pre != nil {
		ord, ok := preReleaseOrder[b.Pre.L]
		if !ok {
			panic(fmt.Errorf("invalid pre-release string: %q", b.Pre.L))
		}
		bL, bN = ord, b.Pre.N
	} else if b.Dev != nil && b.Post == nil {
		bL = -4
	}
	if aL != bL {
		return aL - bL
	}
	return aN - bN
}

func cmpPostRelease(a, b PublicVersion) int {
	aPost := -1
	if a.Post != nil {
		aPost = *a.Post
	}
	bPost := -1
	if b.Post != nil {
		bPost = *b.Post
	}
	return aPost - bPost
}

func cmpDevRelease(a, b PublicVersion) int {
	switch {
	case a.Dev == nil && b.Dev == nil:
		return 0
	case a.Dev == nil:
		return 1
	case b.Dev == nil:
		return -1
	default:
		return (*a.Dev) - (*b.Dev)
	}
}

func cmpLocalSegment(a, b *intstr.IntOrString) int {
	switch {
	case a == nil && b == nil:
		panic("should not happen: cmpLocal shouldn't have bothered calling this")
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch {
	case a.Type == intstr.Int && b.Type == intstr.Int:
		return int(a.IntVal - b.IntVal)
	case a.Type == intstr.String && b.Type == intstr.String:
		switch {
		case a.StrVal < b.StrVal:
			return -1
		case a.StrVal > b.StrVal:
			return 1
		}
		return 0
	case a.Type == intstr.Int && b.Type == intstr.String:
		// numeric segments always compare greater than lexical ones
		return 1
	case a.Type == intstr.String && b.Type == intstr.Int:
		return -1
	default:
		panic("should not happen: invalid intstr.IntOrString")
	}
}

func cmpLocal(a, b LocalVersion) int {
	for i := 0; i < len(a.Local) || i < len(b.Local); i++ {
		var aSeg, bSeg *intstr.IntOrString
		if i < len(a.Local) {
			aSeg = &(a.Local[i])
		}
		if i < len(b.Local) {
			bSeg = &(b.Local[i])
		}
		if d := cmpLocalSegment(aSeg, bSeg); d != 0 {
			return d
		}
	}
	return 0
}

// Cmp returns a number < 0 if version 'a' is less than version 'b', > 0 if 'a'
// is greater than 'b', or 0 if they are equal.  Only the sign is defined; the
// magnitude may be anything.
func (a PublicVersion) Cmp(b PublicVersion) int {
	if d := cmpEpoch(a, b); d != 0 {
		return d
	}
	if d := cmpRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPreRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPostRelease(a, b); d != 0 {
		return d
	}
	return cmpDevRelease(a, b)
}

// Cmp returns a number < 0 if version 'a' is less than version 'b', > 0 if 'a'
// is greater than 'b', or 0 if they are equal.
func (a LocalVersion) Cmp(b LocalVersion) int {
	if d := a.PublicVersion.Cmp(b.PublicVersion); d != 0 {
		return d
	}
	return cmpLocal(a, b)
}
