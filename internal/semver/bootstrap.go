package semver

import (
	"regexp"
	"strconv"
	"strings"
)

// Bootstrap is a self-contained comparator used while the comparator
// package itself is being resolved. It understands exact versions and
// "~MAJOR" terms only.
//
// It must not import any third-party package.
type Bootstrap struct{}

var _ Comparator = Bootstrap{}

var bootstrapValid = regexp.MustCompile(`^(?:[0-9]|v.*[0-9])`)

func (Bootstrap) Name() string { return KindBootstrap }

// Compare compares dot-separated numeric components. Missing and
// non-numeric components count as zero.
func (Bootstrap) Compare(a, b string) int {
	if a == b {
		return 0
	}
	ac := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bc := strings.Split(strings.TrimPrefix(b, "v"), ".")
	n := max(len(ac), len(bc))
	for i := 0; i < n; i++ {
		x, y := component(ac, i), component(bc, i)
		if x > y {
			return 1
		}
		if x < y {
			return -1
		}
	}
	return 0
}

func component(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0
	}
	return n
}

// Satisfies checks every whitespace-separated term of constraint. An empty
// constraint accepts every version.
func (Bootstrap) Satisfies(version, constraint string) bool {
	if constraint == version {
		return true
	}
	for _, term := range strings.Fields(constraint) {
		if !bootstrapTerm(version, term) {
			return false
		}
	}
	return true
}

func bootstrapTerm(version, term string) bool {
	if term == version {
		return true
	}
	major, ok := strings.CutPrefix(term, "~")
	if !ok || major == "" {
		return false
	}
	leading, _, _ := strings.Cut(strings.TrimPrefix(version, "v"), ".")
	return leading == major
}

func (Bootstrap) Valid(version string) bool {
	return bootstrapValid.MatchString(version)
}
