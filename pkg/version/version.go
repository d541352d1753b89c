// Package version orders semantic versions and derives the next release
// version from the "new major/minor/patch" keywords.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/aretw0/releasebot/pkg/domain"
)

// None is the sentinel a registry reports when nothing was released yet.
const None = "0.0.0"

// Keywords accepted in place of a literal version.
const (
	KeywordMajor = "new major"
	KeywordMinor = "new minor"
	KeywordPatch = "new patch"
)

// Parse validates s as a strict semantic version (no "v" prefix, three components).
func Parse(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidVersion, s)
	}
	return v, nil
}

// Valid reports whether s is a strict semantic version.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// coerce parses versions reported by live targets, which are not always strict.
// Anything unreadable collapses to the sentinel.
func coerce(s string) *semver.Version {
	s = strings.TrimSpace(s)
	if s == "" {
		return semver.MustParse(None)
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return semver.MustParse(None)
	}
	return v
}

// Compare returns -1, 0 or 1 when a is lower than, equal to, or greater than b.
func Compare(a, b string) int {
	return coerce(a).Compare(coerce(b))
}

// AtLeast reports whether the live version already satisfies target.
func AtLeast(live, target string) bool {
	return Compare(live, target) >= 0
}

// IsKeyword reports whether s is one of the increment keywords.
func IsKeyword(s string) bool {
	switch s {
	case KeywordMajor, KeywordMinor, KeywordPatch:
		return true
	}
	return false
}

// Next increments the component of latest named by keyword.
func Next(latest, keyword string) (string, error) {
	v := coerce(latest)
	var next semver.Version
	switch keyword {
	case KeywordMajor:
		next = v.IncMajor()
	case KeywordMinor:
		next = v.IncMinor()
	case KeywordPatch:
		next = v.IncPatch()
	default:
		return "", fmt.Errorf("unknown version keyword %q", keyword)
	}
	return next.String(), nil
}
