package fedpkg

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	versionField   = regexp.MustCompile(`(Version:\s*)([0-9]|[.])*`)
	releaseField   = regexp.MustCompile(`(Release:\s*)([0-9]*)(.*)`)
	changelogField = regexp.MustCompile(`(%changelog\n)`)
)

// SpecUpdate describes the new release written into an RPM spec file.
type SpecUpdate struct {
	Version     string
	AuthorName  string
	AuthorEmail string
	// Changelog entries; an empty list becomes "<version> release".
	Changelog []string
	Date      time.Time
}

// ChangelogStanza renders the %changelog entry for the update.
func (u SpecUpdate) ChangelogStanza() string {
	var b strings.Builder
	fmt.Fprintf(&b, "* %s %s <%s> %s-1\n", u.Date.UTC().Format("Mon Jan 02 2006"), u.AuthorName, u.AuthorEmail, u.Version)
	if len(u.Changelog) == 0 {
		fmt.Fprintf(&b, "- %s release\n", u.Version)
		return b.String()
	}
	for _, entry := range u.Changelog {
		fmt.Fprintf(&b, "- %s\n", entry)
	}
	return b.String()
}

// RewriteSpec bumps Version, resets Release to 1 (keeping any suffix such as
// %{?dist}) and inserts a changelog stanza right after the %changelog line.
func RewriteSpec(content string, u SpecUpdate) string {
	content = versionField.ReplaceAllString(content, "${1}"+literal(u.Version))
	content = releaseField.ReplaceAllString(content, "${1}1${3}")
	return changelogField.ReplaceAllString(content, "${1}"+literal(u.ChangelogStanza())+"\n")
}

// literal escapes text for use inside a regexp replacement template.
func literal(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
