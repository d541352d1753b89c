package git

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/releasebot/pkg/version"
)

// versionFiles maps candidate file names to the assignment prefixes they may carry.
var versionFiles = map[string][]string{
	"setup.py":    {"__version__", "version"},
	"setup.cfg":   {"__version__", "version"},
	"__init__.py": {"__version__"},
	"version.py":  {"__version__"},
}

// FindVersionFiles walks root for files that assign a valid version and returns
// their paths relative to root together with the content rewritten to v.
func FindVersionFiles(root, v string) (map[string]string, error) {
	found := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		prefixes, ok := versionFiles[d.Name()]
		if !ok {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if updated, changed := ReplaceVersion(string(data), v, prefixes...); changed {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			found[filepath.ToSlash(rel)] = updated
		}
		return nil
	})
	return found, err
}

// ReplaceVersion rewrites the first line that starts with one of prefixes and
// assigns a quoted valid version, e.g. `__version__ = "1.2.3"`.
func ReplaceVersion(content, v string, prefixes ...string) (string, bool) {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for i, line := range lines {
		if !hasAnyPrefix(line, prefixes) {
			continue
		}
		lhs, rhs, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		old := strings.Trim(strings.TrimSpace(rhs), `'"`)
		if !version.Valid(old) {
			return content, false
		}
		replaced := strings.TrimSpace(lhs) + " = '" + v + "'"
		if replaced == line {
			return content, false
		}
		lines[i] = replaced
		return strings.Join(lines, "\n") + "\n", true
	}
	return content, false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
