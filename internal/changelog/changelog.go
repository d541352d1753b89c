// Package changelog reads and writes CHANGELOG.md files laid out as one
// "# <version>" section per release, newest first.
package changelog

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// FileName is the changelog file at the project root.
const FileName = "CHANGELOG.md"

// Placeholder is used whenever no changelog text can be found.
const Placeholder = "No changelog provided"

const sectionSeparator = "\n# "

// Section returns the top section of content when it belongs to version.
// Sections are separated by "\n# "; only the newest one is considered.
func Section(content, version string) string {
	first, _, _ := strings.Cut(content, sectionSeparator)
	if strings.HasPrefix(first, "# "+version) {
		return first
	}
	return Placeholder
}

// ReadSection reads path and returns Section for version.
// A missing file yields the placeholder.
func ReadSection(path, version string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Placeholder, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read changelog: %w", err)
	}
	return Section(string(data), version), nil
}

// Prepend writes a new "# version" section with log at the top of path.
// It returns false, without error, when the file does not exist.
func Prepend(path, version, log string) (bool, error) {
	original, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read changelog: %w", err)
	}
	content := fmt.Sprintf("# %s\n\n%s\n", version, strings.TrimRight(log, "\n"))
	if len(original) > 0 {
		content += "\n" + string(original)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write changelog: %w", err)
	}
	return true, nil
}
