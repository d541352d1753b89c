package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/aretw0/releasebot/internal/changelog"
	"github.com/aretw0/releasebot/internal/presentation/tui"
	"github.com/aretw0/releasebot/pkg/version"
)

// PreviewChangelog prints the CHANGELOG.md section of dir that would become the
// release notes of v.
func PreviewChangelog(w io.Writer, dir, v string) error {
	if !version.Valid(v) {
		return fmt.Errorf("%q is not a semantic version", v)
	}
	section, err := changelog.ReadSection(filepath.Join(dir, changelog.FileName), v)
	if err != nil {
		return err
	}
	return tui.RenderMarkdown(w, section+"\n")
}
