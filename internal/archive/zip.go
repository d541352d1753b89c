// Package archive extracts release source archives.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for archive entries that would escape the destination.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// ExtractZip unpacks src into dst and returns the project root: the single
// top-level directory GitHub zipballs carry, or dst itself otherwise.
func ExtractZip(src, dst string) (string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	tops := make(map[string]bool)
	for _, f := range r.File {
		name := filepath.FromSlash(f.Name)
		target := filepath.Join(dst, name)
		if !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
			return "", fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
		}
		top, _, _ := strings.Cut(filepath.ToSlash(name), "/")
		tops[top] = true

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return "", err
		}
	}

	if len(tops) == 1 {
		for top := range tops {
			root := filepath.Join(dst, top)
			if info, err := os.Stat(root); err == nil && info.IsDir() {
				return root, nil
			}
		}
	}
	return dst, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}
