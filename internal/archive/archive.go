// Package archive packs generated documents into the ZIP delivered to the
// founder.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	apperrors "gmbh-wizard/internal/common/errors"
)

// Entry is a file on disk stored under Name inside the archive.
type Entry struct {
	Path string
	Name string
}

// Write stores every entry deflate-compressed in input order.
func Write(dest io.Writer, entries []Entry) error {
	zw := zip.NewWriter(dest)
	for _, e := range entries {
		if err := addFile(zw, e); err != nil {
			zw.Close()
			return apperrors.NewIOError("archive write", err).WithMetadata("entry", e.Name)
		}
	}
	if err := zw.Close(); err != nil {
		return apperrors.NewIOError("archive write", err)
	}
	return nil
}

func addFile(zw *zip.Writer, e Entry) error {
	name := e.Name
	if name == "" {
		name = filepath.Base(e.Path)
	}

	src, err := os.Open(e.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	modified := info.ModTime()
	if modified.IsZero() {
		modified = time.Now()
	}

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}

// Create writes the archive to path. A partially written file is removed.
func Create(path string, entries []Entry) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return apperrors.NewIOError("archive create", err)
	}
	if err := Write(f, entries); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return apperrors.NewIOError("archive create", err)
	}
	return nil
}
