// Package tempstore owns the working directory holding merged documents and
// downloadable archives.
package tempstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "gmbh-wizard/internal/common/errors"
	"gmbh-wizard/internal/common/logger"
	"gmbh-wizard/internal/common/metrics"
)

const (
	archivePrefix = "gmbh-"
	archiveSuffix = ".zip"
	mergePrefix   = "doc-"
	mergeSuffix   = ".docx"
)

var archiveName = regexp.MustCompile(`^gmbh-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.zip$`)

type Store struct {
	dir    string
	logger logger.Logger
	now    func() time.Time
}

// New creates dir if needed and returns a store rooted there.
func New(dir string, log logger.Logger) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "gmbh-wizard")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperrors.NewIOError("work dir", err).WithMetadata("dir", dir)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{dir: dir, logger: log, now: time.Now}, nil
}

// Dir is the working directory.
func (s *Store) Dir() string {
	return s.dir
}

// NewArchiveName returns a fresh, unguessable archive file name.
func NewArchiveName() string {
	return archivePrefix + uuid.NewString() + archiveSuffix
}

// ValidName reports whether name could have been produced by NewArchiveName.
func ValidName(name string) bool {
	return archiveName.MatchString(name)
}

// Path returns the location of the named archive. Names not produced by
// NewArchiveName are rejected, which rules out path traversal.
func (s *Store) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", apperrors.NewNotFoundError("archive").WithMetadata("name", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Open opens the named archive for reading.
func (s *Store) Open(name string) (*os.File, os.FileInfo, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, apperrors.NewNotFoundError("archive").WithMetadata("name", name)
		}
		return nil, nil, apperrors.NewIOError("archive open", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, apperrors.NewIOError("archive open", err)
	}
	return f, info, nil
}

func owned(name string) bool {
	return (strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, archiveSuffix)) ||
		(strings.HasPrefix(name, mergePrefix) && strings.HasSuffix(name, mergeSuffix))
}

// Sweep removes archives and merge leftovers last modified before
// olderThan ago and returns how many were removed.
func (s *Store) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, apperrors.NewIOError("sweep", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !owned(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove expired file", map[string]interface{}{
				"file":  entry.Name(),
				"error": err.Error(),
			})
			continue
		}
		removed++
	}
	if removed > 0 {
		metrics.ArchivesSwept.Add(float64(removed))
	}
	return removed, nil
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval, retention time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	s.logger.Info("Temp store sweeper started", map[string]interface{}{
		"dir":       s.dir,
		"interval":  interval.String(),
		"retention": retention.String(),
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Temp store sweeper stopped", nil)
			return nil
		case <-ticker.C:
			n, err := s.Sweep(retention)
			if err != nil {
				s.logger.Error("Sweep failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			if n > 0 {
				s.logger.Info("Expired files removed", map[string]interface{}{"count": n})
			}
		}
	}
}
