package storage

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNothingToExport is returned when the user has no data directory.
var ErrNothingToExport = errors.New("storage: nothing to export")

// Export zips the user's whole directory into
// <data-dir>/export_<user>_<YYYYMMDD_HHMMSS>.zip and returns its path.
// Entries are stored as they are on disk; encrypted lines stay encrypted.
func (s *Store) Export(ctx context.Context, userID int64) (string, error) {
	src := s.UserDir(userID)
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return "", ErrNothingToExport
	}

	name := fmt.Sprintf("export_%d_%s.zip", userID, timeNow().Format("20060102_150405"))
	dst := filepath.Join(s.root, name)

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("storage: create export: %w", err)
	}

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})

	closeErr := zw.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if walkErr != nil || closeErr != nil {
		_ = os.Remove(dst)
		if walkErr != nil {
			return "", fmt.Errorf("storage: export: %w", walkErr)
		}
		return "", fmt.Errorf("storage: export: %w", closeErr)
	}

	s.logger.Infof("exported user %d to %s", userID, name)
	return dst, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
