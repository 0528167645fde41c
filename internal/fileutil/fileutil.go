// Package fileutil reads and rewrites package manifests in place.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned when a file is larger than the caller allows.
var ErrTooLarge = errors.New("file too large")

type tempFile interface {
	Name() string
	Chmod(os.FileMode) error
	Write([]byte) (int, error)
	Sync() error
	Close() error
}

// fsOps is swapped in tests to fail individual steps of Replace.
type fsOps struct {
	stat       func(path string) (os.FileInfo, error)
	createTemp func(dir, pattern string) (tempFile, error)
	rename     func(oldpath, newpath string) error
	remove     func(path string) error
}

var osOps = fsOps{
	stat: os.Stat,
	createTemp: func(dir, pattern string) (tempFile, error) {
		return os.CreateTemp(dir, pattern)
	},
	rename: os.Rename,
	remove: os.Remove,
}

// ReadLimited reads at most maxSize bytes of path. Larger files fail with
// ErrTooLarge before any content is read.
func ReadLimited(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- manifest paths come from workspace discovery
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, path, info.Size(), maxSize)
	}

	// The file may grow between Stat and ReadAll.
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds limit %d", ErrTooLarge, path, maxSize)
	}
	return data, nil
}

// Replace swaps the contents of an existing file for data. The new content
// is written beside the file and renamed over it, so readers see either the
// old manifest or the new one. The file keeps its permissions.
func Replace(path string, data []byte) error {
	return replace(path, data, osOps)
}

func replace(path string, data []byte, ops fsOps) error {
	info, err := ops.stat(path)
	if err != nil {
		return err
	}

	tmp, err := ops.createTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = ops.remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", tmpPath, err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := ops.rename(tmpPath, path); err != nil {
		_ = ops.remove(tmpPath)
		committed = true
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	committed = true
	return nil
}
