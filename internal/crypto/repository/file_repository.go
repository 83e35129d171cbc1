// Package repository implements filesystem persistence for key containers, their
// content digests, and the files encrypted with them.
//
// Every write goes to a temporary file in the destination directory and is then
// moved into place, so readers never observe a partially written file.
package repository

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	apperrors "github.com/allisson/keymanager/internal/errors"
)

// FileRepository reads and atomically writes whole files.
type FileRepository struct {
	perm fs.FileMode
}

// NewFileRepository creates a FileRepository that writes files with perm.
func NewFileRepository(perm fs.FileMode) *FileRepository {
	return &FileRepository{perm: perm}
}

// Read returns the content of path. A missing file yields an error wrapping
// apperrors.ErrNotFound.
func (r *FileRepository) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapPathError(err, path)
	}
	return data, nil
}

// ReadHeader returns at most the first n bytes of path.
func (r *FileRepository) ReadHeader(ctx context.Context, path string, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, wrapPathError(err, path)
	}
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return buf[:read], nil
}

// Write stores data at path through a temporary file in the same directory.
//
// When overwrite is false and path already exists the call fails with
// cryptoDomain.ErrKeyFileExists and leaves the existing file untouched.
func (r *FileRepository) Write(ctx context.Context, path string, data []byte, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpPath, err := r.writeTemp(path, data)
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if overwrite {
		if err := os.Rename(tmpPath, path); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", path, err)
		}
		return nil
	}

	// Link fails when the target exists, which makes the existence check and the
	// write a single step.
	if err := os.Link(tmpPath, path); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", cryptoDomain.ErrKeyFileExists, path)
		}
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func (r *FileRepository) writeTemp(path string, data []byte) (string, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	tmpPath := f.Name()

	cleanup := func(err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}

	if err := f.Chmod(r.perm); err != nil {
		return cleanup(fmt.Errorf("failed to set permissions on %s: %w", tmpPath, err))
	}
	if _, err := f.Write(data); err != nil {
		return cleanup(fmt.Errorf("failed to write %s: %w", tmpPath, err))
	}
	if err := f.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync %s: %w", tmpPath, err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	return tmpPath, nil
}

func wrapPathError(err error, path string) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, path)
	}
	return fmt.Errorf("failed to read %s: %w", path, err)
}
