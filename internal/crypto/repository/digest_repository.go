package repository

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// plainIDPattern matches ids that are safe to use verbatim as file names.
// UUIDs and legacy hex ids both qualify. Other ids are hex encoded behind a
// leading underscore, which the pattern never matches.
var plainIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// DigestRepository keeps the last saved content digest of each key, one file per
// key id, under a data directory.
type DigestRepository struct {
	dir   string
	files *FileRepository
}

// NewDigestRepository creates a DigestRepository rooted at dir. The directory is
// created on first write.
func NewDigestRepository(dir string) *DigestRepository {
	return &DigestRepository{
		dir:   dir,
		files: NewFileRepository(0o600),
	}
}

// Get returns the stored digest for id, or an error wrapping errors.ErrNotFound
// when none was saved.
func (r *DigestRepository) Get(ctx context.Context, id string) ([]byte, error) {
	return r.files.Read(ctx, r.pathFor(id))
}

// Put stores digest for id, replacing any previous value.
func (r *DigestRepository) Put(ctx context.Context, id string, digest []byte) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", r.dir, err)
	}
	return r.files.Write(ctx, r.pathFor(id), digest, true)
}

func (r *DigestRepository) pathFor(id string) string {
	name := id
	if !plainIDPattern.MatchString(id) {
		name = "_" + hex.EncodeToString([]byte(id))
	}
	return filepath.Join(r.dir, name)
}
