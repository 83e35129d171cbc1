package service

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
)

// maxEntrySize bounds how much a single archive entry may inflate to. Real entries
// are a few hundred bytes at most.
const maxEntrySize = 1 << 20

type archiveEntry struct {
	name string
	data []byte
}

// writeArchive stores entries uncompressed, in order, in a zip archive.
func writeArchive(entries []archiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Store})
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry %q: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("failed to write archive entry %q: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// readArchive returns every entry of a zip archive keyed by name.
func readArchive(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrMalformedContainer, err.Error())
	}

	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		content, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		entries[f.Name] = content
	}
	return entries, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: entry %q: %s", cryptoDomain.ErrMalformedContainer, f.Name, err.Error())
	}
	defer func() {
		_ = rc.Close()
	}()

	content, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: entry %q: %s", cryptoDomain.ErrMalformedContainer, f.Name, err.Error())
	}
	if len(content) > maxEntrySize {
		return nil, fmt.Errorf("%w: entry %q too large", cryptoDomain.ErrMalformedContainer, f.Name)
	}
	return content, nil
}
