package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local keeps files under dir; the HTTP server exposes dir at /storage.
type Local struct {
	dir       string
	publicURL string
}

func NewLocal(dir, publicURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create %s: %w", dir, err)
	}
	return &Local{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (l *Local) Dir() string { return l.dir }

func (l *Local) Save(_ context.Context, folder, name string, r io.Reader) (string, string, error) {
	key, err := cleanKey(folder, name)
	if err != nil {
		return "", "", err
	}
	p := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", "", err
	}

	f, err := os.Create(p)
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return "", "", fmt.Errorf("blob: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", "", err
	}
	return l.publicURL + "/storage/" + key, key, nil
}

// Delete removes the file; a missing file is not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	if key == "" || strings.Contains(key, "..") {
		return ErrBadKey
	}
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
