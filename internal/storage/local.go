package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local stores images on disk and serves them under publicPrefix
// (typically /static/productos) via the HTTP server's file handler.
type Local struct {
	dir          string
	publicPrefix string
}

func NewLocal(dir string, publicPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Local{dir: dir, publicPrefix: strings.TrimRight(publicPrefix, "/")}, nil
}

func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Save(_ context.Context, filename string, r io.Reader, _ string) (string, error) {
	// Uploaded names are generated server-side, but strip any path
	// components anyway so a crafted name cannot escape the directory.
	filename = filepath.Base(filename)

	dst, err := os.Create(filepath.Join(l.dir, filename))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write image file: %w", err)
	}
	return l.publicPrefix + "/" + filename, nil
}

func (l *Local) Delete(_ context.Context, url string) error {
	if url == "" {
		return nil
	}
	filename := filepath.Base(path.Clean(url))
	if filename == "." || filename == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(l.dir, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}
