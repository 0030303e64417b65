// Package artifact persists finished signature rasters and hands back the
// reference a caller uses to fetch them.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store saves one artifact under name and returns its public reference.
type Store interface {
	Put(ctx context.Context, name string, img image.Image) (string, error)
}

// EncodePNG returns the PNG encoding of img.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("artifact: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Dir writes PNG files into a local directory. References are the file
// name joined onto a URL prefix, e.g. "/static/output/sig_1_1.png".
type Dir struct {
	root   string
	prefix string
}

// NewDir returns a Dir rooted at root. The directory is created on the
// first Put.
func NewDir(root, urlPrefix string) *Dir {
	return &Dir{root: root, prefix: strings.TrimRight(urlPrefix, "/")}
}

// Root returns the directory files are written to.
func (d *Dir) Root() string { return d.root }

// Path returns the filesystem path an artifact name is stored at.
func (d *Dir) Path(name string) string { return filepath.Join(d.root, name) }

// Ref returns the public reference for an artifact name.
func (d *Dir) Ref(name string) string {
	if d.prefix == "" {
		return name
	}
	return path.Join(d.prefix, name)
}

// Put encodes img as PNG and writes it to the directory. The file is
// written under a temporary name and renamed so readers never see a
// partial image.
func (d *Dir) Put(_ context.Context, name string, img image.Image) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("artifact: invalid name %q", name)
	}
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", fmt.Errorf("artifact: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(d.root, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("artifact: create %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("artifact: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("artifact: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), d.Path(name)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("artifact: rename %s: %w", name, err)
	}
	return d.Ref(name), nil
}
