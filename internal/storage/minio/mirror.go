package minio

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/crimson-sun/sigflow/internal/output/artifact"
)

// Uploader is the subset of Client used by Mirror.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Mirror copies artifacts to an object bucket under their artifact names.
// It is an artifact.Store replica: its reference is the object URL, and
// callers treat its errors as non-fatal.
type Mirror struct {
	up Uploader
}

// NewMirror returns a Mirror that uploads through up.
func NewMirror(up Uploader) *Mirror {
	return &Mirror{up: up}
}

func (m *Mirror) Put(ctx context.Context, name string, img image.Image) (string, error) {
	data, err := artifact.EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("minio: encode %s: %w", name, err)
	}
	url, err := m.up.Upload(ctx, name, data, "image/png")
	if err != nil {
		return "", err
	}
	slog.Debug("artifact mirrored", "name", name, "url", url)
	return url, nil
}
