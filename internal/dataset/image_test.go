package dataset

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGrayConvertsColour(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 30, 20))
	src.Set(3, 4, color.White)
	path := filepath.Join(t.TempDir(), "ref.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	g, err := LoadGray(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), g.Bounds())
	assert.Equal(t, uint8(255), g.GrayAt(3, 4).Y)
	assert.Equal(t, uint8(0), g.GrayAt(0, 0).Y)
}

func TestLoadGrayErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadGray(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))
	_, err = LoadGray(junk)
	assert.Error(t, err)
}
