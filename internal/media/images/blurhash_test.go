package images

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

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255}) //nolint:gosec // Test pixel data
		}
	}

	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	return path
}

func TestComputeBlurHash(t *testing.T) {
	path := writeTestPNG(t, 200, 300)

	hash, err := ComputeBlurHash(path)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestComputeBlurHashSmallImage(t *testing.T) {
	path := writeTestPNG(t, 16, 16)

	hash, err := ComputeBlurHash(path)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestComputeBlurHashMissingFile(t *testing.T) {
	_, err := ComputeBlurHash(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestComputeBlurHashNotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

	_, err := ComputeBlurHash(path)
	assert.Error(t, err)
}

func TestThumbnailPreservesAspectRatio(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 320))

	small := thumbnail(img)
	assert.Equal(t, 64, small.Bounds().Dx())
	assert.Equal(t, 32, small.Bounds().Dy())
}
