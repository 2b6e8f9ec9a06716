// Package images computes BlurHash placeholders for uploaded images.
//
// The public site shows blurred placeholders for book covers and gallery
// photos while the real image loads. Hashes are computed once at upload
// time and stored on the owning record.
package images

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// blurHashSize is the thumbnail edge length used for BlurHash computation.
// The hash is a low-frequency placeholder, so a small thumbnail produces
// nearly identical output at a fraction of the cost.
const blurHashSize = 64

// ComputeBlurHash generates a BlurHash string from an image file on disk.
// Uses 4x3 components, which keeps the hash around 20-30 characters.
func ComputeBlurHash(imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	hash, err := blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}

	return hash, nil
}

// thumbnail downscales img to at most blurHashSize on its longest edge,
// preserving aspect ratio. Nearest-neighbor scaling is plenty for a blur.
func thumbnail(img image.Image) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	if srcW <= blurHashSize && srcH <= blurHashSize {
		return img
	}

	dstW, dstH := blurHashSize, blurHashSize
	if srcW > srcH {
		dstH = max(1, (srcH*blurHashSize)/srcW)
	} else {
		dstW = max(1, (srcW*blurHashSize)/srcH)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xRatio := float64(srcW) / float64(dstW)
	yRatio := float64(srcH) / float64(dstH)

	for y := range dstH {
		for x := range dstW {
			srcX := int(float64(x) * xRatio)
			srcY := int(float64(y) * yRatio)
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}

	return dst
}
