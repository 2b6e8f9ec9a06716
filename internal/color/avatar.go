// Package color generates display colors for user avatars.
package color

import (
	"fmt"
	"hash/fnv"
)

// ForUser returns a stable hex color for a user, derived from their ID.
// Hue comes from a hash of the ID; saturation and lightness are fixed so
// every color stays readable against the frontend's light background.
func ForUser(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, 0.4, 0.65)

	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts HSL color space to RGB.
// h: hue (0-360), s: saturation (0-1), l: lightness (0-1)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360.0

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r = uint8(hueToRGB(p, q, h+1.0/3.0) * 255)
	g = uint8(hueToRGB(p, q, h) * 255)
	b = uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
	return r, g, b
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
