package files

import (
	"path/filepath"
	"strings"
)

// contentTypes is the fixed extension lookup table for served files.
// Sniffing is disabled on responses, so an unknown extension falls back to
// application/octet-stream rather than guessing.
var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// ContentTypeForPath returns the MIME type for a file path based on its
// extension.
func ContentTypeForPath(p string) string {
	ext := strings.ToLower(filepath.Ext(p))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
