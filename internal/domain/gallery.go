package domain

// GalleryImage is a single photo within an album.
type GalleryImage struct {
	// Path is a storage-relative <uuid>.<ext> path under the public
	// gallery media root.
	Path     string `json:"path"`
	Caption  string `json:"caption,omitempty"`
	BlurHash string `json:"blur_hash,omitempty"`
}

// Gallery represents a public photo album.
type Gallery struct {
	Record
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Description string         `json:"description,omitempty"`
	Images      []GalleryImage `json:"images"`
}

// RemoveImage deletes the image with the given path from the album.
// Returns true if an image was removed.
func (g *Gallery) RemoveImage(path string) bool {
	for i, img := range g.Images {
		if img.Path == path {
			g.Images = append(g.Images[:i], g.Images[i+1:]...)
			g.Touch()
			return true
		}
	}
	return false
}
