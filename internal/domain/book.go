package domain

import "strconv"

// Book represents a PDF book in the e-library.
//
// BookID is the public identity of a book: a positive integer assigned
// monotonically at creation time, never reused and never mutated.
// Permission grants reference books by their decimal BookID string.
type Book struct {
	Record
	BookID      int      `json:"book_id"`
	Title       string   `json:"title"`
	Author      string   `json:"author,omitempty"`
	Description string   `json:"description,omitempty"`
	Language    string   `json:"language,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Storage-relative paths of the form <uuid>.<ext> under the
	// covers/ and books/ media roots.
	CoverPath string `json:"cover_path,omitempty"`
	PDFPath   string `json:"pdf_path"`

	// File identifiers (the uuid part of the stored filename, without
	// extension). Indexed for the exact-match ownership lookup the file
	// gate performs; deriving them from the paths by substring matching
	// would risk false positives between ids.
	CoverFileID string `json:"cover_file_id,omitempty"`
	PDFFileID   string `json:"pdf_file_id"`

	// CoverBlurHash is a compact placeholder for the cover image,
	// computed at upload time.
	CoverBlurHash string `json:"cover_blur_hash,omitempty"`
}

// BookIDString returns the decimal string form of BookID, the form used
// in permission grants and API paths.
func (b *Book) BookIDString() string {
	return strconv.Itoa(b.BookID)
}

// FileIDs returns the file identifiers owned by this book.
// Books always have a PDF; the cover is optional.
func (b *Book) FileIDs() []string {
	ids := make([]string, 0, 2)
	if b.PDFFileID != "" {
		ids = append(ids, b.PDFFileID)
	}
	if b.CoverFileID != "" {
		ids = append(ids, b.CoverFileID)
	}
	return ids
}
