package domain

// StaffMember represents an entry in the public staff directory.
type StaffMember struct {
	Record
	Name     string `json:"name"`
	Subject  string `json:"subject,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Email    string `json:"email,omitempty"`
	Position string `json:"position,omitempty"` // Job title shown on the staff page

	// PhotoPath is a storage-relative <uuid>.<ext> path under the
	// public staff media root.
	PhotoPath string `json:"photo_path,omitempty"`
}
