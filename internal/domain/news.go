package domain

import "time"

// NewsItem represents an article on the public news page.
// The body is stored as Markdown; pasted HTML is converted at write time.
type NewsItem struct {
	Record
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Body        string    `json:"body"`
	Published   bool      `json:"published"`
	PublishedAt time.Time `json:"published_at,omitzero"`
	AuthorID    string    `json:"author_id,omitempty"`
}

// Publish marks the item visible on the public site.
// The publish timestamp is set once; republishing keeps the original date.
func (n *NewsItem) Publish() {
	n.Published = true
	if n.PublishedAt.IsZero() {
		n.PublishedAt = time.Now()
	}
	n.Touch()
}

// Unpublish hides the item from the public site.
func (n *NewsItem) Unpublish() {
	n.Published = false
	n.Touch()
}
