// Package note defines the core data model: notes, their historical
// versions, and the sortable identifiers that key them.
package note

import (
	"time"

	"github.com/starford/ansuz/internal/checksum"
)

// Note is a single document in the collection.
//
// Links is derived state: it always holds exactly the identifiers
// resolvable from the current Body's wikilinks, in first-seen order.
// It is recomputed by the store on every write and never hand-edited.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Links     []string  `json:"links"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Version is a point-in-time snapshot of a note's editable fields.
type Version struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy; slices are not shared with the receiver.
func (n Note) Clone() Note {
	c := n
	c.Tags = append([]string(nil), n.Tags...)
	c.Links = append([]string(nil), n.Links...)
	return c
}

// ContentSum digests the fields whose change makes a version
// "materially different": title, body, and tags. Color changes alone
// do not warrant a new version.
func (n Note) ContentSum() string {
	fields := append([]string{n.Title, n.Body}, n.Tags...)
	return checksum.SumFields(fields...)
}

// ContentSum is the version-side counterpart of Note.ContentSum.
func (v Version) ContentSum() string {
	fields := append([]string{v.Title, v.Body}, v.Tags...)
	return checksum.SumFields(fields...)
}

// SnapshotOf captures the editable fields of n as a new version.
func SnapshotOf(n Note, versionID string, at time.Time) Version {
	return Version{
		ID:        versionID,
		NoteID:    n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Tags:      append([]string(nil), n.Tags...),
		Color:     n.Color,
		CreatedAt: at,
	}
}
