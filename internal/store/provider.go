package store

import "github.com/starford/ansuz/internal/note"

// Provider is the opaque persistence contract behind the note store.
// The engine does not own a wire or file format; any key-value-shaped
// backend that can hold notes and their retained versions will do.
// All methods may fail; the store degrades per its error policy
// instead of propagating panics.
type Provider interface {
	// LoadNotes returns every persisted note in stable collection order.
	LoadNotes() ([]note.Note, error)

	// SaveNote inserts or replaces a single note.
	SaveNote(n note.Note) error

	// DeleteNote removes a note and its retained versions.
	DeleteNote(id string) error

	// ReplaceAll atomically replaces the entire collection. Retained
	// versions of previous notes are dropped with them.
	ReplaceAll(notes []note.Note) error

	// LoadVersions returns the retained versions of a note, newest first.
	LoadVersions(noteID string) ([]note.Version, error)

	// SaveVersions replaces the retained versions of a note, newest first.
	SaveVersions(noteID string, versions []note.Version) error

	// Wipe removes every note and version.
	Wipe() error

	Close() error
}
