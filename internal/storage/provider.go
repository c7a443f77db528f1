// Package storage gives rooted access to a directory of Markdown files.
package storage

import "time"

// DefaultInclude selects the files List reports when no pattern is configured.
const DefaultInclude = "**/*.md"

// File describes one vault file.
type File struct {
	Path     string // slash-separated, relative to the vault root
	Checksum string
	ModTime  time.Time
}

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns every included file under dir (relative to vault root).
	List(dir string) ([]File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Includes reports whether path is selected by the include pattern.
	Includes(path string) bool
}
