// Package storage defines the site file-system abstraction.
package storage

import "time"

// FileInfo is the metadata returned by List.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for site file operations. Paths are relative
// to the provider root and use the host separator.
type Provider interface {
	// List returns metadata for every file with extension ext under dir.
	// An empty ext lists every regular file.
	List(dir, ext string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Root returns the absolute provider root.
	Root() string
}
