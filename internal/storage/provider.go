// Package storage writes exported notes into the export directory.
package storage

import "time"

// ExportFile describes one file in the export directory.
type ExportFile struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Provider is the interface for export file operations.
type Provider interface {
	// List returns every exported .txt file under dir (relative to the export root).
	List(dir string) ([]ExportFile, error)
	// Read returns the raw bytes of the file at path (relative to the export root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path and returns its absolute location.
	Write(path string, content []byte) (string, error)
	// Delete removes the file at path (relative to the export root).
	Delete(path string) error
}
