package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	semerrors "github.com/flupkede/codesearch/internal/errors"
)

// Metadata is the bit-exact metadata.json descriptor (spec §6): the one
// record in a database directory that names which model produced the
// vectors it holds. It is written once at database creation and never
// mutated in place by the synchroniser — only by the explicit bootstrap
// step the service layer negotiates.
type Metadata struct {
	Version        int       `json:"version"`
	ModelShortName string    `json:"model_short_name"`
	ModelName      string    `json:"model_name"`
	Dimensions     int       `json:"dimensions"`
	IndexedAt      time.Time `json:"indexed_at"`
}

const metadataVersion = 1

// NewMetadata builds a Metadata record for a freshly bootstrapped
// database.
func NewMetadata(modelShortName, modelName string, dimensions int, indexedAt time.Time) Metadata {
	return Metadata{
		Version:        metadataVersion,
		ModelShortName: modelShortName,
		ModelName:      modelName,
		Dimensions:     dimensions,
		IndexedAt:      indexedAt,
	}
}

// LoadMetadataFile reads metadata.json at path.
func LoadMetadataFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, semerrors.NotFound("metadata.json not found at "+path, err)
	}
	if err != nil {
		return nil, semerrors.IOError("failed to read metadata.json", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, semerrors.Invalid("metadata.json is corrupt", err)
	}
	return &m, nil
}

// SaveMetadataFile writes metadata.json atomically (temp file + rename),
// matching the write discipline the file-meta store uses for its own
// JSON document.
func SaveMetadataFile(path string, m Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return semerrors.Invalid("failed to marshal metadata.json", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return semerrors.IOError("failed to create database directory", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return semerrors.IOError("failed to write metadata.json", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return semerrors.IOError("failed to save metadata.json", err)
	}
	return nil
}
