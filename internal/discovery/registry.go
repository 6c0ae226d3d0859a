package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	semerrors "github.com/flupkede/codesearch/internal/errors"
)

// RegistryEntry records when a project's database was last indexed, per
// spec.md §6's <config_dir>/repos.json format.
type RegistryEntry struct {
	IndexedAt time.Time `json:"indexed_at"`
}

// Registry is the global map of absolute project path -> RegistryEntry
// persisted at <config_dir>/repos.json. Find() consults it only for the
// exact starting path (spec.md §4.7 step 4): a registered project's
// database is not found from an unrelated working directory.
type Registry struct {
	Repos map[string]RegistryEntry `json:"repos"`
}

// LoadRegistry reads <config_dir>/repos.json. A missing file yields an
// empty registry, not an error.
func LoadRegistry() (*Registry, error) {
	data, err := os.ReadFile(registryPath())
	if os.IsNotExist(err) {
		return &Registry{Repos: map[string]RegistryEntry{}}, nil
	}
	if err != nil {
		return nil, semerrors.IOError("failed to read repos.json", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, semerrors.Invalid("repos.json is corrupt", err)
	}
	if reg.Repos == nil {
		reg.Repos = map[string]RegistryEntry{}
	}
	return &reg, nil
}

// Save writes the registry back to <config_dir>/repos.json, creating the
// config directory if needed.
func (r *Registry) Save() error {
	dir := filepath.Dir(registryPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return semerrors.IOError("failed to create config directory", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return semerrors.Invalid("failed to marshal repos.json", err)
	}

	tmp := registryPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return semerrors.IOError("failed to write repos.json", err)
	}
	if err := os.Rename(tmp, registryPath()); err != nil {
		return semerrors.IOError("failed to replace repos.json", err)
	}
	return nil
}

// Register records projectPath as indexed as of indexedAt, creating or
// updating its entry, and persists the registry.
func Register(projectPath string, indexedAt time.Time) error {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return semerrors.Invalid("failed to resolve absolute path", err)
	}

	reg, err := LoadRegistry()
	if err != nil {
		return err
	}
	reg.Repos[abs] = RegistryEntry{IndexedAt: indexedAt}
	return reg.Save()
}

// Unregister removes projectPath from the global registry, if present,
// and persists the change.
func Unregister(projectPath string) error {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return semerrors.Invalid("failed to resolve absolute path", err)
	}

	reg, err := LoadRegistry()
	if err != nil {
		return err
	}
	if _, ok := reg.Repos[abs]; !ok {
		return nil
	}
	delete(reg.Repos, abs)
	return reg.Save()
}
