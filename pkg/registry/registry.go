// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LoadRegistry reads a registry file. Document paths are resolved against
// the file's directory.
func LoadRegistry(path string) (*DocumentRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg DocumentRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range reg.Documents {
		if f := reg.Documents[i].File; f != "" && !filepath.IsAbs(f) {
			reg.Documents[i].File = filepath.Join(base, f)
		}
	}
	return &reg, nil
}

// Validate checks required fields and uniqueness. With checkFiles set every
// template must exist on disk.
func (r *DocumentRegistry) Validate(checkFiles bool) error {
	if len(r.Documents) == 0 {
		return fmt.Errorf("registry contains no documents")
	}

	ids := make(map[string]bool)
	names := make(map[string]bool)
	for _, doc := range r.Documents {
		if doc.ID == "" {
			return fmt.Errorf("document missing required field: ID")
		}
		if ids[doc.ID] {
			return fmt.Errorf("duplicate document ID: %s", doc.ID)
		}
		ids[doc.ID] = true

		if doc.File == "" {
			return fmt.Errorf("document %s missing required field: File", doc.ID)
		}
		if !strings.EqualFold(filepath.Ext(doc.File), ".docx") {
			return fmt.Errorf("document %s: template must be a .docx file", doc.ID)
		}
		if doc.ArchiveName == "" {
			return fmt.Errorf("document %s missing required field: ArchiveName", doc.ID)
		}
		if strings.ContainsAny(doc.ArchiveName, `/\`) {
			return fmt.Errorf("document %s: archive name must not contain a path", doc.ID)
		}
		if names[doc.ArchiveName] {
			return fmt.Errorf("duplicate archive name: %s", doc.ArchiveName)
		}
		names[doc.ArchiveName] = true

		if checkFiles {
			info, err := os.Stat(doc.File)
			if err != nil {
				return fmt.Errorf("document %s: %w", doc.ID, err)
			}
			if info.IsDir() {
				return fmt.Errorf("document %s: %s is a directory", doc.ID, doc.File)
			}
		}
	}
	return nil
}

// For returns the documents that apply to the given canton, in registry
// order.
func (r *DocumentRegistry) For(canton string) []Document {
	out := make([]Document, 0, len(r.Documents))
	for _, doc := range r.Documents {
		if doc.AppliesTo(canton) {
			out = append(out, doc)
		}
	}
	return out
}

// Add appends a document, rejecting duplicate ids.
func (r *DocumentRegistry) Add(doc Document) error {
	for _, existing := range r.Documents {
		if existing.ID == doc.ID {
			return fmt.Errorf("document with ID %s already exists", doc.ID)
		}
	}
	r.Documents = append(r.Documents, doc)
	r.LastUpdated = time.Now().Format(time.RFC3339)
	return nil
}

// Save writes the registry as indented JSON. Document paths are stored
// relative to the target file's directory when possible.
func (r *DocumentRegistry) Save(path string) error {
	dir := filepath.Dir(path)
	out := *r
	out.Documents = make([]Document, len(r.Documents))
	for i, doc := range r.Documents {
		if rel, err := filepath.Rel(dir, doc.File); err == nil && !strings.HasPrefix(rel, "..") {
			doc.File = filepath.ToSlash(rel)
		}
		out.Documents[i] = doc
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
