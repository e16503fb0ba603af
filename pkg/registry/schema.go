// pkg/registry/schema.go
package registry

// DocumentRegistry lists the Word templates merged for every founding.
type DocumentRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Documents   []Document `json:"documents"`
}

// Document is one template. File is relative to the registry file's
// directory; ArchiveName is the entry name inside the delivered ZIP.
type Document struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	File        string   `json:"file"`
	ArchiveName string   `json:"archiveName"`
	Cantons     []string `json:"cantons,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AppliesTo reports whether the document is produced for the given canton.
// Documents without a canton list apply everywhere.
func (d Document) AppliesTo(canton string) bool {
	if len(d.Cantons) == 0 {
		return true
	}
	for _, c := range d.Cantons {
		if c == canton {
			return true
		}
	}
	return false
}
