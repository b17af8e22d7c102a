package registry

// Identifier locates one published component version in the repository tree.
type Identifier struct {
	Namespace    string `json:"namespace"`
	Name         string `json:"name"`
	Version      string `json:"version"`
	MetadataPath string `json:"metadataPath"`
}

// Key returns "<namespace>/<name>".
func (id Identifier) Key() string {
	return id.Namespace + "/" + id.Name
}

// File is a file declared by a component's metadata.
type File struct {
	Path   string `json:"path"`
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
}

// Item is the canonical component metadata, whichever shape registry.json used.
type Item struct {
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Files                []File   `json:"files"`
	Dependencies         []string `json:"dependencies,omitempty"`
	RegistryDependencies []string `json:"registryDependencies,omitempty"`
	Categories           []string `json:"categories,omitempty"`
	CSSVars              any      `json:"cssVars,omitempty"`
	Docs                 string   `json:"docs,omitempty"`
	PublishedAt          string   `json:"publishedAt,omitempty"`
	Publisher            string   `json:"publisher,omitempty"`
}

// CatalogEntry is the latest known version of a component.
// Author is the namespace the component was published under and Slug its
// directory name. Slug addresses the component in URLs; Item.Name is
// whatever the metadata declares and may differ.
type CatalogEntry struct {
	Item
	Slug    string `json:"slug"`
	Version string `json:"version"`
	Author  string `json:"author"`
}

// DetailFile is a declared file with its fetched content.
// Content is empty when the file could not be fetched.
type DetailFile struct {
	File
	Content string `json:"content"`
}

// Detail is a single component version with every declared file hydrated.
type Detail struct {
	CatalogEntry
	AllVersions []string     `json:"allVersions"`
	Files       []DetailFile `json:"files"`
	Readme      string       `json:"readme,omitempty"`

	// RequestedVersion is the version the caller asked for, if any.
	RequestedVersion string `json:"-"`
	// Fallback is true when RequestedVersion did not exist and the latest
	// version was returned instead.
	Fallback bool `json:"-"`
}
