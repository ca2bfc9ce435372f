// Package manifest defines the dependency-group data model and loads
// project manifests. Schema validation beyond basic shape is out of
// scope; duplicate group names are last-write-wins.
package manifest

import (
	"strings"
)

// IncludePrefix is the reserved identifier sentinel marking an include
// directive inside a dependency group.
const IncludePrefix = "include:"

// Dependency is a single concrete dependency declaration. An empty
// Version means "latest". Source, when set, overrides the configured
// default source for this dependency only.
type Dependency struct {
	ID      string
	Version string
	Source  string
}

// String renders the dependency in id@version form.
func (d Dependency) String() string {
	if d.Version == "" {
		return d.ID
	}
	return d.ID + "@" + d.Version
}

// VersionOrLatest returns the declared version or the literal "latest".
func (d Dependency) VersionOrLatest() string {
	if d.Version == "" {
		return "latest"
	}
	return d.Version
}

// Entry is one item in a dependency group: either an include directive
// or a concrete dependency. Exactly one of Include / Dep is meaningful;
// Include is the discriminant.
type Entry struct {
	Include string
	Dep     Dependency
}

// IsInclude reports whether the entry is an include directive.
func (e Entry) IsInclude() bool {
	return e.Include != ""
}

// IncludeEntry builds an include directive entry.
func IncludeEntry(group string) Entry {
	return Entry{Include: group}
}

// DepEntry builds a concrete dependency entry.
func DepEntry(dep Dependency) Entry {
	return Entry{Dep: dep}
}

// ParseEntry converts the string form of a group item into an Entry.
// "include:<name>" becomes an include directive; anything else is an
// "id" or "id@version" concrete dependency.
func ParseEntry(s string) Entry {
	if rest, ok := strings.CutPrefix(s, IncludePrefix); ok {
		return IncludeEntry(strings.TrimSpace(rest))
	}
	id, version, _ := strings.Cut(s, "@")
	return DepEntry(Dependency{ID: strings.TrimSpace(id), Version: strings.TrimSpace(version)})
}

// Module holds the project metadata block of a manifest.
type Module struct {
	ID          string `toml:"id" yaml:"id"`
	Name        string `toml:"name" yaml:"name"`
	Version     string `toml:"version" yaml:"version"`
	Author      string `toml:"author" yaml:"author"`
	Description string `toml:"description" yaml:"description"`
}

// Manifest is a parsed project manifest: module metadata plus named
// dependency groups.
type Manifest struct {
	Module Module
	Groups map[string][]Entry
}

// GroupNames returns the defined group names in no particular order.
func (m *Manifest) GroupNames() []string {
	names := make([]string, 0, len(m.Groups))
	for name := range m.Groups {
		names = append(names, name)
	}
	return names
}
