// Package assets carries the template archives compiled into the kam
// binary. The cache materializes them into its tmpl directory and the
// environment linker builds venvs from them.
package assets

import (
	_ "embed"
)

//go:embed templates/venv.tar.gz
var venvArchive []byte

//go:embed templates/module.tar.gz
var moduleArchive []byte

// Archive is a bundled template archive: its base name, archive
// extension, and raw bytes.
type Archive struct {
	Name string
	Ext  string
	Data []byte
}

// Filename returns the on-disk filename for the archive.
func (a Archive) Filename() string {
	return a.Name + a.Ext
}

// VenvTemplateName is the bundled environment template consumed by the
// linker.
const VenvTemplateName = "venv"

// ModuleTemplateName is the bundled module scaffold template.
const ModuleTemplateName = "module"

// Templates returns every bundled archive, in a stable order.
func Templates() []Archive {
	return []Archive{
		{Name: VenvTemplateName, Ext: ".tar.gz", Data: venvArchive},
		{Name: ModuleTemplateName, Ext: ".tar.gz", Data: moduleArchive},
	}
}

// Template looks up a bundled archive by name.
func Template(name string) (Archive, bool) {
	for _, a := range Templates() {
		if a.Name == name {
			return a, true
		}
	}
	return Archive{}, false
}
