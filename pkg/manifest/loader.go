package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/logging"
)

// Manifest filenames probed by Find, in priority order.
var manifestNames = []string{"kam.toml", "kam.yaml", "kam.yml"}

// rawManifest is the on-disk shape shared by both formats. Group items
// are either plain strings or tables with id/version/source keys.
type rawManifest struct {
	Module       Module                   `toml:"module" yaml:"module"`
	Dependencies map[string][]interface{} `toml:"dependencies" yaml:"dependencies"`
}

// Find locates the manifest file in dir, trying kam.toml then the yaml
// spellings.
func Find(dir string) (string, error) {
	for _, name := range manifestNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.Newf(errors.ErrManifestLoad, "no manifest found in %s", dir)
}

// Load reads and decodes the manifest at path, dispatching on the file
// extension.
func Load(path string) (*Manifest, error) {
	logger := logging.GetLogger("manifest")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestLoad, "failed to read manifest %s", path)
	}

	var raw rawManifest
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestLoad, "failed to parse %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestLoad, "failed to parse %s", path)
		}
	default:
		return nil, errors.Newf(errors.ErrManifestLoad, "unrecognized manifest format: %s", path)
	}

	m := &Manifest{
		Module: raw.Module,
		Groups: make(map[string][]Entry, len(raw.Dependencies)),
	}
	for name, items := range raw.Dependencies {
		entries, err := convertItems(items)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestLoad, "group %q in %s", name, path)
		}
		m.Groups[name] = entries
	}

	logger.Debug().
		Str("path", path).
		Int("groups", len(m.Groups)).
		Msg("Manifest loaded")

	return m, nil
}

func convertItems(items []interface{}) ([]Entry, error) {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			entries = append(entries, ParseEntry(v))
		case map[string]interface{}:
			dep, err := depFromTable(v)
			if err != nil {
				return nil, err
			}
			entries = append(entries, DepEntry(dep))
		default:
			return nil, fmt.Errorf("unsupported entry type %T", item)
		}
	}
	return entries, nil
}

func depFromTable(table map[string]interface{}) (Dependency, error) {
	var dep Dependency
	for key, value := range table {
		str, ok := value.(string)
		if !ok {
			return dep, fmt.Errorf("entry field %q must be a string", key)
		}
		switch key {
		case "id":
			dep.ID = str
		case "version":
			dep.Version = str
		case "source":
			dep.Source = str
		default:
			return dep, fmt.Errorf("unknown entry field %q", key)
		}
	}
	if dep.ID == "" {
		return dep, fmt.Errorf("entry table is missing an id")
	}
	return dep, nil
}
