package registry

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/juju/errors"
	"github.com/rs/zerolog"
)

type schemaFile struct {
	Schemas []Schema `toml:"schemas"`
}

// LoadFromFS loads all schemas from the TOML files in dir.
func LoadFromFS(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Annotate(err, "reading embedded schemas")
	}

	var all []Schema
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Annotatef(err, "reading %s", entry.Name())
		}

		var sf schemaFile
		if err := toml.Unmarshal(data, &sf); err != nil {
			return nil, errors.Annotatef(err, "parsing %s", entry.Name())
		}
		all = append(all, sf.Schemas...)
	}

	return New(all), nil
}

// LoadAll merges the built-in schemas with user files from pluginDir.
// User schemas override built-ins for the same component or category.
// Unreadable plugin files are logged and skipped.
func LoadAll(fsys fs.FS, dir, pluginDir string, logger zerolog.Logger) (*Registry, error) {
	reg, err := LoadFromFS(fsys, dir)
	if err != nil {
		return nil, err
	}
	schemas := reg.All()

	entries, err := os.ReadDir(pluginDir)
	if err != nil {
		// No plugins directory is fine
		return New(dedup(schemas)), nil
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		file := filepath.Join(pluginDir, entry.Name())
		var sf schemaFile
		if _, err := toml.DecodeFile(file, &sf); err != nil {
			logger.Warn().Err(err).Str("file", file).Msg("skipping schema plugin")
			continue
		}
		schemas = append(schemas, sf.Schemas...)
	}

	return New(dedup(schemas)), nil
}

func schemaKey(s Schema) string {
	if s.ComponentID != "" {
		return "id:" + s.ComponentID
	}
	return "category:" + s.Category
}

// dedup keeps the last schema for each component or category, in the
// position of its first occurrence.
func dedup(schemas []Schema) []Schema {
	last := make(map[string]int, len(schemas))
	for i, s := range schemas {
		last[schemaKey(s)] = i
	}
	result := make([]Schema, 0, len(last))
	added := make(map[string]bool, len(last))
	for _, s := range schemas {
		k := schemaKey(s)
		if added[k] {
			continue
		}
		result = append(result, schemas[last[k]])
		added[k] = true
	}
	return result
}
