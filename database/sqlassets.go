package sqlassets

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SchemaFiles returns the embedded DDL files ordered by their numeric prefix.
func SchemaFiles() ([]string, error) {
	entries, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)
	return entries, nil
}

// ReadSchema returns the contents of one embedded DDL file.
func ReadSchema(name string) (string, error) {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
