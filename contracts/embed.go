// Package contracts embeds the OpenAPI documents served by the API and the JSON Schemas
// used to validate seed fixtures.
package contracts

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed *.yaml schemas/*.json
var files embed.FS

// Names lists the embedded OpenAPI documents by base name, e.g. "events".
func Names() []string {
	entries, _ := fs.Glob(files, "*.yaml")
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry, ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Load parses and validates the named OpenAPI document.
func Load(name string) (*openapi3.T, error) {
	raw, err := files.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("read contract %s: %w", name, err)
	}

	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("parse contract %s: %w", name, err)
	}
	if err := spec.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate contract %s: %w", name, err)
	}
	return spec, nil
}

// Schemas exposes the JSON Schema directory for payload validation.
func Schemas() fs.FS {
	sub, err := fs.Sub(files, "schemas")
	if err != nil {
		panic(err)
	}
	return sub
}
