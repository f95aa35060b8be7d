// Package payload validates JSON documents against the JSON Schemas shipped in contracts/schemas.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError lists schema violations keyed by JSON pointer of the offending value.
type ValidationError struct {
	Schema string
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return fmt.Sprintf("%s validation failed: %s", e.Schema, strings.Join(parts, ", "))
}

// Validator compiles schemas lazily from an fs.FS and caches them.
type Validator struct {
	schemas fs.FS
	mu      sync.RWMutex
	cache   map[string]*jsonschema.Schema
}

// NewValidator returns a validator reading schema files from schemas.
func NewValidator(schemas fs.FS) *Validator {
	if schemas == nil {
		panic("payload validator: schemas fs is required")
	}
	return &Validator{
		schemas: schemas,
		cache:   make(map[string]*jsonschema.Schema),
	}
}

// Validate checks a raw JSON payload against the named schema file.
func (v *Validator) Validate(name string, payload []byte) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return fmt.Errorf("payload is required for validation")
	}

	compiled, err := v.getOrCompile(name)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var document any
	if err := dec.Decode(&document); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if err := compiled.Validate(document); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return toValidationError(name, ve)
		}
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// ValidateDocument re-encodes doc as JSON and validates it. Used for YAML fixtures.
func (v *Validator) ValidateDocument(name string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return v.Validate(name, payload)
}

func (v *Validator) getOrCompile(name string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	compiled, ok := v.cache[name]
	v.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if compiled, ok = v.cache[name]; ok {
		return compiled, nil
	}

	raw, err := fs.ReadFile(v.schemas, name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}

	url := "mem://schemas/" + name
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("register schema %s: %w", name, err)
	}

	newCompiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	v.cache[name] = newCompiled
	return newCompiled, nil
}

func toValidationError(name string, ve *jsonschema.ValidationError) *ValidationError {
	out := &ValidationError{Schema: name, Fields: map[string][]string{}}
	for _, basic := range ve.BasicOutput().Errors {
		if basic.Error == "" || strings.HasPrefix(basic.Error, "doesn't validate with") {
			continue
		}
		location := basic.InstanceLocation
		if location == "" {
			location = "/"
		}
		out.Fields[location] = append(out.Fields[location], basic.Error)
	}
	if len(out.Fields) == 0 {
		out.Fields["/"] = []string{ve.Message}
	}
	return out
}
