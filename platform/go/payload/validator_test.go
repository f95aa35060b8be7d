package payload

import (
	"errors"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

const eventSchema = `{
  "type": "object",
  "required": ["title"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "allDay": {"type": "boolean"}
  }
}`

func newTestValidator() *Validator {
	return NewValidator(fstest.MapFS{
		"event.schema.json": &fstest.MapFile{Data: []byte(eventSchema)},
	})
}

func TestValidateAcceptsValidPayload(t *testing.T) {
	v := newTestValidator()
	require.NoError(t, v.Validate("event.schema.json", []byte(`{"title":"Shoot","allDay":true}`)))
}

func TestValidateReportsFields(t *testing.T) {
	v := newTestValidator()

	err := v.Validate("event.schema.json", []byte(`{"title":"","allDay":"yes"}`))
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Contains(t, ve.Fields, "/title")
	require.Contains(t, ve.Fields, "/allDay")
	require.Contains(t, ve.Error(), "event.schema.json")
}

func TestValidateRejectsEmptyAndMalformed(t *testing.T) {
	v := newTestValidator()
	require.Error(t, v.Validate("event.schema.json", nil))
	require.Error(t, v.Validate("event.schema.json", []byte(`{`)))
	require.Error(t, v.Validate("missing.schema.json", []byte(`{}`)))
}

func TestValidateDocumentFromYAMLShapes(t *testing.T) {
	v := newTestValidator()
	doc := map[string]any{"title": "Post", "allDay": false}
	require.NoError(t, v.ValidateDocument("event.schema.json", doc))
}

func TestCompiledSchemasAreCached(t *testing.T) {
	v := newTestValidator()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = v.Validate("event.schema.json", []byte(`{"title":"x"}`))
		}()
	}
	wg.Wait()

	v.mu.RLock()
	defer v.mu.RUnlock()
	require.Len(t, v.cache, 1)
}
