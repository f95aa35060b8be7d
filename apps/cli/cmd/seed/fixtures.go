package seed

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/photohub/photohub-saas/platform/go/payload"
)

// SchemaName is the JSON Schema every fixture file must satisfy.
const SchemaName = "seed.schema.json"

// Fixtures is the decoded content of a seed file.
type Fixtures struct {
	Photographers []PhotographerFixture `yaml:"photographers"`
}

type PhotographerFixture struct {
	ID          uuid.UUID       `yaml:"id"`
	Email       string          `yaml:"email"`
	FirstName   string          `yaml:"firstName"`
	LastName    string          `yaml:"lastName"`
	PhoneNumber string          `yaml:"phoneNumber"`
	Clients     []ClientFixture `yaml:"clients"`
	Studios     []StudioFixture `yaml:"studios"`
	Events      []EventFixture  `yaml:"events"`
}

type ClientFixture struct {
	FirstName   string `yaml:"firstName"`
	LastName    string `yaml:"lastName"`
	Email       string `yaml:"email"`
	PhoneNumber string `yaml:"phoneNumber"`
	Address     string `yaml:"address"`
	Notes       string `yaml:"notes"`
	BirthDate   string `yaml:"birthDate"`
}

type StudioFixture struct {
	Name         string `yaml:"name"`
	LocationType string `yaml:"locationType"`
	City         string `yaml:"city"`
	District     string `yaml:"district"`
	Street       string `yaml:"street"`
	Building     string `yaml:"building"`
	Website      string `yaml:"website"`
	Description  string `yaml:"description"`
	IsPublic     bool   `yaml:"isPublic"`
}

// EventFixture references its client by email and its studio by name.
type EventFixture struct {
	Title       string `yaml:"title"`
	Category    string `yaml:"category"`
	Start       string `yaml:"start"`
	End         string `yaml:"end"`
	AllDay      bool   `yaml:"allDay"`
	ClientEmail string `yaml:"clientEmail"`
	StudioName  string `yaml:"studioName"`
	Color       string `yaml:"color"`
	Description string `yaml:"description"`
}

// ParseFixtures validates raw YAML against the seed schema and decodes it.
func ParseFixtures(raw []byte, validator *payload.Validator) (Fixtures, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	doc, err := plainDocument(&root)
	if err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := validator.ValidateDocument(SchemaName, doc); err != nil {
		return Fixtures{}, err
	}

	var out Fixtures
	if err := root.Decode(&out); err != nil {
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return out, nil
}

// plainDocument converts a YAML tree into maps, slices and scalars for schema validation.
// Timestamps keep the text they were written with so date and date-time formats apply as authored.
func plainDocument(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return plainDocument(n.Content[0])
	case yaml.AliasNode:
		return plainDocument(n.Alias)
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := plainDocument(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[n.Content[i].Value] = v
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := plainDocument(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}
