package stac

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/hotosm/oam-stac-ingester/service"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaItem       = "https://schemas.stacspec.org/v1.0.0/item-spec/json-schema/item.json"
	schemaCollection = "https://schemas.stacspec.org/v1.0.0/collection-spec/json-schema/collection.json"
)

// embedded schema files by $id
var schemaFiles = map[string]string{
	schemaItem:       "item.json",
	schemaCollection: "collection.json",
	ExtensionOAM:     "oam.json",
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.AssertFormat = true
		for id, file := range schemaFiles {
			b, err := schemaFS.ReadFile(path.Join("schemas", file))
			if err != nil {
				schemasErr = fmt.Errorf("compileSchemas.ReadFile(%s): %w", file, err)
				return
			}
			if err := c.AddResource(id, bytes.NewReader(b)); err != nil {
				schemasErr = fmt.Errorf("compileSchemas.AddResource(%s): %w", file, err)
				return
			}
		}
		schemas = map[string]*jsonschema.Schema{}
		for id := range schemaFiles {
			s, err := c.Compile(id)
			if err != nil {
				schemasErr = fmt.Errorf("compileSchemas.Compile(%s): %w", id, err)
				return
			}
			schemas[id] = s
		}
	})
	return schemas, schemasErr
}

// ErrValidation is returned when a STAC document does not comply with one of its schemas
type ErrValidation struct {
	ID     string
	Schema string
	Err    error
}

func (e ErrValidation) Error() string {
	return fmt.Sprintf("%s does not validate against %s: %v", e.ID, e.Schema, e.Err)
}

func (e ErrValidation) Unwrap() error {
	return e.Err
}

// ValidateItem validates the item against the core item schema and the schemas
// of its extensions that are known to the ingester. Other extensions are not checked.
func ValidateItem(i *Item) error {
	return validate(i.ID, i, schemaItem, i.Extensions)
}

// ValidateCollection validates the collection against the core collection schema
func ValidateCollection(c *Collection) error {
	return validate(c.ID, c, schemaCollection, c.Extensions)
}

func validate(id string, doc any, core string, extensions []string) error {
	compiled, err := compileSchemas()
	if err != nil {
		// no document can be validated
		return service.MakeFatal(err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("validate.Marshal: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("validate.Unmarshal: %w", err)
	}
	for _, uri := range append([]string{core}, extensions...) {
		s, ok := compiled[uri]
		if !ok {
			continue
		}
		if err := s.Validate(v); err != nil {
			return ErrValidation{ID: id, Schema: uri, Err: err}
		}
	}
	return nil
}
