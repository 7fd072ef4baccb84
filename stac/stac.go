// Package stac defines the STAC documents produced by the ingester
package stac

import (
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/sjson"
)

const Version = "1.0.0"

// Media types
const (
	MediaTypeCOG  = "image/tiff; application=geotiff; profile=cloud-optimized"
	MediaTypePNG  = "image/png"
	MediaTypeJSON = "application/json"
	MediaTypeHTML = "text/html"
)

// Link relations
const (
	RelDerivedFrom = "derived-from"
	RelLicense     = "license"
	RelRoot        = "root"
	RelChild       = "child"
	RelItem        = "item"
	RelParent      = "parent"
)

// Provider roles
const (
	RoleProducer = "producer"
	RoleLicensor = "licensor"
	RoleHost     = "host"
)

// Extension schemas
const (
	ExtensionFile       = "https://stac-extensions.github.io/file/v2.1.0/schema.json"
	ExtensionProjection = "https://stac-extensions.github.io/projection/v2.0.0/schema.json"
	ExtensionAlternate  = "https://stac-extensions.github.io/alternate-assets/v1.2.0/schema.json"
	ExtensionRender     = "https://stac-extensions.github.io/render/v1.0.0/schema.json"
	ExtensionItemAssets = "https://stac-extensions.github.io/item-assets/v1.0.0/schema.json"
	ExtensionOAM        = "https://hotosm.github.io/stactools-hotosm/oam/v0.1.0/schema.json"
)

type Link struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

type Provider struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Asset is a STAC asset. Extension fields (file:size, proj:*, alternate...) are stored in Fields.
type Asset struct {
	Href        string         `json:"href"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type,omitempty"`
	Roles       []string       `json:"roles,omitempty"`
	Fields      map[string]any `json:"-"`
}

var assetMembers = []string{"href", "title", "description", "type", "roles"}

type asset Asset

func (a Asset) MarshalJSON() ([]byte, error) {
	return marshalWithFields(asset(a), a.Fields)
}

func (a *Asset) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, (*asset)(a)); err != nil {
		return err
	}
	var err error
	a.Fields, err = unmarshalFields[any](b, assetMembers)
	return err
}

// Set sets an extension field of the asset
func (a *Asset) Set(key string, value any) {
	if a.Fields == nil {
		a.Fields = map[string]any{}
	}
	a.Fields[key] = value
}

// Item is a STAC Item. Unknown top-level members are preserved in Extra.
type Item struct {
	Type        string            `json:"type"`
	StacVersion string            `json:"stac_version"`
	Extensions  []string          `json:"stac_extensions"`
	ID          string            `json:"id"`
	Geometry    json.RawMessage   `json:"geometry"`
	Bbox        []float64         `json:"bbox,omitempty"`
	Properties  map[string]any    `json:"properties"`
	Links       []Link            `json:"links"`
	Assets      map[string]*Asset `json:"assets"`
	Collection  string            `json:"collection,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var itemMembers = []string{"type", "stac_version", "stac_extensions", "id", "geometry", "bbox", "properties", "links", "assets", "collection"}

type item Item

// NewItem returns an empty Item
func NewItem(id string) *Item {
	return &Item{
		Type:        "Feature",
		StacVersion: Version,
		Extensions:  []string{},
		ID:          id,
		Properties:  map[string]any{},
		Links:       []Link{},
		Assets:      map[string]*Asset{},
	}
}

func (i Item) MarshalJSON() ([]byte, error) {
	if i.Extensions == nil {
		i.Extensions = []string{}
	}
	if i.Links == nil {
		i.Links = []Link{}
	}
	return marshalWithFields(item(i), i.Extra)
}

func (i *Item) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, (*item)(i)); err != nil {
		return err
	}
	var err error
	i.Extra, err = unmarshalFields[json.RawMessage](b, itemMembers)
	return err
}

// AddExtension appends the schema uri to the extensions of the item (once)
func (i *Item) AddExtension(uri string) {
	if !slices.Contains(i.Extensions, uri) {
		i.Extensions = append(i.Extensions, uri)
	}
}

// Clone returns a deep copy of the item
func (i *Item) Clone() (*Item, error) {
	b, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	c := &Item{}
	if err := json.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

type SpatialExtent struct {
	Bbox [][]float64 `json:"bbox"`
}

// TemporalExtent intervals are [start, end] RFC3339 timestamps, nil for an open bound
type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}

type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

type ItemAssetDefinition struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// Render describes how to visualize a set of assets (render extension)
type Render struct {
	Assets []string `json:"assets"`
	Title  string   `json:"title,omitempty"`
}

type Collection struct {
	Type        string                         `json:"type"`
	StacVersion string                         `json:"stac_version"`
	Extensions  []string                       `json:"stac_extensions"`
	ID          string                         `json:"id"`
	Title       string                         `json:"title,omitempty"`
	Description string                         `json:"description"`
	License     string                         `json:"license"`
	Extent      Extent                         `json:"extent"`
	Providers   []Provider                     `json:"providers,omitempty"`
	Links       []Link                         `json:"links"`
	ItemAssets  map[string]ItemAssetDefinition `json:"item_assets,omitempty"`
	Renders     map[string]Render              `json:"renders,omitempty"`
}

// NewCollection returns a collection without extent
func NewCollection(id, title, description, license string) *Collection {
	return &Collection{
		Type:        "Collection",
		StacVersion: Version,
		Extensions:  []string{},
		ID:          id,
		Title:       title,
		Description: description,
		License:     license,
		Links:       []Link{},
	}
}

// AddExtension appends the schema uri to the extensions of the collection (once)
func (c *Collection) AddExtension(uri string) {
	if !slices.Contains(c.Extensions, uri) {
		c.Extensions = append(c.Extensions, uri)
	}
}

// marshalWithFields marshals v and appends the extra top-level members
func marshalWithFields[T any](v any, fields map[string]T) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		raw, err := json.Marshal(fields[k])
		if err != nil {
			return nil, err
		}
		if b, err = sjson.SetRawBytes(b, escapePath(k), raw); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// unmarshalFields returns the members of the object b that are not in known
func unmarshalFields[T any](b []byte, known []string) (map[string]T, error) {
	all := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	var fields map[string]T
	for k, raw := range all {
		if slices.Contains(known, k) {
			continue
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if fields == nil {
			fields = map[string]T{}
		}
		fields[k] = v
	}
	return fields, nil
}

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

func escapePath(key string) string {
	return pathEscaper.Replace(key)
}
