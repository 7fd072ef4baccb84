package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hotosm/oam-stac-ingester/catalog/entities"
	"github.com/hotosm/oam-stac-ingester/common"
	"github.com/hotosm/oam-stac-ingester/interface/stacio"
	"github.com/hotosm/oam-stac-ingester/stac"
	"github.com/tidwall/gjson"
)

const (
	maxarCollectionDescription = "Maxar Open Data Catalog, formatted for Humanitarian OpenStreetMap " +
		"Team's OpenAerialMap project"
	maxarVisualDescription = "Imagery data formatted for visualization (RGB)"
)

// ErrMissingParent is returned when the collection of a Maxar item or the event of this collection is unknown
type ErrMissingParent struct {
	ItemID string
}

func (e ErrMissingParent) Error() string {
	return "Cannot get parent collection for Item=" + e.ItemID
}

// CreateMaxarCollection creates the collection of the Maxar items from the root catalog of the bucket.
// start and end define the temporal extent (nil for an open interval).
func CreateMaxarCollection(root *entities.CatalogNode, start, end *time.Time) (*stac.Collection, error) {
	license := gjson.GetBytes(root.Raw, "license").String()
	if license == "" {
		return nil, fmt.Errorf("CreateMaxarCollection: no license in %s", root.Href)
	}
	c := stac.NewCollection(common.CollectionMaxar, gjson.GetBytes(root.Raw, "description").String(), maxarCollectionDescription, license)

	var interval []*string
	for _, t := range []*time.Time{start, end} {
		if t == nil {
			interval = append(interval, nil)
			continue
		}
		s := formatTime(*t)
		interval = append(interval, &s)
	}
	c.Extent = stac.Extent{
		Spatial:  stac.SpatialExtent{Bbox: [][]float64{{-180, -90, 180, 90}}},
		Temporal: stac.TemporalExtent{Interval: [][]*string{interval}},
	}
	c.Providers = []stac.Provider{
		{
			Name:  "Maxar",
			URL:   "https://www.maxar.com/open-data",
			Roles: []string{stac.RoleLicensor, stac.RoleProducer},
		},
		{
			Name:  "Amazon Web Services (AWS)",
			URL:   "https://registry.opendata.aws/maxar-open-data/",
			Roles: []string{stac.RoleHost},
		},
	}
	if root.Href != "" {
		c.Links = append(c.Links, stac.Link{Rel: stac.RelDerivedFrom, Href: root.Href, Type: stac.MediaTypeJSON})
	}
	c.ItemAssets = map[string]stac.ItemAssetDefinition{
		"visual": {
			Title:       "Visual image",
			Description: maxarVisualDescription,
			Type:        stac.MediaTypeCOG,
			Roles:       []string{"data"},
		},
	}
	c.AddExtension(stac.ExtensionItemAssets)
	c.Renders = map[string]stac.Render{
		"visual": {Assets: []string{"visual"}, Title: maxarVisualDescription},
	}
	c.AddExtension(stac.ExtensionRender)

	if err := stac.ValidateCollection(c); err != nil {
		return nil, fmt.Errorf("CreateMaxarCollection.%w", err)
	}
	return c, nil
}

// CreateMaxarItem rewrites an item of the Maxar catalog.
// Every member of the upstream item is kept, except the collection and the links.
func CreateMaxarItem(ctx context.Context, m *entities.MaxarItem) (*stac.Item, error) {
	upstream := &stac.Item{}
	if err := json.Unmarshal(m.Raw, upstream); err != nil {
		return nil, fmt.Errorf("CreateMaxarItem.Unmarshal(%s): %w", m.Href, err)
	}
	item, err := upstream.Clone()
	if err != nil {
		return nil, fmt.Errorf("CreateMaxarItem.Clone: %w", err)
	}
	item.Collection = ""
	item.ID = strings.ReplaceAll(upstream.ID, "/", "-")

	// The item belongs to a tile collection, whose parent is the event
	if m.Collection == nil || m.Collection.Parent == nil {
		return nil, ErrMissingParent{ItemID: upstream.ID}
	}
	eventTitle := gjson.GetBytes(m.Collection.Parent.Raw, "title").String()

	for key, asset := range item.Assets {
		if asset.Href, err = stacio.Resolve(m.Href, asset.Href); err != nil {
			return nil, fmt.Errorf("CreateMaxarItem.asset[%s]: %w", key, err)
		}
	}

	if item.Properties == nil {
		item.Properties = map[string]any{}
	}
	item.Properties["oam:producer_name"] = "Maxar"
	item.Properties["oam:platform_type"] = "satellite"

	suffix, ok := upstream.Properties["grid:code"]
	if !ok {
		if suffix, ok = upstream.Properties["catalog_id"]; !ok {
			return nil, fmt.Errorf("CreateMaxarItem: %s has neither grid:code nor catalog_id", upstream.ID)
		}
	}
	item.Properties["title"] = fmt.Sprintf("%s - %v", eventTitle, suffix)

	item.Links = []stac.Link{{Rel: stac.RelDerivedFrom, Href: m.Href, Type: stac.MediaTypeJSON}}

	item.AddExtension(stac.AddAlternateAssets(item.Assets))
	item.AddExtension(stac.ExtensionOAM)
	return item, nil
}
