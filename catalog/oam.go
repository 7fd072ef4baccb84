package catalog

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hotosm/oam-stac-ingester/catalog/entities"
	"github.com/hotosm/oam-stac-ingester/common"
	"github.com/hotosm/oam-stac-ingester/service/raster"
	"github.com/hotosm/oam-stac-ingester/stac"
)

const (
	oamCollectionTitle       = "OpenAerialMap (OAM) STAC Catalog"
	oamCollectionDescription = "OpenAerialMap (OAM) is a set of tools for searching, sharing, and using openly " +
		"licensed satellite and unmanned aerial vehicle (UAV) imagery."
	oamCollectionLicense = "CC-BY-4.0"
)

// oamStart is the beginning of the temporal extent of the OAM collection
var oamStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// CreateOAMCollection creates the collection of the OpenAerialMap items
func CreateOAMCollection() *stac.Collection {
	c := stac.NewCollection(common.CollectionOAM, oamCollectionTitle, oamCollectionDescription, oamCollectionLicense)
	start := formatTime(oamStart)
	c.Extent = stac.Extent{
		Spatial:  stac.SpatialExtent{Bbox: [][]float64{{-180, -90, 180, 90}}},
		Temporal: stac.TemporalExtent{Interval: [][]*string{{&start, nil}}},
	}
	c.Providers = []stac.Provider{{
		Name:  "OpenAerialMap",
		URL:   "https://openaerialmap.org/",
		Roles: []string{stac.RoleHost},
	}}
	c.Links = append(c.Links, stac.Link{
		Rel:   stac.RelLicense,
		Href:  "https://creativecommons.org/licenses/by/4.0/",
		Type:  stac.MediaTypeHTML,
		Title: "CC-BY-4.0 license",
	})
	c.ItemAssets = map[string]stac.ItemAssetDefinition{
		"image": {
			Title:       "Visual image",
			Description: "Visual imagery data acquired from satellite or unmanned aerial vehicle (UAV)",
			Type:        stac.MediaTypeCOG,
			Roles:       []string{"data"},
		},
		"thumbnail": {
			Title:       "Thumbnail",
			Description: "Thumbnail version of the image asset for browsing",
			Type:        stac.MediaTypePNG,
			Roles:       []string{"thumbnail"},
		},
	}
	c.AddExtension(stac.ExtensionItemAssets)
	c.Renders = map[string]stac.Render{
		"visual": {Assets: []string{"image"}, Title: "Visual image"},
	}
	c.AddExtension(stac.ExtensionRender)
	return c
}

// CreateOAMItem creates the STAC item of an OAM record.
// The projection of the image is read from the raster itself: if it cannot be opened,
// a raster.ErrAssetNotFound is returned.
func CreateOAMItem(ctx context.Context, m entities.Metadata, projections raster.ProjectionReader) (*stac.Item, error) {
	item := stac.NewItem(m.ID)

	var err error
	if item.Geometry, err = json.Marshal(m.Geometry); err != nil {
		return nil, fmt.Errorf("CreateOAMItem.Geometry: %w", err)
	}
	item.Bbox = m.Bbox

	// Either an instant or an interval
	if m.AcquisitionStart.Equal(m.AcquisitionEnd) {
		item.Properties["datetime"] = formatTime(m.AcquisitionStart)
	} else {
		item.Properties["datetime"] = nil
		item.Properties["start_datetime"] = formatTime(m.AcquisitionStart)
		item.Properties["end_datetime"] = formatTime(m.AcquisitionEnd)
	}
	item.Properties["title"] = m.Title
	item.Properties["provider"] = m.Provider
	item.Properties["platform"] = m.Platform
	item.Properties["gsd"] = m.GSD
	item.Properties["providers"] = []stac.Provider{{
		Name:        m.Provider,
		Description: m.Contact,
		Roles:       []string{stac.RoleProducer, stac.RoleLicensor},
	}}
	item.Properties["oam:producer_name"] = m.Provider
	item.Properties["oam:platform_type"] = m.Platform
	if m.License != nil {
		item.Properties["license"] = *m.License
	}
	if m.Sensor != nil {
		item.Properties["instruments"] = []string{*m.Sensor}
	}
	if m.UploadedAt != nil {
		item.Properties["oam:uploaded_at"] = formatTime(*m.UploadedAt)
	}

	image := &stac.Asset{
		Href:  m.ImageURL,
		Title: m.Title,
		Type:  stac.MediaTypeCOG,
		Roles: []string{"data"},
	}
	image.Set("file:size", m.ImageFileSize)
	item.AddExtension(stac.ExtensionFile)

	proj, err := projections.ReadProjection(ctx, m.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("CreateOAMItem.%w", err)
	}
	for k, v := range proj.Fields() {
		image.Set(k, v)
	}
	item.AddExtension(stac.ExtensionProjection)

	item.Assets["image"] = image
	item.Assets["thumbnail"] = &stac.Asset{
		Href:  m.ThumbnailURL,
		Title: "thumbnail",
		Type:  stac.MediaTypePNG,
		Roles: []string{"thumbnail"},
	}
	item.Assets["metadata"] = &stac.Asset{
		Href:  m.MetadataURL,
		Title: "metadata",
		Type:  stac.MediaTypeJSON,
		Roles: []string{"metadata"},
	}

	item.AddExtension(stac.AddAlternateAssets(item.Assets))
	item.AddExtension(stac.ExtensionOAM)

	if err := stac.ValidateItem(item); err != nil {
		return nil, fmt.Errorf("CreateOAMItem.%w", err)
	}
	return item, nil
}
