package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-spatial/geom/encoding/geojson"
)

// Metadata is the canonical form of an OpenAerialMap imagery record
type Metadata struct {
	ID               string
	Title            string
	Contact          string
	Provider         string
	Platform         string
	Sensor           *string
	License          *string
	AcquisitionStart time.Time
	AcquisitionEnd   time.Time
	UploadedAt       *time.Time
	Geometry         geojson.Geometry
	Bbox             []float64
	FootprintWKT     string
	ProjectionWKT    string
	GSD              float64
	ImageURL         string
	ImageFileSize    int64
	ThumbnailURL     string
	MetadataURL      string
}

// platforms maps lower-cased platform acronyms to their canonical spelling
var platforms = map[string]string{
	"uav": "UAV",
}

// Sanitize returns a copy of the record with normalized field values:
//   - known platform acronyms are capitalized
//   - spaces in the license are replaced by dashes (SPDX identifiers)
//   - a sensor starting with "unknow" (case insensitive) is unset
//
// Sanitize is idempotent.
func (m Metadata) Sanitize() Metadata {
	if p, ok := platforms[strings.ToLower(m.Platform)]; ok {
		m.Platform = p
	}
	if m.License != nil {
		license := strings.ReplaceAll(*m.License, " ", "-")
		m.License = &license
	}
	if m.Sensor != nil {
		if strings.HasPrefix(strings.ToLower(*m.Sensor), "unknow") {
			m.Sensor = nil
		} else {
			sensor := *m.Sensor
			m.Sensor = &sensor
		}
	}
	if m.Bbox != nil {
		m.Bbox = append([]float64(nil), m.Bbox...)
	}
	return m
}

func (m Metadata) String() string {
	return fmt.Sprintf("OamMetadata(id=%s, title=%s)", m.ID, m.Title)
}

// CatalogNode is a STAC Catalog or Collection document reached while walking a static catalog
type CatalogNode struct {
	Href   string
	Raw    []byte
	Parent *CatalogNode // Node that linked this one. nil for the root of the walk
}

// MaxarItem is an upstream STAC Item with the collection that linked it
type MaxarItem struct {
	Href       string
	Raw        []byte
	Collection *CatalogNode
}

func (i *MaxarItem) String() string {
	return fmt.Sprintf("MaxarItem(href=%s)", i.Href)
}
