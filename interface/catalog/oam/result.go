package oam

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	json "github.com/goccy/go-json"
	"github.com/go-spatial/geom/encoding/geojson"
	"github.com/hotosm/oam-stac-ingester/catalog/entities"
	"github.com/hotosm/oam-stac-ingester/service/geometry"
	"github.com/tidwall/gjson"
)

// ErrParse is returned when a record of the API cannot be parsed
type ErrParse struct {
	ID  string
	Err error
}

func (e ErrParse) Error() string {
	return fmt.Sprintf("cannot parse record %s: %v", e.ID, e.Err)
}

func (e ErrParse) Unwrap() error {
	return e.Err
}

// result is a record of the metadata API
type result struct {
	ID         *string `json:"_id"`
	Title      string  `json:"title"`
	Contact    string  `json:"contact"`
	Provider   string  `json:"provider"`
	Platform   string  `json:"platform"`
	Properties struct {
		Sensor    *string `json:"sensor"`
		License   *string `json:"license"`
		Thumbnail string  `json:"thumbnail"`
	} `json:"properties"`
	AcquisitionStart *string         `json:"acquisition_start"`
	AcquisitionEnd   *string         `json:"acquisition_end"`
	UploadedAt       *string         `json:"uploaded_at"`
	GeoJSON          json.RawMessage `json:"geojson"`
	Bbox             []float64       `json:"bbox"`
	Footprint        string          `json:"footprint"`
	Projection       string          `json:"projection"`
	GSD              float64         `json:"gsd"`
	UUID             string          `json:"uuid"`
	FileSize         int64           `json:"file_size"`
	MetaURI          string          `json:"meta_uri"`
}

func (r result) id() string {
	if r.ID == nil {
		return "<nil>"
	}
	return *r.ID
}

func parseTime(field string, s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, fmt.Errorf("%s is null", field)
	}
	t, err := dateparse.ParseIn(*s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

// recordID returns the _id of a raw record, "<nil>" if it has none
func recordID(raw []byte) string {
	if id := gjson.GetBytes(raw, "_id"); id.Exists() && id.Type != gjson.Null {
		return id.String()
	}
	return "<nil>"
}

// parseRecord decodes a record of the API. Any failure is returned as an ErrParse
func parseRecord(raw []byte) (entities.Metadata, error) {
	var r result
	if err := json.Unmarshal(raw, &r); err != nil {
		return entities.Metadata{}, ErrParse{ID: recordID(raw), Err: err}
	}
	return r.parse()
}

func (r result) parse() (entities.Metadata, error) {
	m, err := r.toMetadata()
	if err != nil {
		return entities.Metadata{}, ErrParse{ID: r.id(), Err: err}
	}
	return m, nil
}

func (r result) toMetadata() (entities.Metadata, error) {
	if r.ID == nil || *r.ID == "" {
		return entities.Metadata{}, fmt.Errorf("_id is null")
	}
	m := entities.Metadata{
		ID:            *r.ID,
		Title:         r.Title,
		Contact:       r.Contact,
		Provider:      r.Provider,
		Platform:      r.Platform,
		Sensor:        r.Properties.Sensor,
		License:       r.Properties.License,
		Bbox:          r.Bbox,
		FootprintWKT:  r.Footprint,
		ProjectionWKT: r.Projection,
		GSD:           r.GSD,
		ImageURL:      r.UUID,
		ImageFileSize: r.FileSize,
		ThumbnailURL:  r.Properties.Thumbnail,
		MetadataURL:   r.MetaURI,
	}
	var err error
	if m.AcquisitionStart, err = parseTime("acquisition_start", r.AcquisitionStart); err != nil {
		return m, err
	}
	if m.AcquisitionEnd, err = parseTime("acquisition_end", r.AcquisitionEnd); err != nil {
		return m, err
	}
	if r.UploadedAt != nil && *r.UploadedAt != "" {
		uploadedAt, err := parseTime("uploaded_at", r.UploadedAt)
		if err != nil {
			return m, err
		}
		m.UploadedAt = &uploadedAt
	}

	if len(r.GeoJSON) == 0 || string(r.GeoJSON) == "null" {
		return m, fmt.Errorf("geojson is null")
	}
	g, err := geometry.UnmarshalGeoJSON(r.GeoJSON)
	if err != nil {
		return m, fmt.Errorf("geojson: %w", err)
	}
	m.Geometry = geojson.Geometry{Geometry: g}
	if len(m.Bbox) == 0 {
		if m.Bbox, err = geometry.Bbox(g); err != nil {
			return m, err
		}
	}
	if m.FootprintWKT == "" {
		if m.FootprintWKT, err = geometry.WKT(g); err != nil {
			return m, err
		}
	}
	return m, nil
}
