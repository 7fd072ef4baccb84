// Package geometry decodes the footprints of the upstream records
package geometry

import (
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
	"github.com/go-spatial/geom/encoding/wkt"
)

// UnmarshalGeoJSON decodes a geojson geometry.
// A Feature is replaced by its geometry and the polygons of a FeatureCollection are merged into a multipolygon
func UnmarshalGeoJSON(data []byte) (geom.Geometry, error) {
	var g geojson.Geometry
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	switch geo := g.Geometry.(type) {
	case geojson.FeatureCollection:
		var mp geom.MultiPolygon
		for _, f := range geo.Features {
			mergeMultiPolygons(f.Geometry.Geometry, &mp)
		}
		return mp, nil
	case geojson.Feature:
		return geo.Geometry.Geometry, nil
	case nil:
		return nil, fmt.Errorf("empty geometry")
	default:
		return g.Geometry, nil
	}
}

func mergeMultiPolygons(g geom.Geometry, mp *geom.MultiPolygon) {
	switch g := g.(type) {
	case geom.MultiPolygon:
		*mp = append(*mp, g.Polygons()...)
	case geom.Polygon:
		*mp = append(*mp, g.LinearRings())
	case geom.Collection:
		for _, g := range g.Geometries() {
			mergeMultiPolygons(g, mp)
		}
	}
}

// Bbox returns [minx, miny, maxx, maxy]
func Bbox(g geom.Geometry) ([]float64, error) {
	extent, err := geom.NewExtentFromGeometry(g)
	if err != nil {
		return nil, fmt.Errorf("Bbox: %w", err)
	}
	return extent[:], nil
}

// WKT encodes the geometry
func WKT(g geom.Geometry) (string, error) {
	s, err := wkt.EncodeString(g)
	if err != nil {
		return "", fmt.Errorf("WKT: %w", err)
	}
	return s, nil
}
