// Package raster reads the projection metadata of a raster (projection extension)
package raster

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/hotosm/oam-stac-ingester/service"
	"github.com/hotosm/oam-stac-ingester/service/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// ErrAssetNotFound is returned when the raster cannot be opened
type ErrAssetNotFound struct {
	Href string
}

func (e ErrAssetNotFound) Error() string {
	return "Asset does not exist: " + e.Href
}

// Projection is the projection information of a raster
type Projection struct {
	Code      string // Authority:code (e.g. EPSG:32632). Empty if the CRS has no authority
	WKT2      string
	Geometry  orb.Polygon // Footprint in the CRS of the raster
	Bbox      orb.Bound   // Bounds in the CRS of the raster
	Shape     [2]int      // Number of rows, number of columns
	Transform [6]float64  // Affine transform (a, b, c, d, e, f): x = a*col + b*row + c, y = d*col + e*row + f
}

// Fields returns the fields of the projection extension
func (p Projection) Fields() map[string]any {
	fields := map[string]any{
		"proj:geometry":  geojson.NewGeometry(p.Geometry),
		"proj:bbox":      []float64{p.Bbox.Min[0], p.Bbox.Min[1], p.Bbox.Max[0], p.Bbox.Max[1]},
		"proj:shape":     []int{p.Shape[0], p.Shape[1]},
		"proj:transform": p.Transform[:],
	}
	if p.Code != "" {
		fields["proj:code"] = p.Code
	} else {
		fields["proj:code"] = nil
	}
	if p.WKT2 != "" {
		fields["proj:wkt2"] = p.WKT2
	}
	return fields
}

// ProjectionReader reads the projection of the raster located at href
type ProjectionReader interface {
	ReadProjection(ctx context.Context, href string) (Projection, error)
}

// GDALReader reads rasters with GDAL.
// http(s), s3 and gs hrefs are read through the GDAL virtual file systems.
type GDALReader struct{}

var registerOnce sync.Once

// NewGDALReader registers the GDAL drivers
func NewGDALReader() *GDALReader {
	registerOnce.Do(godal.RegisterAll)
	return &GDALReader{}
}

// ReadProjection implements ProjectionReader
func (r *GDALReader) ReadProjection(ctx context.Context, href string) (Projection, error) {
	if err := ctx.Err(); err != nil {
		return Projection{}, service.MakeFatal(fmt.Errorf("ReadProjection: %w", err))
	}
	ds, err := godal.Open(gdalPath(href))
	if err != nil {
		log.Logger(ctx).Debug("cannot open raster", zap.String("href", href), zap.Error(err))
		return Projection{}, ErrAssetNotFound{Href: href}
	}
	defer ds.Close()

	st := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return Projection{}, fmt.Errorf("ReadProjection.GeoTransform(%s): %w", href, err)
	}

	p := Projection{
		Shape:     [2]int{st.SizeY, st.SizeX},
		Transform: [6]float64{gt[1], gt[2], gt[0], gt[4], gt[5], gt[3]},
	}
	if sr := ds.SpatialRef(); sr != nil {
		defer sr.Close()
		if name, code := sr.AuthorityName(""), sr.AuthorityCode(""); name != "" && code != "" {
			p.Code = name + ":" + code
		}
		if p.WKT2, err = sr.WKT(); err != nil {
			return Projection{}, fmt.Errorf("ReadProjection.WKT(%s): %w", href, err)
		}
	}
	p.Geometry = footprint(p.Transform, st.SizeX, st.SizeY)
	p.Bbox = p.Geometry.Bound()
	return p, nil
}

// footprint returns the polygon of the corners of a width x height raster
func footprint(t [6]float64, width, height int) orb.Polygon {
	pixel := func(col, row int) orb.Point {
		c, r := float64(col), float64(row)
		return orb.Point{t[0]*c + t[1]*r + t[2], t[3]*c + t[4]*r + t[5]}
	}
	ring := orb.Ring{pixel(0, 0), pixel(0, height), pixel(width, height), pixel(width, 0), pixel(0, 0)}
	return orb.Polygon{ring}
}

// gdalPath converts an href to a path GDAL can open
func gdalPath(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	switch u.Scheme {
	case "http", "https":
		return "/vsicurl/" + href
	case "s3":
		return "/vsis3/" + u.Host + u.Path
	case "gs":
		return "/vsigs/" + u.Host + u.Path
	case "file":
		return u.Path
	}
	return strings.TrimPrefix(href, "file://")
}
