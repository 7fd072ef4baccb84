package oam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hotosm/oam-stac-ingester/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawRecord(i int, uploadedAt any) map[string]any {
	return map[string]any{
		"_id":               fmt.Sprintf("5a1f%04d", i),
		"title":             fmt.Sprintf("Image %d", i),
		"contact":           "Jane Doe,jane@example.com",
		"provider":          "Humanitarian OpenStreetMap Team",
		"platform":          "uav",
		"properties":        map[string]any{"sensor": "DJI Phantom 4", "license": "CC-BY 4.0", "thumbnail": "https://oin-hotosm.s3.amazonaws.com/5a1f/0/thumb.png"},
		"acquisition_start": "2017-11-28T00:00:00.000Z",
		"acquisition_end":   "2017-11-28T00:00:00.000Z",
		"uploaded_at":       uploadedAt,
		"geojson":           map[string]any{"type": "Polygon", "coordinates": [][][]float64{{{39.2, -6.8}, {39.3, -6.8}, {39.3, -6.7}, {39.2, -6.7}, {39.2, -6.8}}}},
		"bbox":              []float64{39.2, -6.8, 39.3, -6.7},
		"footprint":         "POLYGON((39.2 -6.8,39.3 -6.8,39.3 -6.7,39.2 -6.7,39.2 -6.8))",
		"projection":        `PROJCS["WGS 84 / UTM zone 37S"]`,
		"gsd":               0.05,
		"uuid":              "https://oin-hotosm.s3.amazonaws.com/5a1f/0/image.tif",
		"file_size":         123456,
		"meta_uri":          "https://oin-hotosm.s3.amazonaws.com/5a1f/0/image_meta.json",
	}
}

// fakeAPI serves records, paged according to the limit & page parameters
type fakeAPI struct {
	records  []map[string]any
	requests atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	if r.URL.Path != "/meta" {
		for _, rec := range f.records {
			if "/meta/"+rec["_id"].(string) == r.URL.Path {
				json.NewEncoder(w).Encode(map[string]any{"results": rec})
				return
			}
		}
		http.NotFound(w, r)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page == 0 {
		page = 1
	}
	start := min((page-1)*limit, len(f.records))
	end := min(page*limit, len(f.records))
	json.NewEncoder(w).Encode(map[string]any{
		"meta":    map[string]any{"found": len(f.records)},
		"results": f.records[start:end],
	})
}

func newTestClient(t *testing.T, records []map[string]any) (*Client, *fakeAPI) {
	api := &fakeAPI{records: records}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(WithAPIRoot(srv.URL+"/meta"), WithHTTPClient(srv.Client())), api
}

func records(n int) []map[string]any {
	var res []map[string]any
	for i := range n {
		res = append(res, rawRecord(i, time.Date(2024, 1, 30-i, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)))
	}
	return res
}

func TestNew(t *testing.T) {
	assert.Equal(t, DefaultAPIRoot, New().APIRoot())
	assert.Equal(t, "http://test.test/test", New(WithAPIRoot("http://test.test/test/")).APIRoot())
}

func TestGetCount(t *testing.T) {
	c, api := newTestClient(t, records(17))
	count, err := c.GetCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 17, count)
	assert.EqualValues(t, 1, api.requests.Load())
}

func TestGetCountHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()
	c := New(WithAPIRoot(srv.URL), WithHTTPClient(srv.Client()))
	_, err := c.GetCount(context.Background())
	var statusErr service.ErrHTTPStatus
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestGetItem(t *testing.T) {
	c, _ := newTestClient(t, records(3))
	m, err := c.GetItem(context.Background(), "5a1f0001")
	require.NoError(t, err)
	assert.Equal(t, "5a1f0001", m.ID)
	assert.Equal(t, "Image 1", m.Title)
	assert.Equal(t, "uav", m.Platform)
	require.NotNil(t, m.License)
	assert.Equal(t, "CC-BY 4.0", *m.License)
	assert.Equal(t, time.Date(2017, 11, 28, 0, 0, 0, 0, time.UTC), m.AcquisitionStart)
	require.NotNil(t, m.UploadedAt)
	assert.Equal(t, time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC), *m.UploadedAt)
	assert.Equal(t, []float64{39.2, -6.8, 39.3, -6.7}, m.Bbox)
	assert.EqualValues(t, 123456, m.ImageFileSize)
	assert.Equal(t, "https://oin-hotosm.s3.amazonaws.com/5a1f/0/thumb.png", m.ThumbnailURL)

	_, err = c.GetItem(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestGetItems(t *testing.T) {
	c, api := newTestClient(t, records(10))
	items, err := c.GetItems(context.Background(), nil, 100, 1, true)
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.EqualValues(t, 1, api.requests.Load())
}

func TestGetItemsParseError(t *testing.T) {
	recs := records(3)
	recs[1]["acquisition_start"] = nil
	c, _ := newTestClient(t, recs)

	items, err := c.GetItems(context.Background(), nil, 10, 1, false)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = c.GetItems(context.Background(), nil, 10, 1, true)
	var parseErr ErrParse
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "5a1f0001", parseErr.ID)
}

func TestGetItemsTypeMismatch(t *testing.T) {
	for _, field := range []struct {
		key   string
		value any
	}{
		{"gsd", "0.05"},
		{"file_size", 1.5},
		{"properties", "x"},
	} {
		t.Run(field.key, func(t *testing.T) {
			recs := records(3)
			recs[1][field.key] = field.value
			c, _ := newTestClient(t, recs)

			items, err := c.GetItems(context.Background(), nil, 10, 1, false)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "5a1f0000", items[0].ID)
			assert.Equal(t, "5a1f0002", items[1].ID)

			_, err = c.GetItems(context.Background(), nil, 10, 1, true)
			var parseErr ErrParse
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, "5a1f0001", parseErr.ID)
		})
	}
}

func TestGetAllItemsSkipsTypeMismatch(t *testing.T) {
	recs := records(4)
	recs[2]["gsd"] = "0.05"
	c, _ := newTestClient(t, recs)
	var ids []string
	for m, err := range c.GetAllItems(context.Background(), nil, 2) {
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"5a1f0000", "5a1f0001", "5a1f0003"}, ids)
}

func TestGetAllItemsPageOfInvalidRecords(t *testing.T) {
	recs := records(5)
	recs[2]["gsd"] = "0.05"
	recs[3]["_id"] = nil
	c, api := newTestClient(t, recs)
	var ids []string
	for m, err := range c.GetAllItems(context.Background(), nil, 2) {
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"5a1f0000", "5a1f0001", "5a1f0004"}, ids)
	assert.EqualValues(t, 4, api.requests.Load())
}

func TestGetAllItemsStopsAtCutoff(t *testing.T) {
	c, api := newTestClient(t, records(6))
	cutoff := time.Date(2024, 1, 28, 0, 0, 0, 0, time.UTC)
	var ids []string
	for m, err := range c.GetAllItems(context.Background(), &cutoff, 2) {
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"5a1f0000", "5a1f0001", "5a1f0002"}, ids)
	// the third page only holds older records
	assert.EqualValues(t, 3, api.requests.Load())
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "abc", recordID([]byte(`{"_id":"abc","gsd":"x"}`)))
	assert.Equal(t, "<nil>", recordID([]byte(`{"_id":null}`)))
	assert.Equal(t, "<nil>", recordID([]byte(`not json`)))
}

func TestGetItemsBboxFromGeometry(t *testing.T) {
	recs := records(1)
	delete(recs[0], "bbox")
	c, _ := newTestClient(t, recs)
	items, err := c.GetItems(context.Background(), nil, 10, 1, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.InDeltaSlice(t, []float64{39.2, -6.8, 39.3, -6.7}, items[0].Bbox, 1e-9)
}

func TestGetItemsFeatureGeometry(t *testing.T) {
	recs := records(1)
	recs[0]["geojson"] = map[string]any{"type": "Feature", "properties": map[string]any{}, "geometry": recs[0]["geojson"]}
	delete(recs[0], "footprint")
	c, _ := newTestClient(t, recs)
	items, err := c.GetItems(context.Background(), nil, 10, 1, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].FootprintWKT, "POLYGON")
	doc, err := json.Marshal(items[0].Geometry)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"type":"Polygon"`)
}

func TestGetItemsUploadedAfter(t *testing.T) {
	recs := records(6)
	recs[2]["uploaded_at"] = nil
	recs[4]["uploaded_at"] = ""
	c, _ := newTestClient(t, recs)

	cutoff := time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC)
	items, err := c.GetItems(context.Background(), &cutoff, 10, 1, true)
	require.NoError(t, err)
	var ids []string
	for _, item := range items {
		require.NotNil(t, item.UploadedAt, item.ID)
		assert.False(t, item.UploadedAt.Before(cutoff), item.ID)
		ids = append(ids, item.ID)
	}
	// 5a1f0003 was uploaded exactly at the cutoff
	assert.Equal(t, []string{"5a1f0000", "5a1f0001", "5a1f0003"}, ids)
}

func TestGetAllItems(t *testing.T) {
	const n = 10
	for _, pageSize := range []int{2, 3, 10} {
		c, api := newTestClient(t, records(n))
		count := 0
		for item, err := range c.GetAllItems(context.Background(), nil, pageSize) {
			require.NoError(t, err)
			assert.NotEmpty(t, item.ID)
			count++
		}
		assert.Equal(t, n, count, "page size %d", pageSize)
		expectedRequests := (n+pageSize-1)/pageSize + 1
		assert.EqualValues(t, expectedRequests, api.requests.Load(), "page size %d", pageSize)

		// Restart from the first page
		count = 0
		for range c.GetAllItems(context.Background(), nil, pageSize) {
			count++
		}
		assert.Equal(t, n, count)
	}
}

func TestGetAllItemsStopsOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()
	c := New(WithAPIRoot(srv.URL), WithHTTPClient(srv.Client()))
	var errs []error
	for _, err := range c.GetAllItems(context.Background(), nil, 10) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Error(t, errs[0])
}
