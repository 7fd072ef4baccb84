// Package oam is a client of the OpenAerialMap metadata API
package oam

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hotosm/oam-stac-ingester/catalog/entities"
	"github.com/hotosm/oam-stac-ingester/service"
	"github.com/hotosm/oam-stac-ingester/service/log"
	"go.uber.org/zap"
)

// DefaultAPIRoot is the metadata endpoint of OpenAerialMap
const DefaultAPIRoot = "https://api.openaerialmap.org/meta"

// DefaultPageSize is the number of records requested per page by GetAllItems
const DefaultPageSize = 500

// Client of the OAM metadata API
type Client struct {
	apiRoot string
	client  *http.Client
}

type Option func(*Client)

// WithAPIRoot overrides DefaultAPIRoot
func WithAPIRoot(root string) Option {
	return func(c *Client) { c.apiRoot = strings.TrimSuffix(root, "/") }
}

// WithHTTPClient overrides http.DefaultClient
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// New creates a client
func New(opts ...Option) *Client {
	c := &Client{apiRoot: DefaultAPIRoot, client: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIRoot returns the endpoint of the client
func (c *Client) APIRoot() string {
	return c.apiRoot
}

func (c *Client) get(ctx context.Context, url string, v any) error {
	body, err := service.GetBody(ctx, c.client, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("Unmarshal: %w", err)
	}
	return nil
}

// GetCount returns the number of records of the catalog
func (c *Client) GetCount(ctx context.Context) (int, error) {
	resp := struct {
		Meta struct {
			Found int `json:"found"`
		} `json:"meta"`
	}{}
	if err := c.get(ctx, c.apiRoot+"?limit=1", &resp); err != nil {
		return 0, fmt.Errorf("GetCount.%w", err)
	}
	return resp.Meta.Found, nil
}

// GetItem returns the record with the given id
func (c *Client) GetItem(ctx context.Context, id string) (entities.Metadata, error) {
	resp := struct {
		Results json.RawMessage `json:"results"`
	}{}
	if err := c.get(ctx, c.apiRoot+"/"+neturl.PathEscape(id), &resp); err != nil {
		return entities.Metadata{}, fmt.Errorf("GetItem.%w", err)
	}
	m, err := parseRecord(resp.Results)
	if err != nil {
		return entities.Metadata{}, fmt.Errorf("GetItem: %w", err)
	}
	return m, nil
}

// GetItems returns the records of a page (starting at 1), the most recently uploaded first.
// Records that cannot be parsed are logged and skipped, unless raiseOnError.
// If uploadedAfter is not nil, only the records uploaded at or after it are returned.
func (c *Client) GetItems(ctx context.Context, uploadedAfter *time.Time, limit, page int, raiseOnError bool) ([]entities.Metadata, error) {
	items, _, err := c.getPage(ctx, uploadedAfter, limit, page, raiseOnError)
	return items, err
}

// pageInfo tells why records of a page were not returned
type pageInfo struct {
	// records returned by the API
	found int
	// records uploaded before the cutoff
	older int
}

func (c *Client) getPage(ctx context.Context, uploadedAfter *time.Time, limit, page int, raiseOnError bool) ([]entities.Metadata, pageInfo, error) {
	var info pageInfo
	params := neturl.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(page))
	params.Set("order_by", "uploaded_at")
	params.Set("sort", "desc")

	resp := struct {
		Results []json.RawMessage `json:"results"`
	}{}
	if err := c.get(ctx, c.apiRoot+"?"+params.Encode(), &resp); err != nil {
		return nil, info, fmt.Errorf("GetItems.%w", err)
	}

	info.found = len(resp.Results)
	items := make([]entities.Metadata, 0, len(resp.Results))
	for _, raw := range resp.Results {
		m, err := parseRecord(raw)
		if err != nil {
			if raiseOnError {
				return nil, info, fmt.Errorf("GetItems: %w", err)
			}
			var parseErr ErrParse
			id := recordID(raw)
			if errors.As(err, &parseErr) {
				id = parseErr.ID
			}
			log.Logger(ctx).Warn("skipping record", zap.String("id", id), zap.Error(err))
			continue
		}
		if uploadedAfter != nil && (m.UploadedAt == nil || m.UploadedAt.Before(*uploadedAfter)) {
			info.older++
			continue
		}
		items = append(items, m)
	}
	return items, info, nil
}

// GetAllItems iterates over the pages of records until the API returns an empty page,
// or a page whose records are all uploaded before uploadedAfter.
// Every iteration starts again from the first page.
// The sequence stops after the first error.
func (c *Client) GetAllItems(ctx context.Context, uploadedAfter *time.Time, pageSize int) iter.Seq2[entities.Metadata, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return func(yield func(entities.Metadata, error) bool) {
		for page := 1; ; page++ {
			log.Logger(ctx).Sugar().Debugf("[OAM] Search page %d", page)
			items, info, err := c.getPage(ctx, uploadedAfter, pageSize, page, false)
			if err != nil {
				yield(entities.Metadata{}, err)
				return
			}
			if info.found == 0 || (len(items) == 0 && info.older > 0) {
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}
