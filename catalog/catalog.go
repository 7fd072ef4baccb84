package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/hotosm/oam-stac-ingester/catalog/entities"
	"github.com/hotosm/oam-stac-ingester/common"
	"github.com/hotosm/oam-stac-ingester/interface/catalog/maxar"
	"github.com/hotosm/oam-stac-ingester/interface/catalog/oam"
	"github.com/hotosm/oam-stac-ingester/interface/stacio"
	"github.com/hotosm/oam-stac-ingester/service/log"
	"github.com/hotosm/oam-stac-ingester/service/raster"
	"github.com/hotosm/oam-stac-ingester/stac"
)

// Catalog is the main class of this package
type Catalog struct {
	OAMClient   *oam.Client
	PageSize    int
	Projections raster.ProjectionReader
	Reader      stacio.Reader
	Maxar       maxar.Config
}

// OAMSource fetches the sanitized OAM records uploaded after a date
type OAMSource struct {
	Client      *oam.Client
	PageSize    int
	Projections raster.ProjectionReader
}

// Fetch returns all the records uploaded at or after "after"
func (s *OAMSource) Fetch(ctx context.Context, after time.Time) ([]entities.Metadata, error) {
	var records []entities.Metadata
	for m, err := range s.Client.GetAllItems(ctx, &after, s.PageSize) {
		if err != nil {
			return nil, fmt.Errorf("OAMSource.Fetch.%w", err)
		}
		records = append(records, m.Sanitize())
	}
	return records, nil
}

// Transform creates the STAC item of the record
func (s *OAMSource) Transform(ctx context.Context, m entities.Metadata) (*stac.Item, error) {
	return CreateOAMItem(ctx, m, s.Projections)
}

// MaxarSource fetches the items of the Maxar events that happened after a date
type MaxarSource struct {
	Reader stacio.Reader
	Config maxar.Config
}

// Fetch returns all the items of the events that happened at or after "after"
func (s *MaxarSource) Fetch(ctx context.Context, after time.Time) ([]*entities.MaxarItem, error) {
	var items []*entities.MaxarItem
	for item, err := range maxar.NewSTACItems(ctx, s.Reader, s.Config, &after) {
		if err != nil {
			return nil, fmt.Errorf("MaxarSource.Fetch.%w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Transform creates the STAC item of the upstream item
func (s *MaxarSource) Transform(ctx context.Context, item *entities.MaxarItem) (*stac.Item, error) {
	return CreateMaxarItem(ctx, item)
}

// OAMSource returns the source of the OAM records
func (c *Catalog) OAMSource() *OAMSource {
	return &OAMSource{Client: c.OAMClient, PageSize: c.PageSize, Projections: c.Projections}
}

// MaxarSource returns the source of the Maxar items
func (c *Catalog) MaxarSource() *MaxarSource {
	return &MaxarSource{Reader: c.Reader, Config: c.Maxar}
}

// Collection creates the collection of the provider (common.ProviderOAM or common.ProviderMaxar)
func (c *Catalog) Collection(ctx context.Context, provider string) (*stac.Collection, error) {
	switch provider {
	case common.ProviderOAM:
		return CreateOAMCollection(), nil
	case common.ProviderMaxar:
		root, err := maxar.RootCatalog(ctx, c.Reader, c.Maxar)
		if err != nil {
			return nil, fmt.Errorf("Collection.%w", err)
		}
		events, err := maxar.Events(ctx, c.Reader, c.Maxar.WithDefaults().EventInfo)
		if err != nil {
			return nil, fmt.Errorf("Collection.%w", err)
		}
		start, end := eventsExtent(events)
		log.Logger(ctx).Sugar().Debugf("%d Maxar events from %v to %v", len(events), start, end)
		return CreateMaxarCollection(root, start, end)
	}
	return nil, common.ErrBadParameter{Msg: fmt.Sprintf("unknown provider %q (%s|%s)", provider, common.ProviderOAM, common.ProviderMaxar)}
}

// eventsExtent returns the dates of the first and the last events (nil if there is no event)
func eventsExtent(events []maxar.Event) (*time.Time, *time.Time) {
	var start, end *time.Time
	for i := range events {
		d := events[i].Date
		if start == nil || d.Before(*start) {
			start = &d
		}
		if end == nil || d.After(*end) {
			end = &d
		}
	}
	return start, end
}

// OAMItem fetches a record of the OAM API and creates its STAC item
func (c *Catalog) OAMItem(ctx context.Context, id string) (*stac.Item, error) {
	m, err := c.OAMClient.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("OAMItem.%w", err)
	}
	return CreateOAMItem(ctx, m.Sanitize(), c.Projections)
}
