// Package maxar walks the static STAC catalog of the Maxar Open Data program
package maxar

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hotosm/oam-stac-ingester/catalog/entities"
	"github.com/hotosm/oam-stac-ingester/interface/stacio"
	"github.com/hotosm/oam-stac-ingester/service/log"
	"github.com/hotosm/oam-stac-ingester/stac"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

const (
	Root      = "https://maxar-opendata.s3.amazonaws.com/events/"
	EventInfo = "https://maxar-opendata.s3.amazonaws.com/event_info.json"
)

// Config locates the catalog. Zero values are replaced by Root and EventInfo
type Config struct {
	Root      string
	EventInfo string
}

// WithDefaults replaces the zero values by Root and EventInfo
func (c Config) WithDefaults() Config {
	if c.Root == "" {
		c.Root = Root
	}
	if !strings.HasSuffix(c.Root, "/") {
		c.Root += "/"
	}
	if c.EventInfo == "" {
		c.EventInfo = EventInfo
	}
	return c
}

// Event is an entry of the event index
type Event struct {
	Date      time.Time
	Directory string
}

// Events reads the event index
func Events(ctx context.Context, reader stacio.Reader, eventInfo string) ([]Event, error) {
	b, err := reader.Read(ctx, eventInfo)
	if err != nil {
		return nil, fmt.Errorf("Events.Read: %w", err)
	}
	if !gjson.ValidBytes(b) {
		return nil, fmt.Errorf("Events: invalid json in %s", eventInfo)
	}
	var events []Event
	for _, e := range gjson.ParseBytes(b).Array() {
		date, err := parseDate(e.Get("date").String())
		if err != nil {
			return nil, fmt.Errorf("Events: %w", err)
		}
		dir := e.Get("s3_directory").String()
		if dir == "" {
			return nil, fmt.Errorf("Events: missing s3_directory in %s", e.Raw)
		}
		events = append(events, Event{Date: date, Directory: dir})
	}
	return events, nil
}

func parseDate(s string) (time.Time, error) {
	if d, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return d, nil
	}
	d, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid event date %q: %w", s, err)
	}
	return d, nil
}

// readNode reads a catalog or collection and removes its root links
func readNode(ctx context.Context, reader stacio.Reader, href string, parent *entities.CatalogNode) (*entities.CatalogNode, error) {
	b, err := reader.Read(ctx, href)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", href, err)
	}
	if !gjson.ValidBytes(b) {
		return nil, fmt.Errorf("read %s: invalid json", href)
	}
	if b, err = removeLinks(b, stac.RelRoot); err != nil {
		return nil, fmt.Errorf("read %s: %w", href, err)
	}
	return &entities.CatalogNode{Href: href, Raw: b, Parent: parent}, nil
}

// removeLinks removes the links having the relation rel from the document
func removeLinks(doc []byte, rel string) ([]byte, error) {
	links := gjson.GetBytes(doc, "links")
	if !links.Exists() {
		return doc, nil
	}
	kept := []string{}
	for _, l := range links.Array() {
		if l.Get("rel").String() != rel {
			kept = append(kept, l.Raw)
		}
	}
	return sjson.SetRawBytes(doc, "links", []byte("["+strings.Join(kept, ",")+"]"))
}

// RootCatalog reads the catalog.json at the root of the bucket
func RootCatalog(ctx context.Context, reader stacio.Reader, c Config) (*entities.CatalogNode, error) {
	c = c.WithDefaults()
	node, err := readNode(ctx, reader, c.Root+"catalog.json", nil)
	if err != nil {
		return nil, fmt.Errorf("RootCatalog.%w", err)
	}
	return node, nil
}

// NewSTACItems yields the items of the events that happened at or after the date "after" (all the events if nil).
// The date of the event is used, not the date of the items.
// The sequence stops on the first error.
func NewSTACItems(ctx context.Context, reader stacio.Reader, c Config, after *time.Time) iter.Seq2[*entities.MaxarItem, error] {
	c = c.WithDefaults()
	return func(yield func(*entities.MaxarItem, error) bool) {
		events, err := Events(ctx, reader, c.EventInfo)
		if err != nil {
			yield(nil, fmt.Errorf("NewSTACItems.%w", err))
			return
		}
		parents := map[string]*entities.CatalogNode{}
		for _, event := range events {
			if after != nil && event.Date.Before(*after) {
				continue
			}
			href, err := stacio.Resolve(c.Root, event.Directory+"/collection.json")
			if err != nil {
				yield(nil, fmt.Errorf("NewSTACItems: %w", err))
				return
			}
			log.Logger(ctx).Debug("walking event", zap.String("event", event.Directory), zap.Time("date", event.Date))
			node, err := readNode(ctx, reader, href, nil)
			if err != nil {
				yield(nil, fmt.Errorf("NewSTACItems.%w", err))
				return
			}
			if node.Parent, err = parentNode(ctx, reader, node, parents); err != nil {
				yield(nil, fmt.Errorf("NewSTACItems.%w", err))
				return
			}
			w := walker{reader: reader, visited: map[string]bool{href: true}}
			if !w.walk(ctx, node, yield) {
				return
			}
		}
	}
}

// parentNode reads the document referenced by the parent link of node (nil if there is none).
// The documents already read are taken from cache.
func parentNode(ctx context.Context, reader stacio.Reader, node *entities.CatalogNode, cache map[string]*entities.CatalogNode) (*entities.CatalogNode, error) {
	var link gjson.Result
	for _, l := range gjson.GetBytes(node.Raw, "links").Array() {
		if l.Get("rel").String() == stac.RelParent {
			link = l
			break
		}
	}
	if !link.Exists() {
		return nil, nil
	}
	href, err := stacio.Resolve(node.Href, link.Get("href").String())
	if err != nil {
		return nil, fmt.Errorf("parentNode: %w", err)
	}
	if parent, ok := cache[href]; ok {
		return parent, nil
	}
	parent, err := readNode(ctx, reader, href, nil)
	if err != nil {
		return nil, fmt.Errorf("parentNode.%w", err)
	}
	cache[href] = parent
	return parent, nil
}

type walker struct {
	reader  stacio.Reader
	visited map[string]bool
}

// walk yields the items of node and its children recursively. It returns false if the iteration must stop.
func (w *walker) walk(ctx context.Context, node *entities.CatalogNode, yield func(*entities.MaxarItem, error) bool) bool {
	for _, l := range gjson.GetBytes(node.Raw, "links").Array() {
		rel := l.Get("rel").String()
		if rel != stac.RelItem && rel != stac.RelChild {
			continue
		}
		href, err := stacio.Resolve(node.Href, l.Get("href").String())
		if err != nil {
			yield(nil, fmt.Errorf("walk: %w", err))
			return false
		}
		if w.visited[href] {
			continue
		}
		w.visited[href] = true

		if rel == stac.RelChild {
			child, err := readNode(ctx, w.reader, href, node)
			if err != nil {
				yield(nil, fmt.Errorf("walk.%w", err))
				return false
			}
			if !w.walk(ctx, child, yield) {
				return false
			}
			continue
		}

		b, err := w.reader.Read(ctx, href)
		if err != nil {
			yield(nil, fmt.Errorf("walk.read %s: %w", href, err))
			return false
		}
		if !yield(&entities.MaxarItem{Href: href, Raw: b, Collection: node}, nil) {
			return false
		}
	}
	return true
}
