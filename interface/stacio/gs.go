package stacio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/hotosm/oam-stac-ingester/service"
)

// GSReader reads gs://bucket/object documents
type GSReader struct {
	client *storage.Client
}

// NewGSReader creates a reader with the default credentials
func NewGSReader(ctx context.Context) (*GSReader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGSReader: %w", err)
	}
	return &GSReader{client: client}, nil
}

// Read implements Reader
func (r *GSReader) Read(ctx context.Context, href string) ([]byte, error) {
	u, err := url.Parse(href)
	if err != nil || u.Scheme != "gs" {
		return nil, fmt.Errorf("GSReader: invalid uri %s", href)
	}
	reader, err := r.client.Bucket(u.Host).Object(strings.TrimPrefix(u.Path, "/")).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, ErrNotFound{Href: href}
		}
		if service.Temporary(err) {
			err = service.MakeTemporary(err)
		}
		return nil, fmt.Errorf("GSReader.NewReader(%s): %w", href, err)
	}
	defer reader.Close()
	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("GSReader.ReadAll(%s): %w", href, err)
	}
	return b, nil
}

// Close closes the storage client
func (r *GSReader) Close() error {
	return r.client.Close()
}
