package stacio

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hotosm/oam-stac-ingester/service"
)

// HTTPReader reads documents over http(s), retrying temporary failures
type HTTPReader struct {
	Client  *http.Client
	Retries int
}

// NewHTTPReader creates a reader. If client is nil, http.DefaultClient is used
func NewHTTPReader(client *http.Client, retries int) *HTTPReader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPReader{Client: client, Retries: retries}
}

// Read implements Reader
func (r *HTTPReader) Read(ctx context.Context, href string) ([]byte, error) {
	b, err := service.GetBodyRetry(ctx, r.Client, href, r.Retries)
	if err != nil {
		var statusErr service.ErrHTTPStatus
		if errors.As(err, &statusErr) && (statusErr.Code == http.StatusNotFound || statusErr.Code == http.StatusForbidden) {
			// S3 answers 403 for missing keys of public buckets
			return nil, ErrNotFound{Href: href}
		}
		return nil, fmt.Errorf("HTTPReader.Read: %w", err)
	}
	return b, nil
}
