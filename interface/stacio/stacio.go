// Package stacio reads STAC documents from http(s), s3, gs or local hrefs
package stacio

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Reader reads the document located at href
type Reader interface {
	Read(ctx context.Context, href string) ([]byte, error)
}

// ErrNotFound is returned when the document does not exist
type ErrNotFound struct {
	Href string
}

func (e ErrNotFound) Error() string {
	return "document not found: " + e.Href
}

// Multi dispatches the reads according to the scheme of the href.
// Hrefs without scheme are read with the "file" reader.
type Multi map[string]Reader

// Read implements Reader
func (m Multi) Read(ctx context.Context, href string) ([]byte, error) {
	scheme := "file"
	if u, err := url.Parse(href); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		scheme = strings.ToLower(u.Scheme)
	}
	r, ok := m[scheme]
	if !ok {
		return nil, fmt.Errorf("stacio: no reader for scheme %s (%s)", scheme, href)
	}
	return r.Read(ctx, href)
}

// Resolve returns href resolved against base (the href of the document where href is found)
func Resolve(base, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("Resolve.Parse(%s): %w", href, err)
	}
	if ref.IsAbs() {
		return href, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("Resolve.Parse(%s): %w", base, err)
	}
	if b.Scheme == "" || len(b.Scheme) == 1 {
		// Local path (or windows drive)
		if filepath.IsAbs(href) {
			return href, nil
		}
		return filepath.Join(filepath.Dir(base), filepath.FromSlash(href)), nil
	}
	return b.ResolveReference(ref).String(), nil
}
