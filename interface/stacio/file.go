package stacio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
)

// FileReader reads local documents
type FileReader struct{}

// Read implements Reader
func (FileReader) Read(ctx context.Context, href string) ([]byte, error) {
	path := href
	if u, err := url.Parse(href); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound{Href: href}
	}
	if err != nil {
		return nil, fmt.Errorf("FileReader.Read: %w", err)
	}
	return b, nil
}
