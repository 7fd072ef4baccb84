package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"
)

// maxErrorBody is the number of bytes of an error response kept in ErrHTTPStatus
const maxErrorBody = 512

// GetBody performs a simple GET and returns the body.
// A non-2xx response is returned as an ErrHTTPStatus (marked temporary for 429 and 5xx).
func GetBody(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	return GetBodyRetry(ctx, client, url, 0)
}

// GetBodyRetry: simple GET with N retries in case of temporary errors
func GetBodyRetry(ctx context.Context, client *http.Client, url string, nbRetries int) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	var body []byte
	var err error
	for i := range nbRetries + 1 {
		if i > 0 {
			// Exponential backoff, starting at 1s
			select {
			case <-time.After((1 << (i - 1)) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if body, err = getBody(ctx, client, url); err == nil || !Temporary(err) {
			return body, err
		}
	}
	return nil, err
}

func getBody(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		var e *neturl.Error
		if errors.As(err, &e) && e.Timeout() {
			return nil, MakeTemporary(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := ErrHTTPStatus{URL: url, Status: resp.Status, Code: resp.StatusCode, Body: string(b)}
		if Temporary(err) {
			return nil, MakeTemporary(err)
		}
		return nil, err
	}
	return io.ReadAll(resp.Body)
}
