package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetBody(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"ok":true}`))
		case "/missing":
			http.Error(w, "nope", http.StatusNotFound)
		default:
			http.Error(w, "down", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	body, err := GetBody(ctx, srv.Client(), srv.URL+"/ok")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body %s", body)
	}

	calls = 0
	_, err = GetBodyRetry(ctx, srv.Client(), srv.URL+"/missing", 3)
	var statusErr ErrHTTPStatus
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected a 404 ErrHTTPStatus, got %v", err)
	}
	if calls != 1 {
		t.Errorf("4xx must not be retried, got %d calls", calls)
	}

	calls = 0
	_, err = GetBodyRetry(ctx, srv.Client(), srv.URL+"/down", 1)
	if !Temporary(err) {
		t.Errorf("expected a temporary error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}
