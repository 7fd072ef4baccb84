package main

import (
	"errors"
	"testing"

	"github.com/hotosm/oam-stac-ingester/common"
)

func TestSyncConfigParse(t *testing.T) {
	tests := []struct {
		name    string
		conf    syncConfig
		policy  common.ExceptionPolicy
		wantErr bool
	}{
		{"since", syncConfig{UploadedSince: "3600", HandleExceptions: "RAISE"}, common.PolicyRaise, false},
		{"after ignore", syncConfig{UploadedAfter: "2024-01-01", HandleExceptions: "ignore"}, common.PolicyIgnore, false},
		{"no cutoff", syncConfig{HandleExceptions: "RAISE"}, 0, true},
		{"both cutoffs", syncConfig{UploadedSince: "1h", UploadedAfter: "2024-01-01", HandleExceptions: "RAISE"}, 0, true},
		{"bad policy", syncConfig{UploadedSince: "1h", HandleExceptions: "WARN"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, policy, err := tt.conf.parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && policy != tt.policy {
				t.Errorf("policy = %v, want %v", policy, tt.policy)
			}
		})
	}

	_, _, err := (&syncConfig{HandleExceptions: "RAISE"}).parse()
	var badParam common.ErrBadParameter
	if !errors.As(err, &badParam) {
		t.Errorf("expected ErrBadParameter, got %T", err)
	}
}

func TestCommands(t *testing.T) {
	want := map[string]bool{"sync-oam": false, "sync-maxar": false, "create-collection": false, "oam-item": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing command %s", name)
		}
	}
	if f := rootCmd.PersistentFlags().Lookup("pguser"); f == nil {
		t.Error("missing --pguser")
	}
}
