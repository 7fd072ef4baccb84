package entities

import (
	"reflect"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestSanitizeLicense(t *testing.T) {
	m := Metadata{License: strPtr("CC-BY 4.0")}.Sanitize()
	if m.License == nil || *m.License != "CC-BY-4.0" {
		t.Errorf("expected CC-BY-4.0, got %v", m.License)
	}
	if m := (Metadata{}).Sanitize(); m.License != nil {
		t.Errorf("expected nil license, got %s", *m.License)
	}
}

func TestSanitizePlatform(t *testing.T) {
	for platform, expected := range map[string]string{
		"UaV":       "UAV",
		"uav":       "UAV",
		"UAV":       "UAV",
		"satellite": "satellite",
		"aircraft":  "aircraft",
	} {
		if got := (Metadata{Platform: platform}).Sanitize().Platform; got != expected {
			t.Errorf("%s: expected %s, got %s", platform, expected, got)
		}
	}
}

func TestSanitizeSensor(t *testing.T) {
	for _, sensor := range []string{"Unknow", "unknown", "UNKNOWN sensor"} {
		if m := (Metadata{Sensor: strPtr(sensor)}).Sanitize(); m.Sensor != nil {
			t.Errorf("%s: expected nil sensor, got %s", sensor, *m.Sensor)
		}
	}
	if m := (Metadata{Sensor: strPtr("camera")}).Sanitize(); m.Sensor == nil || *m.Sensor != "camera" {
		t.Errorf("expected camera, got %v", m.Sensor)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	uploaded := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	records := []Metadata{
		{},
		{ID: "a", Platform: "uav", Sensor: strPtr("unknown"), License: strPtr("CC BY 4.0")},
		{ID: "b", Platform: "Satellite", Sensor: strPtr("DJI Phantom"), License: strPtr("CC-BY-4.0"), UploadedAt: &uploaded, Bbox: []float64{1, 2, 3, 4}},
		{ID: "c", Platform: "UAV", License: strPtr("  double  space ")},
	}
	for _, m := range records {
		once := m.Sanitize()
		twice := once.Sanitize()
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("%s: sanitize is not idempotent: %+v != %+v", m, once, twice)
		}
	}
}

func TestSanitizeDoesNotAlias(t *testing.T) {
	license := "CC BY 4.0"
	m := Metadata{License: &license, Bbox: []float64{0, 0, 1, 1}}
	s := m.Sanitize()
	s.Bbox[0] = 42
	if license != "CC BY 4.0" || m.Bbox[0] != 0 {
		t.Error("Sanitize modified its receiver")
	}
}
