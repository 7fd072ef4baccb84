package common

import (
	"fmt"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// ErrBadParameter is returned when the command line arguments are inconsistent
type ErrBadParameter struct {
	Msg string
}

func (e ErrBadParameter) Error() string {
	return "bad parameter: " + e.Msg
}

// ParseUploadedSince returns the cutoff of a sync run.
// Exactly one of since and after must be set:
//   - since is a number of seconds ("3600", "90.5") or a duration ("36h") before now
//   - after is an absolute timestamp. Timestamps without timezone are UTC.
func ParseUploadedSince(since, after string, now time.Time) (time.Time, error) {
	switch {
	case since != "" && after != "":
		return time.Time{}, ErrBadParameter{Msg: "--uploaded-since and --uploaded-after are mutually exclusive"}
	case since == "" && after == "":
		return time.Time{}, ErrBadParameter{Msg: "one of --uploaded-since or --uploaded-after is required"}
	case after != "":
		t, err := dateparse.ParseIn(after, time.UTC)
		if err != nil {
			return time.Time{}, ErrBadParameter{Msg: fmt.Sprintf("--uploaded-after %q: %v", after, err)}
		}
		return t.UTC(), nil
	}

	d, err := parseSeconds(since)
	if err != nil {
		return time.Time{}, ErrBadParameter{Msg: fmt.Sprintf("--uploaded-since %q: %v", since, err)}
	}
	if d < 0 {
		return time.Time{}, ErrBadParameter{Msg: fmt.Sprintf("--uploaded-since %q: must be positive", since)}
	}
	return now.Add(-d).UTC(), nil
}

func parseSeconds(s string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
