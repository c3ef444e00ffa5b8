// Package validate checks request input and reports problems as
// validation errors.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"face-score/internal/apierr"
)

const (
	MinImageChars = 100
	MaxImageBytes = 10 << 20
	MaxPageLimit  = 100
	MaxBatchIDs   = 100
)

var base64Image = regexp.MustCompile(`^(data:image/(jpeg|jpg|png|gif|webp);base64,)?[A-Za-z0-9+/=]+$`)

// Base64Image checks the shape and estimated decoded size of an image
// payload, optionally carrying a data URL prefix.
func Base64Image(s string) error {
	if s == "" {
		return apierr.Validation("image is required")
	}
	if !base64Image.MatchString(s) {
		return apierr.Validation("invalid base64 image")
	}
	data := s
	if i := strings.IndexByte(s, ','); i >= 0 {
		data = s[i+1:]
	}
	if len(data) < MinImageChars {
		return apierr.Validation("image is too small")
	}
	if len(data)/4*3 > MaxImageBytes {
		return apierr.Validation("image exceeds the 10MB limit")
	}
	return nil
}

// Pagination parses page and limit. Empty values fall back to page 1 and
// defaultLimit.
func Pagination(page, limit string, defaultLimit int) (int, int, error) {
	p, l := 1, defaultLimit
	var err error
	if page != "" {
		if p, err = strconv.Atoi(page); err != nil || p < 1 {
			return 0, 0, apierr.Validation("page must be at least 1")
		}
	}
	if limit != "" {
		if l, err = strconv.Atoi(limit); err != nil {
			return 0, 0, apierr.Validation("limit must be between 1 and 100")
		}
	}
	if l < 1 || l > MaxPageLimit {
		return 0, 0, apierr.Validation("limit must be between 1 and 100")
	}
	return p, l, nil
}

// DateRange parses optional RFC 3339 or YYYY-MM-DD bounds. A date-only
// upper bound covers the whole day.
func DateRange(from, to string) (time.Time, time.Time, error) {
	f, err := parseDate(from, false)
	if err != nil {
		return time.Time{}, time.Time{}, apierr.Validation("invalid date_from")
	}
	t, err := parseDate(to, true)
	if err != nil {
		return time.Time{}, time.Time{}, apierr.Validation("invalid date_to")
	}
	if !f.IsZero() && !t.IsZero() && f.After(t) {
		return time.Time{}, time.Time{}, apierr.Validation("date_from must not be after date_to")
	}
	return f, t, nil
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Millisecond)
	}
	return d, nil
}

// IDs checks a batch of record ids.
func IDs(ids []string) error {
	if len(ids) == 0 {
		return apierr.Validation("ids must not be empty")
	}
	if len(ids) > MaxBatchIDs {
		return apierr.Validation("at most 100 ids per request")
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return apierr.Validation("invalid id")
		}
	}
	return nil
}
