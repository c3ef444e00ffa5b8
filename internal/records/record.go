package records

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("record not found")

type Kind string

const (
	KindScore   Kind = "score"
	KindFortune Kind = "fortune"
)

type Gender string

const (
	Male   Gender = "Male"
	Female Gender = "Female"
	Other  Gender = "Other"
)

// ParseGender maps the analysis provider's labels onto Gender.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return Male
	case "female", "f":
		return Female
	default:
		return Other
	}
}

// ScoreRecord is one scored submission. ContentHash is unique across the
// table; re-submitting the same bytes updates the existing row.
type ScoreRecord struct {
	ID          string    `json:"id"`
	ContentHash string    `json:"content_hash"`
	Kind        Kind      `json:"kind"`
	Score       float64   `json:"score"`
	Comment     string    `json:"comment"`
	Gender      Gender    `json:"gender"`
	Age         int       `json:"age"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

const idPrefix = "face_"

// RecordID derives the record id from a content hash.
func RecordID(contentHash string) string {
	return idPrefix + contentHash
}

// HashFromID is the inverse of RecordID. Bare hashes are accepted as-is.
func HashFromID(id string) string {
	return strings.TrimPrefix(id, idPrefix)
}

type SortField string

const (
	SortTimestamp SortField = "timestamp"
	SortScore     SortField = "score"
)

// ListQuery selects one page of records. Zero From/To leave that side of
// the date range open.
type ListQuery struct {
	Page   int
	Limit  int
	SortBy SortField
	Desc   bool
	From   time.Time
	To     time.Time
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type Page struct {
	Records    []ScoreRecord `json:"images"`
	Pagination Pagination    `json:"pagination"`
}

type RetentionStats struct {
	Total    int        `json:"total"`
	Expired  int        `json:"expired"`
	Retained int        `json:"retained"`
	Cutoff   time.Time  `json:"cutoff"`
	Oldest   *time.Time `json:"oldest,omitempty"`
	Newest   *time.Time `json:"newest,omitempty"`
}

type Stats struct {
	Total     int        `json:"total"`
	Today     int        `json:"today"`
	ThisMonth int        `json:"this_month"`
	Oldest    *time.Time `json:"oldest,omitempty"`
	Newest    *time.Time `json:"newest,omitempty"`
}
