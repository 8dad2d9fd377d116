package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/wrapped/internal/shared"
)

// TimeRange buckets listening history for top-item queries.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"
	MediumTerm TimeRange = "medium_term"
	LongTerm   TimeRange = "long_term"

	DefaultTimeRange = ShortTerm
)

// TimeRanges lists the valid ranges, shortest first.
var TimeRanges = []TimeRange{ShortTerm, MediumTerm, LongTerm}

// ParseTimeRange accepts the provider's values and the short aliases "short", "medium" and "long".
// An empty string yields [DefaultTimeRange].
func ParseTimeRange(s string) (TimeRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultTimeRange, nil
	case "short", string(ShortTerm):
		return ShortTerm, nil
	case "medium", string(MediumTerm):
		return MediumTerm, nil
	case "long", string(LongTerm):
		return LongTerm, nil
	default:
		return "", fmt.Errorf("%w: unknown time range %q", shared.ErrInvalidArgument, s)
	}
}

// Label returns a human readable description.
func (t TimeRange) Label() string {
	switch t {
	case ShortTerm:
		return "last 4 weeks"
	case MediumTerm:
		return "last 6 months"
	case LongTerm:
		return "all time"
	default:
		return string(t)
	}
}

// Next cycles through [TimeRanges].
func (t TimeRange) Next() TimeRange {
	for i, r := range TimeRanges {
		if r == t {
			return TimeRanges[(i+1)%len(TimeRanges)]
		}
	}
	return DefaultTimeRange
}

// Image is a remote image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Profile is the signed-in user.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email,omitempty"`
	Country     string  `json:"country,omitempty"`
	Product     string  `json:"product,omitempty"`
	Images      []Image `json:"images,omitempty"`
}

// Artist is a ranked top artist.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
	Images []Image  `json:"images,omitempty"`
}

// ImageURL returns the first (largest) image URL, or "".
func (a Artist) ImageURL() string {
	return firstImage(a.Images)
}

// Album is the album a track appears on.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images,omitempty"`
}

// Track is a ranked top track.
type Track struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Artists  []string `json:"artists"`
	Album    Album    `json:"album"`
	Duration int      `json:"duration"` // seconds
}

// Artist returns the primary artist name, or "".
func (t Track) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ImageURL returns the first album art URL, or "".
func (t Track) ImageURL() string {
	return firstImage(t.Album.Images)
}

// Byline formats "NAME by ARTIST".
func (t Track) Byline() string {
	if a := t.Artist(); a != "" {
		return fmt.Sprintf("%s by %s", t.Name, a)
	}
	return t.Name
}

// FetchError records a fetch that failed and was skipped.
type FetchError struct {
	Step string `json:"step"`
	Err  error  `json:"-"`
}

func (e FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e FetchError) Unwrap() error {
	return e.Err
}

// Wrapped holds the statistics gathered in one run. Any field may be empty when its fetch failed.
type Wrapped struct {
	Profile    *Profile     `json:"profile,omitempty"`
	TimeRange  TimeRange    `json:"time_range"`
	TopArtists []Artist     `json:"top_artists"`
	TopTracks  []Track      `json:"top_tracks"`
	TopGenre   string       `json:"top_genre,omitempty"`
	Top5       []Track      `json:"top_5"`
	Errors     []FetchError `json:"-"`
}

// TopArtist returns the number one artist.
func (w *Wrapped) TopArtist() (Artist, bool) {
	if w == nil || len(w.TopArtists) == 0 {
		return Artist{}, false
	}
	return w.TopArtists[0], true
}

// TopTrack returns the number one track.
func (w *Wrapped) TopTrack() (Track, bool) {
	if w == nil || len(w.TopTracks) == 0 {
		return Track{}, false
	}
	return w.TopTracks[0], true
}

// Partial reports whether any fetch failed.
func (w *Wrapped) Partial() bool {
	return w != nil && len(w.Errors) > 0
}

func firstImage(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
