package models

import (
	"fmt"
	"strings"
)

// TrackDescriptor is a source playlist track reduced to what the search stage needs.
type TrackDescriptor struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
}

// Display renders "<name> by <artist1, artist2>", keeping artist order.
func (t TrackDescriptor) Display() string {
	return fmt.Sprintf("%s by %s", t.Name, strings.Join(t.Artists, ", "))
}

func (t TrackDescriptor) String() string { return t.Display() }

// Resolution pairs a track with the video its search returned.
//
// Position is the track's index in the source playlist. Found is false when the search had no hits,
// in which case VideoID is empty.
type Resolution struct {
	Position int             `json:"position"`
	Track    TrackDescriptor `json:"track"`
	Query    string          `json:"query"`
	VideoID  string          `json:"video_id,omitempty"`
	Found    bool            `json:"found"`
}

// Resolutions keeps one entry per source track, in source order.
type Resolutions []Resolution

// VideoIDs returns the ids of found videos in source order, skipping misses.
func (rs Resolutions) VideoIDs() []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		if r.Found {
			ids = append(ids, r.VideoID)
		}
	}
	return ids
}

// Misses returns the entries whose search had no hits.
func (rs Resolutions) Misses() Resolutions {
	var misses Resolutions
	for _, r := range rs {
		if !r.Found {
			misses = append(misses, r)
		}
	}
	return misses
}

// FoundCount is the number of resolved entries.
func (rs Resolutions) FoundCount() int {
	n := 0
	for _, r := range rs {
		if r.Found {
			n++
		}
	}
	return n
}
