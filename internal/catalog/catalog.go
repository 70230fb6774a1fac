// Package catalog provides read-through views over the metadata store used
// by the planners and the channel switcher: episodes of a series in season/
// episode order, commercials available for a break, library videos, and the
// series eligible for a time of day.
package catalog

import (
	"sort"

	"github.com/rsappia/tvargenta/internal/store"
)

// Catalog is a point-in-time, read-only view of the content library.
type Catalog struct {
	Metadata store.Metadata
	Series   store.SeriesSet
}

// New builds a Catalog from loaded metadata and series documents.
func New(meta store.Metadata, series store.SeriesSet) *Catalog {
	return &Catalog{Metadata: meta, Series: series}
}

// Episode is one (video_id, Video) pair, used where ordering matters.
type Episode struct {
	VideoID string
	Video   store.Video
}

// EpisodesOf returns every tv_episode video belonging to seriesPath, ordered
// by (season, episode). Ties are broken by video_id for determinism.
func (c *Catalog) EpisodesOf(seriesPath string) []Episode {
	var out []Episode
	for id, v := range c.Metadata {
		if v.Category != store.CategoryTVEpisode || v.SeriesPath != seriesPath {
			continue
		}
		out = append(out, Episode{VideoID: id, Video: v})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Video.Season != b.Video.Season {
			return a.Video.Season < b.Video.Season
		}
		if a.Video.Episode != b.Video.Episode {
			return a.Video.Episode < b.Video.Episode
		}
		return a.VideoID < b.VideoID
	})
	return out
}

// Commercials returns every commercial video tagged with any of tags. When
// tags is empty, all commercials are returned.
func (c *Catalog) Commercials(tags []string) []Episode {
	want := map[string]bool{}
	for _, t := range tags {
		want[t] = true
	}
	var out []Episode
	for id, v := range c.Metadata {
		if v.Category != store.CategoryCommercial {
			continue
		}
		if len(want) == 0 || hasAny(v.Tags, want) {
			out = append(out, Episode{VideoID: id, Video: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out
}

func hasAny(tags []string, want map[string]bool) bool {
	for _, t := range tags {
		if want[t] {
			return true
		}
	}
	return false
}

// LibraryVideos returns every vhs_tape/movie video eligible for the
// fairness-based library channels, optionally filtered by seriesFilter
// (an empty filter matches everything).
func (c *Catalog) LibraryVideos(seriesFilter []string) []Episode {
	want := map[string]bool{}
	for _, s := range seriesFilter {
		want[s] = true
	}
	var out []Episode
	for id, v := range c.Metadata {
		if v.Category != store.CategoryVHSTape && v.Category != store.CategoryMovie {
			continue
		}
		if len(want) > 0 && !want[v.Series] {
			continue
		}
		out = append(out, Episode{VideoID: id, Video: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out
}

// SeriesForTimeOfDay returns every series folder whose configured
// TimeOfDay is tod or AnyTimeOfDay.
func (c *Catalog) SeriesForTimeOfDay(tod store.TimeOfDay) []string {
	var out []string
	for folder, s := range c.Series {
		if s.TimeOfDay == tod || s.TimeOfDay == store.AnyTimeOfDay {
			out = append(out, folder)
		}
	}
	sort.Strings(out)
	return out
}
