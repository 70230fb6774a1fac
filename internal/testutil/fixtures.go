package testutil

import (
	"github.com/rsappia/tvargenta/internal/store"
)

// SeedCatalog builds a small, self-consistent in-memory content library:
// one broadcast channel ("01") backed by a 3-episode series, and one
// library channel ("02") backed by two tagged vhs_tape videos.
func SeedCatalog() (store.Metadata, store.SeriesSet, store.Channels) {
	meta := store.Metadata{
		"show-s1e1": {Title: "Pilot", Category: store.CategoryTVEpisode, SeriesPath: "cartoons", Season: 1, Episode: 1, DuracionSec: 1200},
		"show-s1e2": {Title: "Episode 2", Category: store.CategoryTVEpisode, SeriesPath: "cartoons", Season: 1, Episode: 2, DuracionSec: 1200},
		"show-s1e3": {Title: "Episode 3", Category: store.CategoryTVEpisode, SeriesPath: "cartoons", Season: 1, Episode: 3, DuracionSec: 1200},
		"vhs-001":   {Title: "Home Movie 1", Category: store.CategoryVHSTape, Tags: []string{"vhs", "family"}, DuracionSec: 1800},
		"vhs-002":   {Title: "Home Movie 2", Category: store.CategoryVHSTape, Tags: []string{"vhs", "family"}, DuracionSec: 2400},
		"comm-001":  {Title: "Soda Ad", Category: store.CategoryCommercial, DuracionSec: 30},
		"comm-002":  {Title: "Car Ad", Category: store.CategoryCommercial, DuracionSec: 60},
	}
	series := store.SeriesSet{
		"cartoons": {TimeOfDay: store.EarlyMorning},
	}
	channels := store.Channels{
		"01": {Nombre: "Canal Uno", Numero: "01", SeriesFilter: []string{"cartoons"}, MinGapMinutes: 60},
		"02": {Nombre: "Canal Biblioteca", Numero: "02", TagsIncluidos: []string{"vhs"}, MinGapMinutes: 60},
	}
	return meta, series, channels
}
