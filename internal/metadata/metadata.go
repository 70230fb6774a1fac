// Package metadata probes video files for duration and loudness using
// ffprobe, writing results back into metadata.json through the store's
// shared file lock. In a full deployment this daemon runs offline and
// writes back under the same lock the core process uses for the videos
// document.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rsappia/tvargenta/internal/store"
)

// probeTimeout bounds a single ffprobe invocation; on expiry the daemon
// treats the duration as unknown and falls back to the default bucket.
const probeTimeout = 30 * time.Second

// defaultDurationSec is the fallback bucket used when a probe times out
// or fails.
const defaultDurationSec = 1800.0

// ProbeResult holds the fields this package extracts from ffprobe output.
type ProbeResult struct {
	DurationSec  float64
	LoudnessLUFS float64
}

// ffprobeOutput mirrors the subset of ffprobe -show_streams -show_format
// JSON this package consumes.
type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ffprobePath allows overriding the ffprobe binary location, mirroring
// FFPROBE_PATH in the rest of the corpus.
var ffprobePath = "ffprobe"

// Probe runs ffprobe against filePath with a 30-second timeout. On
// timeout or failure it returns the default duration bucket rather than
// an error, since the planner must never block on a stuck probe.
func Probe(ctx context.Context, filePath string) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		filePath,
	)
	out, err := cmd.Output()
	if err != nil {
		return ProbeResult{DurationSec: defaultDurationSec}
	}

	var data ffprobeOutput
	if err := json.Unmarshal(out, &data); err != nil {
		return ProbeResult{DurationSec: defaultDurationSec}
	}

	dur, err := strconv.ParseFloat(data.Format.Duration, 64)
	if err != nil || dur <= 0 {
		dur = defaultDurationSec
	}

	// Loudness measurement requires a second ffmpeg pass (ebur128 filter);
	// left at zero when unmeasured rather than invented.
	return ProbeResult{DurationSec: dur}
}

// RefreshMissing probes every video under contentRoot whose duracion_sec
// is zero, and persists the results through st's shared lock. Videos
// whose probe fails keep the default bucket so lookups stay well-formed.
func RefreshMissing(ctx context.Context, st *store.Store, contentRoot string, log *logrus.Entry) error {
	meta, err := st.LoadMetadata()
	if err != nil {
		return fmt.Errorf("metadata: load catalog: %w", err)
	}

	changed := false
	for id, v := range meta {
		if v.DuracionSec > 0 {
			continue
		}
		path := resolvePath(contentRoot, id, v)
		result := Probe(ctx, path)
		v.DuracionSec = result.DurationSec
		if result.LoudnessLUFS != 0 {
			v.LoudnessLUFS = result.LoudnessLUFS
		}
		meta[id] = v
		changed = true
		if log != nil {
			log.WithField("video_id", id).WithField("duration_sec", result.DurationSec).Info("metadata: probed video")
		}
	}

	if !changed {
		return nil
	}
	return st.SaveMetadata(meta)
}

// resolvePath mirrors the content root's filesystem layout for video serving.
func resolvePath(contentRoot, id string, v store.Video) string {
	switch {
	case v.SeriesPath != "":
		return filepath.Join(contentRoot, "videos", "series", v.SeriesPath, id+".mp4")
	case v.Category == store.CategoryCommercial:
		return filepath.Join(contentRoot, "videos", "commercials", id+".mp4")
	default:
		return filepath.Join(contentRoot, "videos", id+".mp4")
	}
}
