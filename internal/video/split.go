package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var ErrNoSegments = errors.New("video: no valid segments")

// Segment names one clip to cut out of a source video. Start and End
// are ffmpeg time expressions such as "0:05" or "1:02.5".
type Segment struct {
	Start  string
	End    string
	Action string
}

// timestampRe accepts mm:ss, h:mm:ss, and bare-seconds forms, with an
// optional fractional part.
var timestampRe = regexp.MustCompile(`^\d+(:\d{1,2}){0,2}(\.\d+)?$`)

// ParseSegments parses a comma-separated segment list of the form
// "0:00-0:05=idle,0:06-0:12=walk". Malformed segments are dropped and
// reported; the valid remainder is returned. ErrNoSegments is returned
// when nothing parses.
func ParseSegments(spec string) ([]Segment, []string, error) {
	var (
		segments []Segment
		dropped  []string
	)
	for _, raw := range strings.Split(spec, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		timeRange, action, ok := strings.Cut(raw, "=")
		if !ok {
			dropped = append(dropped, raw)
			continue
		}
		start, end, ok := strings.Cut(timeRange, "-")
		if !ok {
			dropped = append(dropped, raw)
			continue
		}

		seg := Segment{
			Start:  strings.TrimSpace(start),
			End:    strings.TrimSpace(end),
			Action: strings.TrimSpace(action),
		}
		if seg.Action == "" || !timestampRe.MatchString(seg.Start) || !timestampRe.MatchString(seg.End) {
			dropped = append(dropped, raw)
			continue
		}
		segments = append(segments, seg)
	}

	if len(segments) == 0 {
		return nil, dropped, ErrNoSegments
	}
	return segments, dropped, nil
}

// SplitReport accounts for the outcome of a Split run.
type SplitReport struct {
	Extracted []string
	Failed    []string
}

// Split cuts the source video into one MP4 per segment, named after the
// segment's action, in the source's directory (or outputDir when set).
// Clips are re-encoded so cut points land cleanly off keyframes. A clip
// failure does not stop the remaining clips; the report carries both.
func (t *Tool) Split(ctx context.Context, source, outputDir string, segments []Segment) (SplitReport, error) {
	var report SplitReport

	if _, err := os.Stat(source); err != nil {
		return report, fmt.Errorf("source video: %w", err)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if len(segments) == 0 {
		return report, ErrNoSegments
	}

	for _, seg := range segments {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		out := filepath.Join(outputDir, seg.Action+".mp4")
		_, err := t.runner.Run(ctx, "ffmpeg", "-y",
			"-i", source,
			"-ss", seg.Start,
			"-to", seg.End,
			"-c:v", "libx264",
			"-c:a", "aac",
			"-preset", "fast",
			out,
		)
		if err != nil {
			t.logger.Warn("clip extraction failed", "action", seg.Action, "error", err)
			report.Failed = append(report.Failed, seg.Action)
			continue
		}
		t.logger.Info("clip extracted", "action", seg.Action, "output", out)
		report.Extracted = append(report.Extracted, seg.Action)
	}

	return report, nil
}
