package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/edgemoorlf/smootie/internal/log"
)

// downloadFormat prefers 1080p MP4 with M4A audio, degrading gracefully.
const downloadFormat = "bestvideo[ext=mp4][height<=1080]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// Duration bounds in seconds. Individual action clips must loop, so
// they stay short; source reels hold several actions and run longer.
const (
	minClipDuration   = 2
	maxClipDuration   = 30
	minSourceDuration = 30
	maxSourceDuration = 600
)

// searchPerKeyword is the yt-dlp result count requested per query.
const searchPerKeyword = 5

var ErrUnknownAction = errors.New("video: unknown action")

// Result is one search hit.
type Result struct {
	Title       string
	URL         string
	Duration    int
	Uploader    string
	ViewCount   int64
	Description string
}

// Config carries the tool's dependencies.
type Config struct {
	Runner  Runner
	Logger  log.Logger
	Catalog Catalog

	// OutputDir is the root under which video sets are stored, one
	// subdirectory per set.
	OutputDir string
}

// Tool drives yt-dlp and ffmpeg to assemble cohesive action clip sets.
type Tool struct {
	runner    Runner
	logger    log.Logger
	catalog   Catalog
	outputDir string
}

func New(cfg Config) (*Tool, error) {
	if cfg.Runner == nil {
		return nil, errors.New("video: runner is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("video: logger is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = BuiltinCatalog()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "videos"
	}
	return &Tool{
		runner:    cfg.Runner,
		logger:    cfg.Logger,
		catalog:   cfg.Catalog,
		outputDir: cfg.OutputDir,
	}, nil
}

// Catalog returns the tool's action catalog.
func (t *Tool) Catalog() Catalog { return t.catalog }

// CheckDeps verifies that yt-dlp and ffmpeg are runnable.
func (t *Tool) CheckDeps(ctx context.Context) error {
	if _, err := t.runner.Run(ctx, "yt-dlp", "--version"); err != nil {
		return fmt.Errorf("yt-dlp is not installed (pip install yt-dlp): %w", err)
	}
	if _, err := t.runner.Run(ctx, "ffmpeg", "-version"); err != nil {
		return fmt.Errorf("ffmpeg is not installed (https://ffmpeg.org/download.html): %w", err)
	}
	return nil
}

// Search looks up short loopable clips for a single catalog action.
func (t *Tool) Search(ctx context.Context, action string) ([]Result, error) {
	cat, ok := t.catalog[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return t.search(ctx, cat.Keywords, minClipDuration, maxClipDuration)
}

// SearchSources looks up longer multi-action reference reels meant to
// be downloaded once and split into per-action clips.
func (t *Tool) SearchSources(ctx context.Context) ([]Result, error) {
	return t.search(ctx, sourceKeywords, minSourceDuration, maxSourceDuration)
}

func (t *Tool) search(ctx context.Context, keywords []string, minDur, maxDur int) ([]Result, error) {
	var results []Result
	for i, keyword := range keywords {
		t.logger.Info("searching", "keyword", keyword, "progress", fmt.Sprintf("%d/%d", i+1, len(keywords)))

		query := fmt.Sprintf("ytsearch%d:%s", searchPerKeyword, keyword)
		out, err := t.runner.Run(ctx, "yt-dlp", "--dump-json", "--no-download", "--no-playlist", query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			t.logger.Warn("search failed, continuing", "keyword", keyword, "error", err)
			continue
		}
		results = append(results, parseResults(out, minDur, maxDur)...)
	}

	results = dedupeByURL(results)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ViewCount > results[j].ViewCount
	})
	return results, nil
}

// parseResults decodes yt-dlp's line-delimited JSON dump, keeping only
// entries inside the duration window. Undecodable lines are skipped.
func parseResults(out []byte, minDur, maxDur int) []Result {
	var results []Result
	for _, line := range bytes.Split(out, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var info struct {
			Title       string  `json:"title"`
			WebpageURL  string  `json:"webpage_url"`
			Duration    float64 `json:"duration"`
			Uploader    string  `json:"uploader"`
			ViewCount   int64   `json:"view_count"`
			Description string  `json:"description"`
		}
		if err := json.Unmarshal(line, &info); err != nil {
			continue
		}
		dur := int(info.Duration)
		if dur < minDur || dur > maxDur {
			continue
		}
		desc := info.Description
		if len(desc) > 200 {
			desc = desc[:200]
		}
		results = append(results, Result{
			Title:       info.Title,
			URL:         info.WebpageURL,
			Duration:    dur,
			Uploader:    info.Uploader,
			ViewCount:   info.ViewCount,
			Description: desc,
		})
	}
	return results
}

func dedupeByURL(in []Result) []Result {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, r := range in {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Download fetches one clip for a catalog action into the given set.
// It returns the path of the downloaded file.
func (t *Tool) Download(ctx context.Context, url, action, set string) (string, error) {
	if _, ok := t.catalog[action]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return t.download(ctx, url, set, action+".mp4")
}

// DownloadSource fetches a multi-action reel as <set>/source.mp4 and
// returns its path plus the probed duration in seconds.
func (t *Tool) DownloadSource(ctx context.Context, url, set string) (string, int, error) {
	path, err := t.download(ctx, url, set, "source.mp4")
	if err != nil {
		return "", 0, err
	}

	dur, err := t.probeDuration(ctx, path)
	if err != nil {
		// The download itself succeeded; report it with an unknown length.
		t.logger.Warn("could not probe duration", "path", path, "error", err)
		return path, 0, nil
	}
	return path, dur, nil
}

func (t *Tool) download(ctx context.Context, url, set, filename string) (string, error) {
	dir := filepath.Join(t.outputDir, set)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create set directory: %w", err)
	}

	path := filepath.Join(dir, filename)
	t.logger.Info("downloading", "url", url, "output", path)

	if _, err := t.runner.Run(ctx, "yt-dlp", "-f", downloadFormat, "-o", path, url); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	return path, nil
}

func (t *Tool) probeDuration(ctx context.Context, path string) (int, error) {
	out, err := t.runner.Run(ctx, "ffprobe",
		"-v", "quiet", "-print_format", "json", "-show_format", path)
	if err != nil {
		return 0, err
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var dur float64
	if _, err := fmt.Sscanf(probe.Format.Duration, "%f", &dur); err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err)
	}
	return int(dur), nil
}
