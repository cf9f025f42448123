package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgemoorlf/smootie/internal/testutil"
)

// fakeRunner replays scripted outputs per command name and records every
// invocation.
type fakeRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return f.outputs[name], nil
}

func (f *fakeRunner) callsFor(name string) [][]string {
	var out [][]string
	for _, c := range f.calls {
		if c[0] == name {
			out = append(out, c)
		}
	}
	return out
}

func newTool(t *testing.T, runner Runner, outputDir string) *Tool {
	t.Helper()
	tool, err := New(Config{
		Runner:    runner,
		Logger:    testutil.DiscardLogger(),
		OutputDir: outputDir,
	})
	require.NoError(t, err)
	return tool
}

func TestParseSegments(t *testing.T) {
	tests := []struct {
		name        string
		spec        string
		want        []Segment
		wantDropped int
		wantErr     error
	}{
		{
			name: "two segments",
			spec: "0:00-0:05=idle,0:06-0:12=walk",
			want: []Segment{
				{Start: "0:00", End: "0:05", Action: "idle"},
				{Start: "0:06", End: "0:12", Action: "walk"},
			},
		},
		{
			name: "whitespace and fractional seconds",
			spec: " 0:00-0:05.5 = idle , 1:02:03-1:02:30=jump ",
			want: []Segment{
				{Start: "0:00", End: "0:05.5", Action: "idle"},
				{Start: "1:02:03", End: "1:02:30", Action: "jump"},
			},
		},
		{
			name: "malformed segments dropped, valid kept",
			spec: "nonsense,0:00-0:05=idle,0:06=walk,0:07-0:09=",
			want: []Segment{
				{Start: "0:00", End: "0:05", Action: "idle"},
			},
			wantDropped: 3,
		},
		{
			name:        "bad timestamps dropped",
			spec:        "abc-def=idle,0:00-0:05=ok",
			want:        []Segment{{Start: "0:00", End: "0:05", Action: "ok"}},
			wantDropped: 1,
		},
		{
			name:        "nothing valid",
			spec:        "garbage,also=garbage",
			wantDropped: 2,
			wantErr:     ErrNoSegments,
		},
		{
			name:    "empty spec",
			spec:    "",
			wantErr: ErrNoSegments,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dropped, err := ParseSegments(tt.spec)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Len(t, dropped, tt.wantDropped)
		})
	}
}

func TestSplitExtractsClips(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.mp4")
	require.NoError(t, os.WriteFile(source, []byte("fake"), 0o644))

	runner := &fakeRunner{}
	tool := newTool(t, runner, dir)

	segments := []Segment{
		{Start: "0:00", End: "0:05", Action: "idle"},
		{Start: "0:06", End: "0:12", Action: "walk"},
	}
	report, err := tool.Split(context.Background(), source, "", segments)
	require.NoError(t, err)

	assert.Equal(t, []string{"idle", "walk"}, report.Extracted)
	assert.Empty(t, report.Failed)

	calls := runner.callsFor("ffmpeg")
	require.Len(t, calls, 2)

	first := strings.Join(calls[0], " ")
	assert.Contains(t, first, "-i "+source)
	assert.Contains(t, first, "-ss 0:00")
	assert.Contains(t, first, "-to 0:05")
	assert.Contains(t, first, filepath.Join(dir, "idle.mp4"))
	// Re-encode so cuts land off keyframes.
	assert.Contains(t, first, "-c:v libx264")
}

func TestSplitContinuesPastClipFailure(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.mp4")
	require.NoError(t, os.WriteFile(source, []byte("fake"), 0o644))

	runner := &fakeRunner{errs: map[string]error{"ffmpeg": errors.New("encode failed")}}
	tool := newTool(t, runner, dir)

	segments := []Segment{
		{Start: "0:00", End: "0:05", Action: "idle"},
		{Start: "0:06", End: "0:12", Action: "walk"},
	}
	report, err := tool.Split(context.Background(), source, "", segments)
	require.NoError(t, err)

	assert.Empty(t, report.Extracted)
	assert.Equal(t, []string{"idle", "walk"}, report.Failed)
	assert.Len(t, runner.callsFor("ffmpeg"), 2)
}

func TestSplitMissingSource(t *testing.T) {
	tool := newTool(t, &fakeRunner{}, t.TempDir())

	_, err := tool.Split(context.Background(), "/does/not/exist.mp4", "", []Segment{{Start: "0", End: "1", Action: "x"}})
	require.Error(t, err)
}

func searchHit(title, url string, duration, views int) string {
	return fmt.Sprintf(`{"title":%q,"webpage_url":%q,"duration":%d,"uploader":"up","view_count":%d}`,
		title, url, duration, views)
}

func TestSearchFiltersAndSorts(t *testing.T) {
	lines := []string{
		searchHit("too long", "https://v/long", 400, 999),
		searchHit("popular", "https://v/pop", 10, 5000),
		searchHit("niche", "https://v/niche", 15, 100),
		"this line is not json",
		searchHit("duplicate", "https://v/pop", 10, 5000),
		searchHit("too short", "https://v/short", 1, 999),
	}
	runner := &fakeRunner{outputs: map[string][]byte{
		"yt-dlp": []byte(strings.Join(lines, "\n")),
	}}
	tool := newTool(t, runner, t.TempDir())

	results, err := tool.Search(context.Background(), "waving")
	require.NoError(t, err)

	// One yt-dlp call per catalog keyword.
	assert.Len(t, runner.callsFor("yt-dlp"), len(BuiltinCatalog()["waving"].Keywords))

	// Duration-filtered, deduped by URL, sorted by views descending.
	seen := map[string]bool{}
	for _, r := range results {
		assert.False(t, seen[r.URL], "duplicate URL %s", r.URL)
		seen[r.URL] = true
		assert.GreaterOrEqual(t, r.Duration, minClipDuration)
		assert.LessOrEqual(t, r.Duration, maxClipDuration)
	}
	require.NotEmpty(t, results)
	assert.Equal(t, "popular", results[0].Title)
}

func TestSearchUnknownAction(t *testing.T) {
	tool := newTool(t, &fakeRunner{}, t.TempDir())
	_, err := tool.Search(context.Background(), "moonwalking")
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestSearchSourcesUsesLongerWindow(t *testing.T) {
	lines := []string{
		searchHit("short clip", "https://v/1", 10, 100),
		searchHit("reference reel", "https://v/2", 120, 100),
	}
	runner := &fakeRunner{outputs: map[string][]byte{
		"yt-dlp": []byte(strings.Join(lines, "\n")),
	}}
	tool := newTool(t, runner, t.TempDir())

	results, err := tool.SearchSources(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "reference reel", r.Title)
	}
}

func TestDownloadWritesIntoSet(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	tool := newTool(t, runner, dir)

	path, err := tool.Download(context.Background(), "https://v/x", "waving", "myset")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "myset", "waving.mp4"), path)

	// The set directory was created.
	info, err := os.Stat(filepath.Join(dir, "myset"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	calls := runner.callsFor("yt-dlp")
	require.Len(t, calls, 1)
	joined := strings.Join(calls[0], " ")
	assert.Contains(t, joined, "-f "+downloadFormat)
	assert.Contains(t, joined, "-o "+path)
	assert.Contains(t, joined, "https://v/x")
}

func TestDownloadUnknownAction(t *testing.T) {
	tool := newTool(t, &fakeRunner{}, t.TempDir())
	_, err := tool.Download(context.Background(), "https://v/x", "moonwalking", "s")
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestDownloadSourceProbesDuration(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{outputs: map[string][]byte{
		"ffprobe": []byte(`{"format":{"duration":"93.4"}}`),
	}}
	tool := newTool(t, runner, dir)

	path, dur, err := tool.DownloadSource(context.Background(), "https://v/x", "myset")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "myset", "source.mp4"), path)
	assert.Equal(t, 93, dur)
}

func TestDownloadSourceSurvivesProbeFailure(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{"ffprobe": errors.New("probe failed")}}
	tool := newTool(t, runner, t.TempDir())

	path, dur, err := tool.DownloadSource(context.Background(), "https://v/x", "s")
	require.NoError(t, err, "a probe failure does not fail the download")
	assert.NotEmpty(t, path)
	assert.Zero(t, dur)
}

func TestCheckDeps(t *testing.T) {
	tool := newTool(t, &fakeRunner{}, t.TempDir())
	require.NoError(t, tool.CheckDeps(context.Background()))

	missing := newTool(t, &fakeRunner{errs: map[string]error{"yt-dlp": errors.New("not found")}}, t.TempDir())
	err := missing.CheckDeps(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yt-dlp")
}
