package clips

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/gazemap/internal/ffmpeg"
)

func TestPlanShortVideoIsCopiedWhole(t *testing.T) {
	plan := Plan("clip", 45*time.Second, DefaultSplitOptions())
	assert.Equal(t, []Clip{{Name: "clip.mp4", Start: 0, End: 45 * time.Second}}, plan)
}

func TestPlanSplitsIntoParts(t *testing.T) {
	plan := Plan("clip", 100*time.Second, DefaultSplitOptions())
	require.Len(t, plan, 5)
	for i, c := range plan {
		assert.Equal(t, 20*time.Second, c.Duration(), "part %d", i+1)
	}
	assert.Equal(t, "part_1.mp4", plan[0].Name)
	assert.Equal(t, "part_5.mp4", plan[4].Name)
	assert.Equal(t, 100*time.Second, plan[4].End)
}

func TestPlanCapsAndAddsLeftover(t *testing.T) {
	plan := Plan("clip", 7*time.Minute, DefaultSplitOptions())
	require.Len(t, plan, 6)
	assert.Equal(t, Clip{Name: "part_5.mp4", Start: 240 * time.Second, End: 300 * time.Second}, plan[4])
	assert.Equal(t, Clip{Name: "leftover.mp4", Start: 300 * time.Second, End: 7 * time.Minute}, plan[5])
}

func TestPlanExactlyAtCapHasNoLeftover(t *testing.T) {
	plan := Plan("clip", 300*time.Second, DefaultSplitOptions())
	assert.Len(t, plan, 5)
	assert.Empty(t, Plan("clip", 0, DefaultSplitOptions()))
}

func TestPlanPartsAreContiguous(t *testing.T) {
	plan := Plan("clip", 61*time.Second+7*time.Millisecond, SplitOptions{ShortThreshold: time.Minute, MaxDuration: time.Hour, Parts: 3})
	require.Len(t, plan, 3)
	assert.Zero(t, plan[0].Start)
	for i := 1; i < len(plan); i++ {
		assert.Equal(t, plan[i-1].End, plan[i].Start)
	}
	assert.Equal(t, 61*time.Second+7*time.Millisecond, plan[2].End)
}

func TestFilterByDuration(t *testing.T) {
	kept, skipped := FilterByDuration([]Input{
		{Path: "a.mp4", Duration: 5 * time.Second},
		{Path: "b.mp4", Duration: 10 * time.Second},
		{Path: "c.mp4", Duration: time.Minute},
	}, 10*time.Second)

	assert.Equal(t, []Input{{Path: "b.mp4", Duration: 10 * time.Second}, {Path: "c.mp4", Duration: time.Minute}}, kept)
	assert.Equal(t, []Input{{Path: "a.mp4", Duration: 5 * time.Second}}, skipped)
}

type fakeExtractor struct {
	durations map[string]time.Duration
	failOn    string
	clips     []ffmpeg.ClipOptions
}

func (f *fakeExtractor) ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	d, ok := f.durations[path]
	if !ok {
		return nil, errors.New("ffprobe failed")
	}
	return &ffmpeg.VideoInfo{FilePath: path, Duration: d}, nil
}

func (f *fakeExtractor) ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error {
	if input == f.failOn {
		return errors.New("clip extraction failed")
	}
	f.clips = append(f.clips, opts)
	return nil
}

func TestSplitterRunsBatch(t *testing.T) {
	out := t.TempDir()
	fx := &fakeExtractor{
		durations: map[string]time.Duration{
			"/videos/short.mp4":  30 * time.Second,
			"/videos/long.mov":   400 * time.Second,
			"/videos/tiny.mp4":   3 * time.Second,
			"/videos/broken.mp4": 90 * time.Second,
		},
		failOn: "/videos/broken.mp4",
	}

	s := NewSplitter(zerolog.Nop(), fx, DefaultSplitOptions(), ffmpeg.EncodeOptions{Preset: "fast"})
	report, err := s.Split(context.Background(),
		[]string{"/videos/short.mp4", "/videos/missing.mp4", "/videos/long.mov", "/videos/tiny.mp4", "/videos/broken.mp4"},
		out, 10*time.Second)
	require.NoError(t, err)

	assert.Equal(t, []string{"/videos/tiny.mp4"}, report.Skipped)
	assert.Equal(t, []string{"/videos/missing.mp4", "/videos/broken.mp4"}, report.Failed)
	require.Len(t, report.Written, 7)
	assert.Equal(t, filepath.Join(out, "short", "short.mp4"), report.Written[0])
	assert.Equal(t, filepath.Join(out, "long", "leftover.mp4"), report.Written[6])

	for _, c := range fx.clips {
		assert.Equal(t, "fast", c.Encode.Preset)
	}
	_, err = os.Stat(filepath.Join(out, "long"))
	assert.NoError(t, err)
}

func TestSplitterStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSplitter(zerolog.Nop(), &fakeExtractor{}, DefaultSplitOptions(), ffmpeg.EncodeOptions{})
	_, err := s.Split(ctx, []string{"a.mp4"}, t.TempDir(), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
