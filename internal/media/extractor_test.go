package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"learncards/internal/util"

	"github.com/stretchr/testify/require"
)

// fakeRunner answers ffprobe with a fixed duration and "renders" frames by
// writing the output file. Earlier timestamps sleep longer so that renders
// complete in reverse order.
type fakeRunner struct {
	duration string
	probeErr error
	failAt   string

	mu    sync.Mutex
	calls [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	if name == "ffprobe" {
		if f.probeErr != nil {
			return nil, f.probeErr
		}
		return []byte(f.duration + "\n"), nil
	}
	ss := argAfter(args, "-ss")
	out := args[len(args)-1]
	if ss == f.failAt {
		// ffmpeg leaves a truncated file behind on some failures.
		_ = os.WriteFile(out, []byte("partial"), 0o644)
		return nil, errors.New("ffmpeg: decode error")
	}
	sec, _ := strconv.ParseFloat(ss, 64)
	select {
	case <-time.After(time.Duration(100-sec) * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, os.WriteFile(out, []byte("jpeg"), 0o644)
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func newTestVideo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	video := filepath.Join(dir, "3f2a9c.mp4")
	require.NoError(t, os.WriteFile(video, []byte("video"), 0o644))
	return video, filepath.Join(dir, "frames")
}

func TestTimestampsEvenlySpacedInterior(t *testing.T) {
	got := Timestamps(40, 4)
	require.Equal(t, []float64{8, 16, 24, 32}, got)

	stamps := Timestamps(7.3, 6)
	spacing := 7.3 / 7
	for i, ts := range stamps {
		require.Greater(t, ts, 0.0)
		require.Less(t, ts, 7.3)
		require.InDelta(t, spacing*float64(i+1), ts, 1e-9)
	}
	require.Nil(t, Timestamps(10, 0))
	require.Nil(t, Timestamps(0, 3))
}

func TestExtractFramesShortClipKeepsPositiveSeconds(t *testing.T) {
	video, out := newTestVideo(t)
	e := NewExtractor(Options{Runner: &fakeRunner{duration: "2.000000"}})

	frames, err := e.ExtractFrames(context.Background(), video, out, 4)
	require.NoError(t, err)
	require.Len(t, frames, 4)

	got := make([]int, len(frames))
	for i, f := range frames {
		got[i] = f.TimestampSeconds
		require.Equal(t, FramePath(video, out, i+1), f.Path)
	}
	require.Equal(t, []int{1, 1, 1, 2}, got)
}

func TestExtractFramesSortedByTimestamp(t *testing.T) {
	video, out := newTestVideo(t)
	runner := &fakeRunner{duration: "40.000000"}
	e := NewExtractor(Options{Runner: runner, Width: 320})

	frames, err := e.ExtractFrames(context.Background(), video, out, 4)
	require.NoError(t, err)
	require.Len(t, frames, 4)

	want := []int{8, 16, 24, 32}
	for i, f := range frames {
		require.Equal(t, want[i], f.TimestampSeconds)
		require.Equal(t, FramePath(video, out, i+1), f.Path)
		require.FileExists(t, f.Path)
		if i > 0 {
			require.Greater(t, f.TimestampSeconds, frames[i-1].TimestampSeconds)
		}
	}
	require.Len(t, runner.calls, 5)
	require.Contains(t, runner.calls[1], "scale=320:-1")
}

func TestExtractFramesProbeFailure(t *testing.T) {
	video, out := newTestVideo(t)
	e := NewExtractor(Options{Runner: &fakeRunner{probeErr: errors.New("moov atom not found")}})

	_, err := e.ExtractFrames(context.Background(), video, out, 4)
	require.Error(t, err)
	require.ErrorIs(t, err, util.ErrMedia)
	var me *MediaError
	require.ErrorAs(t, err, &me)
	require.Equal(t, "probe", me.Op)
}

func TestExtractFramesUnparseableDuration(t *testing.T) {
	video, out := newTestVideo(t)
	e := NewExtractor(Options{Runner: &fakeRunner{duration: "N/A"}})
	_, err := e.ExtractFrames(context.Background(), video, out, 2)
	require.ErrorIs(t, err, util.ErrMedia)
}

func TestExtractFramesSingleFailureAbortsAndCleansUp(t *testing.T) {
	video, out := newTestVideo(t)
	e := NewExtractor(Options{Runner: &fakeRunner{duration: "40", failAt: "24.000"}})

	frames, err := e.ExtractFrames(context.Background(), video, out, 4)
	require.Error(t, err)
	require.Nil(t, frames)
	require.ErrorIs(t, err, util.ErrMedia)

	left, globErr := FrameGlob(video, out)
	require.NoError(t, globErr)
	require.Empty(t, left)
}

func TestFrameGlobScopedToVideo(t *testing.T) {
	dir := t.TempDir()
	a := FramePath("/uploads/aaa.mp4", dir, 1)
	b := FramePath("/uploads/bbb.mp4", dir, 1)
	require.NoError(t, os.WriteFile(a, nil, 0o644))
	require.NoError(t, os.WriteFile(b, nil, 0o644))

	got, err := FrameGlob("/uploads/aaa.mp4", dir)
	require.NoError(t, err)
	require.Equal(t, []string{a}, got)
}
