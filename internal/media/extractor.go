package media

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"learncards/internal/logger"
	"learncards/internal/models"
	"learncards/internal/util"

	"golang.org/x/sync/errgroup"
)

// CommandRunner executes an external binary and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(ee.Stderr)))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// ExecRunner runs commands on the host.
func ExecRunner() CommandRunner { return execRunner{} }

type Options struct {
	FFmpegPath  string
	FFprobePath string
	Width       int
	Runner      CommandRunner
	Log         *logger.Logger
}

// Extractor samples still frames from a video with ffprobe and ffmpeg.
type Extractor struct {
	ffmpeg  string
	ffprobe string
	width   int
	runner  CommandRunner
	log     *logger.Logger
}

func NewExtractor(opts Options) *Extractor {
	e := &Extractor{
		ffmpeg:  opts.FFmpegPath,
		ffprobe: opts.FFprobePath,
		width:   opts.Width,
		runner:  opts.Runner,
		log:     logger.OrNop(opts.Log).With("service", "FrameExtractor"),
	}
	if e.ffmpeg == "" {
		e.ffmpeg = "ffmpeg"
	}
	if e.ffprobe == "" {
		e.ffprobe = "ffprobe"
	}
	if e.width <= 0 {
		e.width = 512
	}
	if e.runner == nil {
		e.runner = ExecRunner()
	}
	return e
}

// Probe returns the duration of the video in seconds.
func (e *Extractor) Probe(ctx context.Context, videoPath string) (float64, error) {
	out, err := e.runner.Run(ctx, e.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		return 0, newMediaError("probe", videoPath, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, newMediaError("probe", videoPath, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err))
	}
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, newMediaError("probe", videoPath, fmt.Errorf("invalid duration %v", d))
	}
	return d, nil
}

// Timestamps spreads count samples over the interior of a video: the k-th
// sample sits at k*duration/(count+1), so neither end is ever sampled.
func Timestamps(duration float64, count int) []float64 {
	if count <= 0 || duration <= 0 {
		return nil
	}
	interval := duration / float64(count+1)
	out := make([]float64, count)
	for k := 1; k <= count; k++ {
		out[k-1] = interval * float64(k)
	}
	return out
}

// wholeSecond rounds a sample time to the second reported on its frame,
// never below 1. Clips shorter than count+1 seconds can therefore report the
// same second on neighbouring frames; the frame order itself stays strict.
func wholeSecond(ts float64) int {
	return max(1, int(math.Round(ts)))
}

// FramePath names the k-th frame of a video inside outputDir.
func FramePath(videoPath, outputDir string, k int) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s-frame-%d.jpg", baseName(videoPath), k))
}

// FrameGlob lists every frame file a run over videoPath may have produced.
func FrameGlob(videoPath, outputDir string) ([]string, error) {
	pattern := filepath.Join(outputDir, escapeGlob(baseName(videoPath))+"-frame-*.jpg")
	return filepath.Glob(pattern)
}

// ExtractFrames renders count evenly spaced JPEG frames, all concurrently.
// Any failure aborts the whole extraction and removes what was rendered.
func (e *Extractor) ExtractFrames(ctx context.Context, videoPath, outputDir string, count int) ([]models.Frame, error) {
	if count <= 0 {
		return nil, newMediaError("extract", videoPath, fmt.Errorf("frame count must be positive, got %d", count))
	}
	if err := util.EnsureDir(outputDir); err != nil {
		return nil, newMediaError("extract", videoPath, err)
	}
	duration, err := e.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	stamps := Timestamps(duration, count)
	e.log.Debug("extracting frames", "video", videoPath, "duration", duration, "count", count)

	type rendered struct {
		frame models.Frame
		at    float64
	}
	results := make(chan rendered, count)
	g, gctx := errgroup.WithContext(ctx)
	for i, ts := range stamps {
		k, ts := i+1, ts
		g.Go(func() error {
			out := FramePath(videoPath, outputDir, k)
			if err := e.renderFrame(gctx, videoPath, out, ts); err != nil {
				return newMediaError("render frame", videoPath, fmt.Errorf("frame %d at %.2fs: %w", k, ts, err))
			}
			results <- rendered{frame: models.Frame{Path: out, TimestampSeconds: wholeSecond(ts)}, at: ts}
			return nil
		})
	}
	err = g.Wait()
	close(results)
	done := make([]rendered, 0, count)
	for r := range results {
		done = append(done, r)
	}
	if err != nil {
		paths, _ := FrameGlob(videoPath, outputDir)
		for _, r := range done {
			paths = append(paths, r.frame.Path)
		}
		_ = util.RemoveFiles(paths...)
		return nil, err
	}

	// Renders finish out of order.
	sort.Slice(done, func(i, j int) bool { return done[i].at < done[j].at })
	frames := make([]models.Frame, len(done))
	for i, r := range done {
		frames[i] = r.frame
	}
	return frames, nil
}

func (e *Extractor) renderFrame(ctx context.Context, videoPath, outPath string, ts float64) error {
	_, err := e.runner.Run(ctx, e.ffmpeg,
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(ts, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", e.width),
		"-q:v", "2",
		"-y", outPath,
	)
	return err
}

func baseName(videoPath string) string {
	b := filepath.Base(videoPath)
	return strings.TrimSuffix(b, filepath.Ext(b))
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}
