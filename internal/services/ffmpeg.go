package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// FFmpegService
// All subprocess calls are bounded by a configurable wall-clock timeout so a
// wedged ffmpeg can never stall an export job forever.
// ---------------------------------------------------------------------------

// ProbeStream is a single stream entry from ffprobe -show_streams.
type ProbeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// ProbeFormat is the container-level entry from ffprobe -show_format.
type ProbeFormat struct {
	Duration string `json:"duration"`
}

// ProbeResult is the parsed ffprobe output for one media file.
type ProbeResult struct {
	Streams []ProbeStream `json:"streams"`
	Format  ProbeFormat   `json:"format"`
}

// VideoStream returns the first video stream, or nil if the file has none.
func (p *ProbeResult) VideoStream() *ProbeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "video" {
			return &p.Streams[i]
		}
	}
	return nil
}

// DurationSeconds parses the container duration. Returns 0 when missing.
func (p *ProbeResult) DurationSeconds() float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(p.Format.Duration), 64)
	if err != nil {
		return 0
	}
	return d
}

// VideoTool is the subprocess surface the export engine drives. Split out as
// an interface so engine tests can run against a fake instead of real ffmpeg.
type VideoTool interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
	Concat(ctx context.Context, inputs []string, outputPath string) error
	ConcatWithTransitions(ctx context.Context, inputs []string, durations []float64, transition float64, outputPath string) error
	Optimize(ctx context.Context, inputPath, outputPath, dimensions string) error
	MeanFrameIntensity(ctx context.Context, path string) (float64, error)
}

type FFmpegService struct {
	ffmpegBin  string
	ffprobeBin string
	tempDir    string
	timeout    time.Duration
}

// NewFFmpegService creates the service and its temp directory. Binary names
// default to ffmpeg/ffprobe on PATH; timeout defaults to two minutes.
func NewFFmpegService(ffmpegBin, ffprobeBin, tempDir string, timeout time.Duration) (*FFmpegService, error) {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "animator")
	}
	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	return &FFmpegService{
		ffmpegBin:  ffmpegBin,
		ffprobeBin: ffprobeBin,
		tempDir:    tempDir,
		timeout:    timeout,
	}, nil
}

// Probe inspects a media file and returns stream + container metadata.
func (s *FFmpegService) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_streams",
		"-show_format",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, s.ffprobeBin, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return &result, nil
}

// Concat joins the inputs into one file using the concat demuxer. Clips come
// from different render runs, so everything is re-encoded to a uniform
// stream instead of -c copy.
func (s *FFmpegService) Concat(ctx context.Context, inputs []string, outputPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath, err := s.writeConcatList(inputs)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}

	return s.runFFmpeg(ctx, args, "concatenate")
}

// ConcatWithTransitions joins the inputs with crossfades via a chained xfade
// filter graph. durations must hold the probed length of each input in
// order; transition is the fade length in seconds.
func (s *FFmpegService) ConcatWithTransitions(ctx context.Context, inputs []string, durations []float64, transition float64, outputPath string) error {
	if len(inputs) < 2 {
		return fmt.Errorf("transitions need at least 2 clips, got %d", len(inputs))
	}
	if len(durations) != len(inputs) {
		return fmt.Errorf("got %d durations for %d clips", len(durations), len(inputs))
	}

	filter, outLabel := BuildXfadeFilter(durations, transition)

	args := make([]string, 0, len(inputs)*2+10)
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", filter,
		"-map", outLabel,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	)

	return s.runFFmpeg(ctx, args, "xfade concatenate")
}

// BuildXfadeFilter constructs the chained crossfade graph for N clips and
// returns the filter string plus the label of the final output stream. Each
// fade starts transition seconds before the end of the accumulated stream,
// so the running offset grows by dur[i-1]-transition per link.
func BuildXfadeFilter(durations []float64, transition float64) (string, string) {
	var b strings.Builder
	cur := "[0:v]"
	offset := 0.0

	for i := 1; i < len(durations); i++ {
		offset += durations[i-1] - transition
		out := fmt.Sprintf("[fade%d]", i)
		fmt.Fprintf(&b, "%s[%d:v]xfade=transition=fade:duration=%g:offset=%g%s",
			cur, i, transition, offset, out)
		if i < len(durations)-1 {
			b.WriteString(";")
		}
		cur = out
	}

	return b.String(), cur
}

// Optimize re-encodes the file at the target dimensions with the moov atom
// up front for streaming playback. dimensions is "WxH", e.g. "1280x720".
func (s *FFmpegService) Optimize(ctx context.Context, inputPath, outputPath, dimensions string) error {
	parts := strings.SplitN(dimensions, "x", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid dimensions %q", dimensions)
	}

	args := []string{
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%s:%s", parts[0], parts[1]),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}

	return s.runFFmpeg(ctx, args, "optimize")
}

// MeanFrameIntensity extracts a single grayscale frame partway into the
// video and returns the mean pixel intensity (0-255). Near-zero means the
// output is effectively black.
func (s *FFmpegService) MeanFrameIntensity(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := []string{
		"-i", path,
		"-vf", `select=eq(n\,50)`,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-",
	}

	cmd := exec.CommandContext(ctx, s.ffmpegBin, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffmpeg frame extraction failed: %w", err)
	}

	frame := stdout.Bytes()
	if len(frame) == 0 {
		return 0, fmt.Errorf("no frame data extracted from %s", path)
	}

	var sum uint64
	for _, px := range frame {
		sum += uint64(px)
	}
	return float64(sum) / float64(len(frame)), nil
}

func (s *FFmpegService) writeConcatList(inputs []string) (string, error) {
	f, err := os.CreateTemp(s.tempDir, "concat_*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat list: %w", err)
	}

	for _, path := range inputs {
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}

	return f.Name(), nil
}

func (s *FFmpegService) runFFmpeg(ctx context.Context, args []string, op string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log.Printf("[FFmpeg] %s: %s %s", op, s.ffmpegBin, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, s.ffmpegBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg %s timed out after %v", op, s.timeout)
		}
		tail := stderr.String()
		const maxTail = 800
		if len(tail) > maxTail {
			tail = "..." + tail[len(tail)-maxTail:]
		}
		return fmt.Errorf("ffmpeg %s failed: %w (stderr: %s)", op, err, strings.TrimSpace(tail))
	}

	return nil
}
