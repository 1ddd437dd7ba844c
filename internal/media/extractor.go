// Package media extracts an audio track from a local video file with ffmpeg.
package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"upload-ai-service/internal/models"
)

// Format is the container/codec of the extracted audio.
type Format string

const (
	// FormatMP3 is a low bitrate MP3, small enough for the upload limit.
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatWAV  Format = "wav"
)

// ParseFormat accepts mp3, flac or wav, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMP3, FormatFLAC, FormatWAV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported audio format %q", models.ErrValidation, s)
	}
}

// ProgressFunc receives conversion progress as a percentage in [0, 100].
type ProgressFunc func(percent int)

// Extractor turns a video file into an audio file.
type Extractor interface {
	// Extract writes the audio track of videoPath into outDir and returns the new path.
	Extract(ctx context.Context, videoPath, outDir string, format Format, progress ProgressFunc) (string, error)
}

// FFmpeg is an Extractor backed by the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	Binary      string
	ProbeBinary string

	lookPath func(string) (string, error)
}

// NewFFmpeg returns an extractor using binary, or "ffmpeg" from PATH when empty.
// ffprobe is looked up next to the ffmpeg binary.
func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	probe := "ffprobe"
	if dir := filepath.Dir(binary); dir != "." {
		probe = filepath.Join(dir, "ffprobe")
	}
	return &FFmpeg{Binary: binary, ProbeBinary: probe, lookPath: exec.LookPath}
}

// Available reports models.ErrMediaEngineUnavailable when ffmpeg cannot be found.
func (f *FFmpeg) Available() error {
	if _, err := f.lookPath(f.Binary); err != nil {
		return fmt.Errorf("%w: %s: %w", models.ErrMediaEngineUnavailable, f.Binary, err)
	}
	return nil
}

func (f *FFmpeg) Extract(ctx context.Context, videoPath, outDir string, format Format, progress ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(int) {}
	}
	bin, err := f.lookPath(f.Binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", models.ErrMediaEngineUnavailable, f.Binary, err)
	}
	if _, err := os.Stat(videoPath); err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrInvalidAudio, err)
	}
	if outDir == "" {
		outDir = os.TempDir()
	}

	out := OutputPath(videoPath, outDir, format)

	// Unknown duration only disables intermediate progress.
	total, _ := f.probeDuration(ctx, videoPath)

	progress(0)

	cmd := exec.CommandContext(ctx, bin, BuildArgs(videoPath, out, format)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("ffmpeg: %w", err)
	}
	var stderr tailBuffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w", err)
	}
	ParseProgress(stdout, total, progress)
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: ffmpeg: %w: %s", models.ErrInvalidAudio, err, strings.TrimSpace(stderr.String()))
	}

	progress(100)
	return out, nil
}

// OutputPath names the extracted file after the input, e.g. talk.mp4 -> talk.mp3.
func OutputPath(videoPath, outDir string, format Format) string {
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Join(outDir, base+"."+string(format))
}

// BuildArgs returns the ffmpeg arguments converting input to output.
func BuildArgs(input, output string, format Format) []string {
	args := []string{"-y", "-hide_banner", "-nostats", "-i", input, "-map", "0:a"}
	switch format {
	case FormatFLAC:
		args = append(args, "-ac", "1", "-ar", "16000", "-acodec", "flac")
	case FormatWAV:
		args = append(args, "-ac", "1", "-ar", "16000", "-f", "wav")
	default:
		args = append(args, "-b:a", "20k", "-acodec", "libmp3lame")
	}
	return append(args, "-progress", "pipe:1", output)
}

func (f *FFmpeg) probeDuration(ctx context.Context, input string) (time.Duration, error) {
	bin, err := f.lookPath(f.ProbeBinary)
	if err != nil {
		return 0, err
	}
	out, err := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseSeconds(strings.TrimSpace(string(out)))
}

func parseSeconds(s string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// ParseProgress reads ffmpeg "-progress" key=value output and reports strictly
// increasing percentages below 100. It returns when r is exhausted.
func ParseProgress(r io.Reader, total time.Duration, progress ProgressFunc) {
	last := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok || total <= 0 {
			continue
		}
		// out_time_ms is reported in microseconds as well.
		if key != "out_time_us" && key != "out_time_ms" {
			continue
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			continue
		}
		pct := int(time.Duration(us) * time.Microsecond * 100 / total)
		if pct > 99 {
			pct = 99
		}
		if pct > last {
			last = pct
			progress(pct)
		}
	}
}

// tailBuffer keeps the last few KiB written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

const tailLimit = 4 << 10

func (t *tailBuffer) Write(p []byte) (int, error) {
	n, _ := t.buf.Write(p)
	if over := t.buf.Len() - tailLimit; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string { return t.buf.String() }
