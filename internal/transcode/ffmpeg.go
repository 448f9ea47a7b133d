package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	stderrTailBytes = 4096
	waitDelay       = 5 * time.Second
)

// FFmpegTranscoder shells out to ffmpeg.
type FFmpegTranscoder struct {
	binary  string
	timeout time.Duration
}

func NewFFmpegTranscoder(binary string, timeout time.Duration) *FFmpegTranscoder {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTranscoder{binary: binary, timeout: timeout}
}

func (f *FFmpegTranscoder) Run(ctx context.Context, input, output string, opts Options) (ExitStatus, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd := exec.CommandContext(ctx, f.binary, Args(input, output, opts)...)
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return ExitStatus{Code: -1}, fmt.Errorf("start %s: %w", f.binary, err)
	}
	err := cmd.Wait()
	if err == nil {
		return ExitStatus{Code: 0, Stderr: stderr.String()}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ExitStatus{Code: -1, Stderr: stderr.String()}, fmt.Errorf("%s aborted: %w", f.binary, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return ExitStatus{Code: exitErr.ExitCode(), Stderr: stderr.String()}, nil
	}
	return ExitStatus{Code: -1, Stderr: stderr.String()}, fmt.Errorf("wait %s: %w", f.binary, err)
}

// Args builds the ffmpeg argument list: H.264 video capped at MaxHeight, AAC audio, faststart MP4.
func Args(input, output string, opts Options) []string {
	height := opts.MaxHeight
	if height <= 0 {
		height = 720
	}
	crf := opts.CRF
	if crf <= 0 {
		crf = 23
	}
	preset := opts.Preset
	if preset == "" {
		preset = "veryfast"
	}
	audio := opts.AudioBitrate
	if audio == "" {
		audio = "128k"
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-vf", fmt.Sprintf("scale=-2:'min(%d,ih)'", height),
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(crf),
		"-pix_fmt", "yuv420p",
	}
	if opts.MaxBitrate != "" {
		args = append(args, "-maxrate", opts.MaxBitrate, "-bufsize", doubleBitrate(opts.MaxBitrate))
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", audio,
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	)
	return args
}

// doubleBitrate turns "2500k" into "5000k"; unparseable values are passed through.
func doubleBitrate(rate string) string {
	trimmed := strings.TrimSpace(rate)
	if trimmed == "" {
		return trimmed
	}
	suffix := ""
	digits := trimmed
	if last := trimmed[len(trimmed)-1]; last < '0' || last > '9' {
		suffix = string(last)
		digits = trimmed[:len(trimmed)-1]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return trimmed
	}
	return strconv.Itoa(n*2) + suffix
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) > t.limit {
		p = p[len(p)-t.limit:]
	}
	if overflow := t.buf.Len() + len(p) - t.limit; overflow > 0 {
		t.buf.Next(overflow)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(t.buf.String())
}
