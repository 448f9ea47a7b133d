package transcode

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapwall/snapwall-backend/pkg/config"
)

func TestArgs(t *testing.T) {
	opts := OptionsFromConfig(config.TranscodeConfig{
		MaxHeight:    720,
		CRF:          23,
		Preset:       "veryfast",
		MaxBitrate:   "2500k",
		AudioBitrate: "128k",
	})
	args := strings.Join(Args("in.mov", "out.mp4", opts), " ")

	assert.Contains(t, args, "-i in.mov")
	assert.Contains(t, args, "scale=-2:'min(720,ih)'")
	assert.Contains(t, args, "-c:v libx264")
	assert.Contains(t, args, "-crf 23")
	assert.Contains(t, args, "-maxrate 2500k -bufsize 5000k")
	assert.Contains(t, args, "-c:a aac -b:a 128k")
	assert.Contains(t, args, "-movflags +faststart")
	assert.True(t, strings.HasSuffix(args, "out.mp4"))
}

func TestArgsDefaults(t *testing.T) {
	args := strings.Join(Args("in", "out", Options{}), " ")
	assert.Contains(t, args, "min(720,ih)")
	assert.Contains(t, args, "-preset veryfast")
	assert.NotContains(t, args, "-maxrate")
}

func TestDoubleBitrate(t *testing.T) {
	assert.Equal(t, "5000k", doubleBitrate("2500k"))
	assert.Equal(t, "4M", doubleBitrate("2M"))
	assert.Equal(t, "800", doubleBitrate("400"))
	assert.Equal(t, "fast", doubleBitrate("fast"))
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	buf := &tailBuffer{limit: 8}
	_, _ = buf.Write([]byte("0123456789"))
	assert.Equal(t, "23456789", buf.String())
	_, _ = buf.Write([]byte("ab"))
	assert.Equal(t, "456789ab", buf.String())
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestFFmpegTranscoderExitStatus(t *testing.T) {
	bin := writeScript(t, `echo "Invalid data found when processing input" >&2; exit 3`)
	status, err := NewFFmpegTranscoder(bin, time.Minute).Run(context.Background(), "in", "out", Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, status.Code)
	assert.False(t, status.Success())
	assert.Contains(t, status.Stderr, "Invalid data")
}

func TestFFmpegTranscoderSuccess(t *testing.T) {
	bin := writeScript(t, `exit 0`)
	status, err := NewFFmpegTranscoder(bin, time.Minute).Run(context.Background(), "in", "out", Options{})
	require.NoError(t, err)
	assert.True(t, status.Success())
}

func TestFFmpegTranscoderSpawnFailure(t *testing.T) {
	_, err := NewFFmpegTranscoder(filepath.Join(t.TempDir(), "missing"), time.Minute).
		Run(context.Background(), "in", "out", Options{})
	require.Error(t, err)
}

func TestFFmpegTranscoderTimeout(t *testing.T) {
	bin := writeScript(t, `exec sleep 5`)
	_, err := NewFFmpegTranscoder(bin, 50*time.Millisecond).Run(context.Background(), "in", "out", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
