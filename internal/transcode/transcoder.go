package transcode

import (
	"context"

	"github.com/snapwall/snapwall-backend/pkg/config"
)

// Options shape the H.264/AAC rendition.
type Options struct {
	MaxHeight    int
	CRF          int
	Preset       string
	MaxBitrate   string
	AudioBitrate string
}

// OptionsFromConfig copies the rendition settings out of the transcode config.
func OptionsFromConfig(cfg config.TranscodeConfig) Options {
	return Options{
		MaxHeight:    cfg.MaxHeight,
		CRF:          cfg.CRF,
		Preset:       cfg.Preset,
		MaxBitrate:   cfg.MaxBitrate,
		AudioBitrate: cfg.AudioBitrate,
	}
}

// ExitStatus is the outcome of one transcoder run. Stderr holds the tail of the tool's diagnostics.
type ExitStatus struct {
	Code   int
	Stderr string
}

// Success reports a zero exit.
func (s ExitStatus) Success() bool {
	return s.Code == 0
}

// Transcoder converts input into an MP4 rendition at output.
// A non-nil error means the tool could not be started or was killed; a non-zero Code means it ran and failed.
type Transcoder interface {
	Run(ctx context.Context, input, output string, opts Options) (ExitStatus, error)
}
