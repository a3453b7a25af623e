// Package export turns rendered frame sequences and per-frame media asset
// snapshots into a single muxed output file, optionally split into
// per-worker frame shards for distributed rendering.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rendermux/rendermux/internal/config"
)

// Settings holds the immutable parameters of one export job. The scratch
// directory is exclusively owned by this job; it is keyed by job name plus a
// unique run id so concurrent jobs on one host never collide.
type Settings struct {
	JobName string
	JobID   string

	FPS    float64
	Width  int
	Height int

	OutputDir  string
	ScratchDir string
	// PublicDir resolves relative asset sources.
	PublicDir string

	IncludeAudio bool
	// AudioPath is an optional directly-provided audio source, encoded
	// alongside the frame stream instead of composed from asset snapshots.
	AudioPath string
	// AudioOffset is the start offset in seconds into AudioPath.
	AudioOffset float64

	FastStart        bool
	TrackConcurrency int
}

// NewSettings derives job settings from configuration. The job id is a fresh
// ULID; the scratch directory is placed under the configured scratch base.
func NewSettings(jobName string, cfg *config.Config) *Settings {
	id := ulid.Make().String()
	return &Settings{
		JobName:          jobName,
		JobID:            id,
		FPS:              cfg.Export.FPS,
		Width:            cfg.Export.Width,
		Height:           cfg.Export.Height,
		OutputDir:        cfg.Storage.OutputDir,
		ScratchDir:       filepath.Join(cfg.Storage.ScratchDir, fmt.Sprintf("%s-%s", sanitizeName(jobName), id)),
		PublicDir:        cfg.Storage.PublicPath(),
		FastStart:        cfg.Export.FastStart,
		TrackConcurrency: cfg.Export.TrackConcurrency,
	}
}

// EnsureDirs creates the output and scratch directories.
func (s *Settings) EnsureDirs() error {
	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.MkdirAll(s.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("creating scratch dir: %w", err)
	}
	return nil
}

// VisualsPath is the silent video file produced by the encoder.
func (s *Settings) VisualsPath() string {
	return filepath.Join(s.ScratchDir, "visuals.mp4")
}

// MixedAudioPath is the mixed audio track produced by the mixer.
func (s *Settings) MixedAudioPath() string {
	return filepath.Join(s.ScratchDir, "audio.wav")
}

// FinalPath is the final muxed output file.
func (s *Settings) FinalPath() string {
	return filepath.Join(s.OutputDir, s.JobName+".mp4")
}

// TrackPath is the prepared audio file for one asset key.
func (s *Settings) TrackPath(assetKey string) string {
	return filepath.Join(s.ScratchDir, sanitizeKey(assetKey)+".wav")
}

// keyReplacer strips characters that would break scratch file naming: path
// separators and the bracket characters asset keys use for indexing.
var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", "[", "_", "]", "_")

func sanitizeKey(key string) string {
	return keyReplacer.Replace(key)
}

func sanitizeName(name string) string {
	return keyReplacer.Replace(strings.TrimSpace(name))
}
