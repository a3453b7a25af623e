package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rendermux/rendermux/internal/ffmpeg"
)

// Mixer combines prepared tracks into one mixed track. Inputs are summed to
// the longest track's duration (shorter tracks contribute silence after
// they end) and the amplitude is divided by the input count so the sum
// cannot clip.
type Mixer struct {
	logger     *slog.Logger
	ffmpegPath string
	settings   *Settings
}

// NewMixer creates a mixer.
func NewMixer(logger *slog.Logger, ffmpegPath string, settings *Settings) *Mixer {
	return &Mixer{logger: logger, ffmpegPath: ffmpegPath, settings: settings}
}

// Mix produces the mixed track from the prepared track paths and returns its
// path. Zero tracks skip the stage entirely and return an empty path; a
// single track still passes through the mixer so downstream always sees one
// uniform PCM file.
func (m *Mixer) Mix(ctx context.Context, tracks []string) (string, error) {
	if len(tracks) == 0 {
		return "", nil
	}

	out := m.settings.MixedAudioPath()

	builder := ffmpeg.NewCommandBuilder(m.ffmpegPath).
		HideBanner().
		Overwrite()
	for _, track := range tracks {
		builder.Input(track)
	}

	builder.FilterComplex(MixFilter(len(tracks))).
		OutputArgs("-c:a", MixCodec).
		Output(out)

	cmd := builder.Build()
	m.logger.Debug("mixing audio tracks",
		slog.Int("tracks", len(tracks)),
		slog.String("out", out))

	if err := cmd.Run(ctx); err != nil {
		return "", fmt.Errorf("mixing %d tracks: %w", len(tracks), err)
	}

	return out, nil
}

// MixFilter is the filter graph summing n inputs to the longest duration and
// averaging the amplitude.
func MixFilter(n int) string {
	return fmt.Sprintf("amix=inputs=%d:duration=longest:normalize=0,volume=%s",
		n, formatFloat(1/float64(n)))
}
