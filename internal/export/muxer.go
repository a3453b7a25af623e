package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rendermux/rendermux/internal/ffmpeg"
)

// Muxer combines the mixed audio track with the silent video file into the
// final container. Stream lengths were already reconciled at the encode
// stage, so the merge copies the video stream without further trimming.
type Muxer struct {
	logger     *slog.Logger
	ffmpegPath string
	settings   *Settings
}

// NewMuxer creates a muxer.
func NewMuxer(logger *slog.Logger, ffmpegPath string, settings *Settings) *Muxer {
	return &Muxer{logger: logger, ffmpegPath: ffmpegPath, settings: settings}
}

// Merge produces the final output file. With an audio track the streams are
// muxed; without one the silent video is copied directly to the final path,
// saving a pointless re-encode.
func (m *Muxer) Merge(ctx context.Context, videoPath, audioPath string) (string, error) {
	out := m.settings.FinalPath()

	if audioPath == "" {
		m.logger.Debug("no audio track, copying video directly", slog.String("out", out))
		if err := copyFile(videoPath, out); err != nil {
			return "", fmt.Errorf("copying silent video: %w", err)
		}
		return out, nil
	}

	cmd := ffmpeg.NewCommandBuilder(m.ffmpegPath).
		HideBanner().
		Overwrite().
		Input(videoPath).
		Input(audioPath).
		OutputArgs("-c:v", "copy", "-c:a", "aac").
		Output(out).
		Build()

	m.logger.Debug("muxing audio and video",
		slog.String("video", videoPath),
		slog.String("audio", audioPath),
		slog.String("out", out))

	if err := cmd.Run(ctx); err != nil {
		return "", fmt.Errorf("muxing final output: %w", err)
	}

	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
