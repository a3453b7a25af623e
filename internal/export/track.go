package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rendermux/rendermux/internal/ffmpeg"
	"golang.org/x/sync/errgroup"
)

// TrackPreparer extracts one normalized PCM file per eligible media asset.
// Preparation runs one FFmpeg process per asset; distinct assets have no
// data dependency and run in parallel up to the configured bound.
type TrackPreparer struct {
	logger     *slog.Logger
	ffmpegPath string
	prober     *ffmpeg.Prober
	settings   *Settings
}

// NewTrackPreparer creates a track preparer.
func NewTrackPreparer(logger *slog.Logger, ffmpegPath string, prober *ffmpeg.Prober, settings *Settings) *TrackPreparer {
	return &TrackPreparer{
		logger:     logger,
		ffmpegPath: ffmpegPath,
		prober:     prober,
		settings:   settings,
	}
}

// PrepareTracks prepares all eligible assets for the given render window and
// returns the prepared file paths in asset order. Per-asset failures skip
// that asset and never abort the job; the returned error is only ever a
// context cancellation.
func (p *TrackPreparer) PrepareTracks(ctx context.Context, assets []*MediaAsset, shard Shard) ([]string, error) {
	results := make([]string, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.settings.TrackConcurrency))

	for i, asset := range assets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			path, err := p.prepare(gctx, asset, shard)
			if err != nil {
				p.logger.Warn("skipping asset audio",
					slog.String("key", asset.Key),
					slog.String("src", asset.Src),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	tracks := make([]string, 0, len(results))
	for _, r := range results {
		if r != "" {
			tracks = append(tracks, r)
		}
	}
	return tracks, nil
}

// prepare runs one asset through FFmpeg. An empty path with a nil error
// means the asset is ineligible (muted, frozen, or without an audio stream).
func (p *TrackPreparer) prepare(ctx context.Context, asset *MediaAsset, shard Shard) (string, error) {
	if asset.PlaybackRate == 0 || asset.Volume == 0 {
		p.logger.Debug("asset is silent, skipping",
			slog.String("key", asset.Key),
			slog.Float64("playback_rate", asset.PlaybackRate),
			slog.Float64("volume", asset.Volume))
		return "", nil
	}

	src := p.resolveSrc(asset.Src)

	probe, err := p.prober.Probe(ctx, src)
	if err != nil {
		// Unprobeable sources are skipped, not failed: the render simply
		// has no audio contribution from this asset.
		p.logger.Debug("asset probe failed, skipping",
			slog.String("key", asset.Key),
			slog.String("src", src),
			slog.String("error", err.Error()))
		return "", nil
	}

	audio := probe.AudioStream()
	if audio == nil {
		p.logger.Debug("asset has no audio stream, skipping", slog.String("key", asset.Key))
		return "", nil
	}

	sampleRate := audio.SampleRateHz()
	if sampleRate == 0 {
		sampleRate = MixSampleRate
	}

	chain := BuildAudioFilter(asset, sampleRate, p.settings.FPS, shard)
	out := p.settings.TrackPath(asset.Key)

	cmd := ffmpeg.NewCommandBuilder(p.ffmpegPath).
		HideBanner().
		Overwrite().
		Input(src).
		AudioFilter(chain).
		OutputArgs("-vn",
			"-ac", strconv.Itoa(MixChannels),
			"-ar", strconv.Itoa(MixSampleRate),
			"-c:a", MixCodec).
		Output(out).
		Build()

	p.logger.Debug("preparing asset audio",
		slog.String("key", asset.Key),
		slog.String("filter", chain),
		slog.String("out", out))

	if err := cmd.Run(ctx); err != nil {
		return "", fmt.Errorf("extracting audio for %q: %w", asset.Key, err)
	}

	return out, nil
}

// resolveSrc passes absolute paths and URLs through unchanged; relative
// asset paths resolve against the public directory.
func (p *TrackPreparer) resolveSrc(src string) string {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	if filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(p.settings.PublicDir, src)
}
