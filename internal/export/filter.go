package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FFmpeg's atempo filter only accepts multipliers in this range; rates
// outside it are expressed as a chain of stages.
const (
	minTempo = 0.5
	maxTempo = 100.0
)

// Fixed intermediate audio format shared by every prepared track, so the mix
// stage never has to reconcile formats.
const (
	// MixSampleRate is the output sample rate for prepared tracks.
	MixSampleRate = 48000
	// MixChannels is the downstream channel count.
	MixChannels = 2
	// MixCodec is the lossless intermediate sample format.
	MixCodec = "pcm_s16le"
)

// TempoStages decomposes a playback rate into atempo multipliers, each in
// [0.5, 100]. Rates above 100 emit repeated 100x stages; rates below 0.5
// emit repeated 0.5x stages. No stage is emitted for an exact remainder of
// 1.0. The product of the returned stages equals rate.
func TempoStages(rate float64) []float64 {
	var stages []float64

	for rate > maxTempo {
		stages = append(stages, maxTempo)
		rate /= maxTempo
	}
	for rate < minTempo {
		stages = append(stages, minTempo)
		rate *= 2
	}
	if rate != 1.0 {
		stages = append(stages, rate)
	}

	return stages
}

// BuildAudioFilter derives the filter chain applied when extracting one
// asset's audio for the given render window: tempo stages, a trim to the
// observed slice of the source, end padding to fill the window exactly, a
// start delay aligning the asset to its first visible frame, and the volume
// scale. sampleRate is the asset's source sample rate.
//
// A negative observed duration (backward seek across frames) produces an
// empty trim range rather than being clamped here; see MediaAsset.
func BuildAudioFilter(asset *MediaAsset, sampleRate int, fps float64, shard Shard) string {
	startFrame := shard.StartFrame
	endFrame := shard.EndFrame - 1 // inclusive last frame

	var chain []string
	for _, stage := range TempoStages(asset.PlaybackRate) {
		chain = append(chain, "atempo="+formatFloat(stage))
	}

	// Cap extraction at whichever is shorter: the asset's observed duration
	// or the render window.
	windowSeconds := float64(endFrame-startFrame) / fps
	trimmedSeconds := math.Min(asset.DurationInSeconds, windowSeconds)
	trimEnd := asset.TrimLeftInSeconds + trimmedSeconds
	chain = append(chain, fmt.Sprintf("atrim=%s:%s",
		formatFloat(asset.TrimLeftInSeconds), formatFloat(trimEnd)))

	// The start delay aligns the asset's audio to its first visible frame
	// within the shard, applied identically to all channels.
	delayMS := int(math.Round(float64(asset.StartInVideo-startFrame) / fps * 1000))
	delaySeconds := float64(delayMS) / 1000

	// Pad the tail so the track occupies exactly the window's frame count
	// worth of samples, net of the delay and the trimmed slice.
	windowSamples := int(math.Round(float64(endFrame-startFrame+1) / fps * float64(sampleRate)))
	consumedSamples := int(math.Round((trimmedSeconds + delaySeconds) * float64(sampleRate)))
	padSamples := max(0, windowSamples-consumedSamples)
	chain = append(chain, fmt.Sprintf("apad=pad_len=%d", padSamples))

	chain = append(chain, fmt.Sprintf("adelay=%d|%d", delayMS, delayMS))
	chain = append(chain, "volume="+formatFloat(asset.Volume))

	return strings.Join(chain, ",")
}

// formatFloat renders a float without trailing zeros.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
