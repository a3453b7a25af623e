package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(key string, currentTime float64) FrameSnapshot {
	return FrameSnapshot{
		Key:          key,
		Src:          "media/" + key + ".mp4",
		Type:         AssetVideo,
		CurrentTime:  currentTime,
		PlaybackRate: 1,
		Volume:       1,
	}
}

func TestResolveTimelineSingleAsset(t *testing.T) {
	// An asset observed at frames 0 and 30 with one second of source
	// progress spans 31 frames.
	frames := make([][]FrameSnapshot, 31)
	frames[0] = []FrameSnapshot{snap("clip", 0)}
	frames[30] = []FrameSnapshot{snap("clip", 1)}

	assets := ResolveTimeline(frames, 0)
	require.Len(t, assets, 1)

	a := assets[0]
	assert.Equal(t, "clip", a.Key)
	assert.Equal(t, 0, a.StartInVideo)
	assert.Equal(t, 30, a.EndInVideo)
	assert.Equal(t, 31, a.Duration)
	assert.InDelta(t, 1.0, a.DurationInSeconds, 1e-9)
	assert.InDelta(t, 0.0, a.TrimLeftInSeconds, 1e-9)
}

func TestResolveTimelineSingleObservation(t *testing.T) {
	frames := [][]FrameSnapshot{
		{snap("still", 2.5)},
	}

	assets := ResolveTimeline(frames, 0)
	require.Len(t, assets, 1)

	a := assets[0]
	assert.Equal(t, 0, a.StartInVideo)
	assert.Equal(t, 0, a.EndInVideo)
	assert.Equal(t, 1, a.Duration)
	assert.InDelta(t, 0.0, a.DurationInSeconds, 1e-9)
	assert.InDelta(t, 2.5, a.TrimLeftInSeconds, 1e-9)
}

func TestResolveTimelineFirstObservationWins(t *testing.T) {
	first := snap("clip", 5)
	first.PlaybackRate = 2
	first.Volume = 0.5

	second := snap("clip", 6)
	second.PlaybackRate = 1
	second.Volume = 1

	assets := ResolveTimeline([][]FrameSnapshot{{first}, {second}}, 0)
	require.Len(t, assets, 1)

	a := assets[0]
	assert.Equal(t, 2.0, a.PlaybackRate)
	assert.Equal(t, 0.5, a.Volume)
	assert.InDelta(t, 5.0, a.TrimLeftInSeconds, 1e-9)
	assert.InDelta(t, 1.0, a.DurationInSeconds, 1e-9)
}

func TestResolveTimelineShardOffset(t *testing.T) {
	// A worker rendering [30, 61) reports frame indices in absolute terms.
	frames := make([][]FrameSnapshot, 31)
	frames[15] = []FrameSnapshot{snap("clip", 0.5)}
	frames[30] = []FrameSnapshot{snap("clip", 1.0)}

	assets := ResolveTimeline(frames, 30)
	require.Len(t, assets, 1)

	a := assets[0]
	assert.Equal(t, 45, a.StartInVideo)
	assert.Equal(t, 60, a.EndInVideo)
	assert.Equal(t, 16, a.Duration)
}

func TestResolveTimelineFirstAppearanceOrder(t *testing.T) {
	frames := [][]FrameSnapshot{
		{snap("b", 0)},
		{snap("b", 0.1), snap("a", 0)},
		{snap("c", 0), snap("a", 0.1)},
	}

	assets := ResolveTimeline(frames, 0)
	require.Len(t, assets, 3)
	assert.Equal(t, "b", assets[0].Key)
	assert.Equal(t, "a", assets[1].Key)
	assert.Equal(t, "c", assets[2].Key)

	// Every asset's span must be well-formed.
	for _, a := range assets {
		assert.LessOrEqual(t, a.StartInVideo, a.EndInVideo, "asset %q", a.Key)
		assert.Equal(t, a.EndInVideo-a.StartInVideo+1, a.Duration, "asset %q", a.Key)
	}
}

func TestResolveTimelineBackwardSeek(t *testing.T) {
	// A backward seek between observations yields a negative duration,
	// passed through untouched.
	frames := [][]FrameSnapshot{
		{snap("clip", 10)},
		{snap("clip", 3)},
	}

	assets := ResolveTimeline(frames, 0)
	require.Len(t, assets, 1)
	assert.InDelta(t, -7.0, assets[0].DurationInSeconds, 1e-9)
}

func TestResolveTimelineEmpty(t *testing.T) {
	assert.Empty(t, ResolveTimeline(nil, 0))
	assert.Empty(t, ResolveTimeline([][]FrameSnapshot{nil, nil}, 0))
}
