package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rendermux/rendermux/internal/ffmpeg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPreparer(t *testing.T) *TrackPreparer {
	t.Helper()
	s := NewSettings("job", testConfig(t))
	s.PublicDir = "/srv/public"
	return NewTrackPreparer(testLogger(), "ffmpeg", ffmpeg.NewProber("ffprobe"), s)
}

func TestResolveSrc(t *testing.T) {
	p := testPreparer(t)

	assert.Equal(t, "http://cdn.example.com/a.mp4", p.resolveSrc("http://cdn.example.com/a.mp4"))
	assert.Equal(t, "https://cdn.example.com/a.mp4", p.resolveSrc("https://cdn.example.com/a.mp4"))
	assert.Equal(t, "/abs/path/a.mp4", p.resolveSrc("/abs/path/a.mp4"))
	assert.Equal(t, filepath.Join("/srv/public", "media/a.mp4"), p.resolveSrc("media/a.mp4"))
}

func TestPrepareSkipsSilentAssets(t *testing.T) {
	p := testPreparer(t)
	shard := FullRange(30)

	// A frozen or muted asset is ineligible before any probing happens.
	path, err := p.prepare(context.Background(), &MediaAsset{Key: "frozen", PlaybackRate: 0, Volume: 1}, shard)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = p.prepare(context.Background(), &MediaAsset{Key: "muted", PlaybackRate: 1, Volume: 0}, shard)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestPrepareTracksSkipsFailedAssets(t *testing.T) {
	// With a bogus ffprobe path every probe fails; failures skip the asset
	// rather than failing the batch.
	s := NewSettings("job", testConfig(t))
	p := NewTrackPreparer(testLogger(), "ffmpeg", ffmpeg.NewProber("/nonexistent/ffprobe"), s)

	assets := []*MediaAsset{
		{Key: "a", Src: "/nope/a.mp4", PlaybackRate: 1, Volume: 1},
		{Key: "b", Src: "/nope/b.mp4", PlaybackRate: 1, Volume: 1},
	}

	tracks, err := p.PrepareTracks(context.Background(), assets, FullRange(30))
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestPrepareTracksCancelled(t *testing.T) {
	s := NewSettings("job", testConfig(t))
	p := NewTrackPreparer(testLogger(), "ffmpeg", ffmpeg.NewProber("/nonexistent/ffprobe"), s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assets := []*MediaAsset{
		{Key: "a", Src: "/nope/a.mp4", PlaybackRate: 1, Volume: 1},
	}

	_, err := p.PrepareTracks(ctx, assets, FullRange(30))
	assert.ErrorIs(t, err, context.Canceled)
}
