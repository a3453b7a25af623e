package ffmpeg

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not installed.
func skipIfNoFFmpeg(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	return path
}

func TestCommandBuilder_Build(t *testing.T) {
	cmd := NewCommandBuilder("/usr/bin/ffmpeg").
		HideBanner().
		Overwrite().
		Input("in.wav").
		AudioFilter("atempo=2,volume=0.5").
		OutputArgs("-ac", "2", "-ar", "48000", "-c:a", "pcm_s16le").
		Output("out.wav").
		Build()

	assert.Equal(t, "/usr/bin/ffmpeg", cmd.Binary)
	assert.Equal(t, []string{
		"-loglevel", "error",
		"-hide_banner",
		"-y",
		"-i", "in.wav",
		"-filter:a", "atempo=2,volume=0.5",
		"-ac", "2", "-ar", "48000", "-c:a", "pcm_s16le",
		"out.wav",
	}, cmd.Args)
}

func TestCommandBuilder_MultipleInputs(t *testing.T) {
	cmd := NewCommandBuilder("ffmpeg").
		Input("a.wav").
		Input("b.wav").
		FilterComplex("amix=inputs=2:duration=longest").
		Output("mix.wav").
		Build()

	assert.Equal(t, []string{
		"-loglevel", "error",
		"-i", "a.wav",
		"-i", "b.wav",
		"-filter_complex", "amix=inputs=2:duration=longest",
		"mix.wav",
	}, cmd.Args)
}

func TestCommandBuilder_InputArgs(t *testing.T) {
	cmd := NewCommandBuilder("ffmpeg").
		Input("-", "-f", "image2pipe", "-framerate", "30").
		OutputArgs("-c:v", "libx264").
		Output("visuals.mp4").
		Build()

	assert.Equal(t, []string{
		"-loglevel", "error",
		"-f", "image2pipe", "-framerate", "30",
		"-i", "-",
		"-c:v", "libx264",
		"visuals.mp4",
	}, cmd.Args)
}

func TestCommand_NotStarted(t *testing.T) {
	cmd := NewCommandBuilder("ffmpeg").Input("in").Output("out").Build()

	assert.Error(t, cmd.Wait())
	assert.NoError(t, cmd.Kill())
	assert.Equal(t, 0, cmd.Pid())
	assert.Equal(t, time.Duration(0), cmd.Duration())
}

func TestCommand_RunCapturesStderr(t *testing.T) {
	skipIfNoFFmpeg(t)

	// Invalid input forces a failure; the error must carry stderr context.
	cmd := NewCommandBuilder("ffmpeg").
		Input("/nonexistent/input.wav").
		Output("/nonexistent/out.wav").
		Build()

	err := cmd.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg")
}

func TestBinaryDetector_Detect(t *testing.T) {
	skipIfNoFFmpeg(t)

	ctx := context.Background()
	detector := NewBinaryDetector("", "")

	info, err := detector.Detect(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.NotEmpty(t, info.FFmpegPath)
	assert.NotEmpty(t, info.Version)
	assert.Greater(t, info.MajorVersion, 0)
}

func TestBinaryDetector_Caching(t *testing.T) {
	skipIfNoFFmpeg(t)

	ctx := context.Background()
	detector := NewBinaryDetector("", "").WithCacheTTL(1 * time.Hour)

	info1, err := detector.Detect(ctx)
	require.NoError(t, err)

	info2, err := detector.Detect(ctx)
	require.NoError(t, err)

	assert.Equal(t, info1.FFmpegPath, info2.FFmpegPath)
	assert.Equal(t, info1.Version, info2.Version)
}

func TestBinaryDetector_ConfiguredPathMissing(t *testing.T) {
	detector := NewBinaryDetector("/no/such/ffmpeg", "")

	_, err := detector.Detect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg not found")
}

func TestBinaryInfo_HasEncoder(t *testing.T) {
	info := &BinaryInfo{
		Encoders: []string{"libx264", "aac", "pcm_s16le"},
	}

	assert.True(t, info.HasEncoder("libx264"))
	assert.True(t, info.HasEncoder("pcm_s16le"))
	assert.False(t, info.HasEncoder("h264_nvenc"))
}

func TestBinaryInfo_SupportsMinVersion(t *testing.T) {
	info := &BinaryInfo{MajorVersion: 6, MinorVersion: 1}

	assert.True(t, info.SupportsMinVersion(5, 0))
	assert.True(t, info.SupportsMinVersion(6, 1))
	assert.False(t, info.SupportsMinVersion(6, 2))
	assert.False(t, info.SupportsMinVersion(7, 0))
}

func TestProbeResult_AudioStream(t *testing.T) {
	raw := `{
		"format": {"filename": "clip.mp4", "format_name": "mov,mp4", "duration": "12.5"},
		"streams": [
			{"index": 0, "codec_type": "video", "codec_name": "h264"},
			{"index": 1, "codec_type": "audio", "codec_name": "aac", "sample_rate": "44100", "channels": 2}
		]
	}`

	var result ProbeResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	require.True(t, result.HasAudio())
	audio := result.AudioStream()
	require.NotNil(t, audio)
	assert.Equal(t, "aac", audio.CodecName)
	assert.Equal(t, 44100, audio.SampleRateHz())
	assert.Equal(t, 12.5, result.DurationSeconds())
}

func TestProbeResult_NoAudio(t *testing.T) {
	result := ProbeResult{
		Streams: []ProbeStream{{Index: 0, CodecType: "video", CodecName: "vp9"}},
	}

	assert.False(t, result.HasAudio())
	assert.Nil(t, result.AudioStream())
	assert.Equal(t, 0.0, result.DurationSeconds())
}

func TestProbeStream_SampleRateHz(t *testing.T) {
	assert.Equal(t, 48000, (&ProbeStream{SampleRate: "48000"}).SampleRateHz())
	assert.Equal(t, 0, (&ProbeStream{SampleRate: ""}).SampleRateHz())
	assert.Equal(t, 0, (&ProbeStream{SampleRate: "abc"}).SampleRateHz())
}
