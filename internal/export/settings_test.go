package export

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rendermux/rendermux/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: config.StorageConfig{
			OutputDir:  filepath.Join(t.TempDir(), "output"),
			ScratchDir: filepath.Join(t.TempDir(), "scratch"),
		},
		Export: config.ExportConfig{
			FPS:              30,
			Width:            1920,
			Height:           1080,
			FastStart:        true,
			TrackConcurrency: 4,
		},
	}
}

func TestNewSettings(t *testing.T) {
	cfg := testConfig(t)
	s := NewSettings("myjob", cfg)

	assert.Equal(t, "myjob", s.JobName)
	assert.NotEmpty(t, s.JobID)
	assert.Equal(t, 30.0, s.FPS)
	assert.Equal(t, 1920, s.Width)
	assert.Equal(t, 1080, s.Height)
	assert.True(t, s.FastStart)

	// The scratch dir lives under the configured base and is keyed by the
	// job name and run id.
	assert.Equal(t, cfg.Storage.ScratchDir, filepath.Dir(s.ScratchDir))
	assert.Contains(t, filepath.Base(s.ScratchDir), "myjob")
	assert.Contains(t, filepath.Base(s.ScratchDir), s.JobID)
}

func TestNewSettingsScratchIsUnique(t *testing.T) {
	cfg := testConfig(t)
	a := NewSettings("job", cfg)
	b := NewSettings("job", cfg)

	assert.NotEqual(t, a.JobID, b.JobID)
	assert.NotEqual(t, a.ScratchDir, b.ScratchDir)
}

func TestSettingsPaths(t *testing.T) {
	cfg := testConfig(t)
	s := NewSettings("job", cfg)

	assert.Equal(t, filepath.Join(s.ScratchDir, "visuals.mp4"), s.VisualsPath())
	assert.Equal(t, filepath.Join(s.ScratchDir, "audio.wav"), s.MixedAudioPath())
	assert.Equal(t, filepath.Join(cfg.Storage.OutputDir, "job.mp4"), s.FinalPath())
}

func TestSettingsTrackPathSanitizesKey(t *testing.T) {
	s := NewSettings("job", testConfig(t))

	path := s.TrackPath("media/clips[0]")
	base := filepath.Base(path)
	assert.Equal(t, "media_clips_0_.wav", base)
	assert.False(t, strings.ContainsAny(base[:len(base)-4], "/\\[]"))
}

func TestSettingsEnsureDirs(t *testing.T) {
	s := NewSettings("job", testConfig(t))
	require.NoError(t, s.EnsureDirs())

	assert.DirExists(t, s.OutputDir)
	assert.DirExists(t, s.ScratchDir)

	// Creating the same dirs again is fine.
	require.NoError(t, s.EnsureDirs())
}
