package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rendermux/rendermux/internal/config"
	"github.com/rendermux/rendermux/internal/export"
	"github.com/rendermux/rendermux/internal/ffmpeg"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a rendered frame sequence to a video file",
	Long: `Export a directory of rendered frame images to a single video file.

Frames are read in lexical filename order and streamed to the encoder at the
configured frame rate. A snapshots file adds asset-composed audio: it holds
one array of asset observations per frame, from which each asset's audio is
extracted, aligned, and mixed into the final output.

Examples:
  # Silent export of a frame directory
  rendermux export --frames ./frames --name intro

  # Export with asset-composed audio
  rendermux export --frames ./frames --snapshots ./snapshots.json

  # Worker 1 of 4 in a distributed render of 1200 frames
  rendermux export --frames ./frames --snapshots ./snapshots.json \
    --total-frames 1200 --workers 4 --worker 1`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("name", "", "job name (default: a random UUID)")
	exportCmd.Flags().String("frames", "", "directory of frame images (required)")
	exportCmd.Flags().String("snapshots", "", "JSON file of per-frame asset snapshots")
	exportCmd.Flags().String("audio", "", "directly provided audio file, encoded alongside the frames")
	exportCmd.Flags().Float64("audio-offset", 0, "start offset in seconds into --audio")
	exportCmd.Flags().Float64("fps", 0, "frame rate (overrides config)")
	exportCmd.Flags().Int("width", 0, "output width (overrides config)")
	exportCmd.Flags().Int("height", 0, "output height (overrides config)")
	exportCmd.Flags().Int("total-frames", 0, "total frames across all workers (distributed mode)")
	exportCmd.Flags().Int("workers", 1, "number of workers in the render")
	exportCmd.Flags().Int("worker", 0, "this worker's id, in [0, workers)")

	_ = exportCmd.MarkFlagRequired("frames")
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = uuid.NewString()
	}

	framesDir, _ := cmd.Flags().GetString("frames")
	frameFiles, err := listFrameFiles(framesDir)
	if err != nil {
		return err
	}
	if len(frameFiles) == 0 {
		return fmt.Errorf("no frame images found in %s", framesDir)
	}

	shard, err := resolveShard(cmd, len(frameFiles))
	if err != nil {
		return err
	}

	snapshotsPath, _ := cmd.Flags().GetString("snapshots")
	var frames [][]export.FrameSnapshot
	if snapshotsPath != "" {
		frames, err = loadSnapshots(snapshotsPath)
		if err != nil {
			return err
		}
		if len(frames) != len(frameFiles) {
			return fmt.Errorf("snapshot count %d does not match frame count %d",
				len(frames), len(frameFiles))
		}
	}

	settings := buildSettings(cmd, name, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	detector := ffmpeg.NewBinaryDetector(cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath)
	bin, err := detector.Detect(ctx)
	if err != nil {
		return err
	}

	exporter := export.New(slog.Default(), bin, settings)

	if err := exporter.Start(ctx); err != nil {
		return err
	}

	for _, file := range frameFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			exporter.Abort()
			return fmt.Errorf("reading frame %s: %w", file, err)
		}
		if err := exporter.Feed(data); err != nil {
			exporter.Abort()
			return err
		}
	}
	exporter.FinishFrames()

	// Audio composition runs while the encoder drains the frame backlog.
	if len(frames) > 0 && settings.AudioPath == "" {
		if err := exporter.ComposeAudio(ctx, frames, shard); err != nil {
			exporter.Abort()
			return err
		}
	}

	if ctx.Err() != nil {
		_ = exporter.End(ctx, export.ResultCancelled)
		return fmt.Errorf("export interrupted")
	}

	if err := exporter.End(context.Background(), export.ResultSuccess); err != nil {
		return err
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if workers > 1 {
		video, audio := exporter.ShardOutputs()
		out, err := json.Marshal(map[string]string{
			"shard": shard.String(),
			"video": video,
			"audio": audio,
		})
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	final, err := exporter.MergeFinal(ctx)
	if err != nil {
		return err
	}
	fmt.Println(final)
	return nil
}

// resolveShard determines the frame range this invocation covers. With one
// worker the shard spans all local frames; in distributed mode it is planned
// from the full render's frame count and must match the local frame count.
func resolveShard(cmd *cobra.Command, localFrames int) (export.Shard, error) {
	workers, _ := cmd.Flags().GetInt("workers")
	worker, _ := cmd.Flags().GetInt("worker")
	totalFrames, _ := cmd.Flags().GetInt("total-frames")

	if workers <= 1 {
		return export.FullRange(localFrames), nil
	}

	if totalFrames <= 0 {
		return export.Shard{}, fmt.Errorf("--total-frames is required when --workers > 1")
	}

	shard, err := export.PlanShard(totalFrames, worker, workers)
	if err != nil {
		return export.Shard{}, err
	}
	if shard.Frames() != localFrames {
		return export.Shard{}, fmt.Errorf("shard %s needs %d frames but %d were provided",
			shard, shard.Frames(), localFrames)
	}
	return shard, nil
}

// buildSettings derives job settings from config plus explicit flag
// overrides.
func buildSettings(cmd *cobra.Command, name string, cfg *config.Config) *export.Settings {
	settings := export.NewSettings(name, cfg)

	if cmd.Flags().Changed("fps") {
		settings.FPS, _ = cmd.Flags().GetFloat64("fps")
	}
	if cmd.Flags().Changed("width") {
		settings.Width, _ = cmd.Flags().GetInt("width")
	}
	if cmd.Flags().Changed("height") {
		settings.Height, _ = cmd.Flags().GetInt("height")
	}
	if audio, _ := cmd.Flags().GetString("audio"); audio != "" {
		settings.IncludeAudio = true
		settings.AudioPath = audio
		settings.AudioOffset, _ = cmd.Flags().GetFloat64("audio-offset")
	}

	return settings
}

// listFrameFiles returns the frame image paths in lexical order.
func listFrameFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frames dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// loadSnapshots reads the per-frame snapshot batches from a JSON file.
func loadSnapshots(path string) ([][]export.FrameSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshots file: %w", err)
	}

	var frames [][]export.FrameSnapshot
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("parsing snapshots file: %w", err)
	}
	return frames, nil
}
