package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rendermux/rendermux/internal/ffmpeg"
	"github.com/rendermux/rendermux/internal/observability"
)

// State is the exporter lifecycle state.
type State string

// Lifecycle states. Running has three terminal successors.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
	StateFailed    State = "failed"
)

// Result is the caller-reported outcome passed to End.
type Result string

// Terminal results a caller can report.
const (
	ResultSuccess   Result = "success"
	ResultCancelled Result = "cancelled"
)

// Exporter coordinates one export job: it owns the encoder process, the
// frame stream, and the audio pipeline, and is the only type external code
// drives directly. One Exporter serves exactly one job; its scratch
// directory is never shared.
type Exporter struct {
	logger   *slog.Logger
	settings *Settings
	prober   *ffmpeg.Prober

	stream   *FrameStream
	encoder  *VideoEncoder
	preparer *TrackPreparer
	mixer    *Mixer
	muxer    *Muxer

	mu         sync.Mutex
	state      State
	mixedAudio string
}

// New creates an exporter for one job. bin must carry a detected ffmpeg
// path; the ffprobe path may be empty when no asset-composed audio is used.
func New(logger *slog.Logger, bin *ffmpeg.BinaryInfo, settings *Settings) *Exporter {
	logger = observability.WithJob(logger, settings.JobName, settings.JobID)

	stream := NewFrameStream()
	prober := ffmpeg.NewProber(bin.FFprobePath)

	return &Exporter{
		logger:   logger,
		settings: settings,
		prober:   prober,
		stream:   stream,
		encoder:  NewVideoEncoder(observability.WithComponent(logger, "encoder"), bin.FFmpegPath, settings, stream),
		preparer: NewTrackPreparer(observability.WithComponent(logger, "tracks"), bin.FFmpegPath, prober, settings),
		mixer:    NewMixer(observability.WithComponent(logger, "mixer"), bin.FFmpegPath, settings),
		muxer:    NewMuxer(observability.WithComponent(logger, "muxer"), bin.FFmpegPath, settings),
		state:    StateIdle,
	}
}

// Settings returns the job settings.
func (e *Exporter) Settings() *Settings {
	return e.settings
}

// State returns the current lifecycle state.
func (e *Exporter) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Exporter) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Start ensures the output and scratch directories exist and launches the
// encoder process bound to the frame stream. Valid only in Idle.
func (e *Exporter) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateIdle {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("start: exporter is %s, want %s", state, StateIdle)
	}
	e.state = StateRunning
	e.mu.Unlock()

	if err := e.settings.EnsureDirs(); err != nil {
		e.setState(StateFailed)
		return err
	}

	if err := e.encoder.Start(ctx); err != nil {
		e.setState(StateFailed)
		return err
	}

	e.logger.Info("export started",
		slog.Float64("fps", e.settings.FPS),
		slog.Int("width", e.settings.Width),
		slog.Int("height", e.settings.Height),
		slog.String("scratch", e.settings.ScratchDir))

	return nil
}

// Feed pushes one frame image to the encoder. Valid only in Running. The
// push never blocks; the encoder drains at its own pace.
func (e *Exporter) Feed(frame []byte) error {
	if s := e.State(); s != StateRunning {
		return fmt.Errorf("feed: exporter is %s, want %s", s, StateRunning)
	}
	e.stream.Push(frame)
	return nil
}

// FinishFrames signals end-of-stream to the encoder, triggering its
// finalization once buffered frames are drained.
func (e *Exporter) FinishFrames() {
	e.stream.Close()
}

// ComposeAudio resolves the frame snapshots into a consolidated asset
// timeline, prepares each eligible asset's audio, and mixes the prepared
// tracks into a single track for the final merge. frames[i] holds the
// snapshots for frame shard.StartFrame+i. With zero eligible assets the
// final merge falls back to a direct video copy.
func (e *Exporter) ComposeAudio(ctx context.Context, frames [][]FrameSnapshot, shard Shard) (err error) {
	done := observability.TimedOperationWithError(ctx, e.logger, "compose_audio", &err)
	defer done()

	assets := ResolveTimeline(frames, shard.StartFrame)
	e.logger.Debug("asset timeline resolved",
		slog.Int("frames", len(frames)),
		slog.Int("assets", len(assets)))

	tracks, err := e.preparer.PrepareTracks(ctx, assets, shard)
	if err != nil {
		return err
	}

	mixed, err := e.mixer.Mix(ctx, tracks)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.mixedAudio = mixed
	e.mu.Unlock()
	return nil
}

// MergeFinal combines the mixed audio track with the encoder's silent video
// into the final output file and returns its path. Must be called after the
// encoder has completed.
func (e *Exporter) MergeFinal(ctx context.Context) (string, error) {
	e.mu.Lock()
	mixed := e.mixedAudio
	e.mu.Unlock()

	return e.muxer.Merge(ctx, e.encoder.OutputPath(), mixed)
}

// ShardOutputs returns the silent video and raw mixed audio paths for a
// partial render. Per-shard muxing is deliberately skipped: merging each
// shard introduces cumulative timing drift when shards are later
// concatenated, so callers concatenate all audio, concatenate all video,
// then merge exactly once. The audio path is empty when the shard had no
// eligible audio assets.
func (e *Exporter) ShardOutputs() (videoPath, audioPath string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encoder.OutputPath(), e.mixedAudio
}

// End finishes the job. On success it awaits natural encoder completion and
// surfaces any process failure. On cancellation it forcibly terminates the
// encoder and swallows the resulting process error after logging it;
// cancellation always wins races with natural completion.
func (e *Exporter) End(ctx context.Context, result Result) error {
	if result == ResultCancelled {
		e.Abort()
		return nil
	}

	select {
	case <-e.encoder.Done():
	case <-ctx.Done():
		e.encoder.Kill()
		<-e.encoder.Done()
		e.setState(StateFailed)
		return ctx.Err()
	}

	if err := e.encoder.Err(); err != nil {
		e.setState(StateFailed)
		e.logger.Error("export failed", slog.String("error", err.Error()))
		return fmt.Errorf("encoder: %w", err)
	}

	e.setState(StateCompleted)
	e.logger.Info("export completed", slog.String("video", e.encoder.OutputPath()))
	return nil
}

// Abort forcibly terminates the encoder process. Safe to call in any state
// and more than once; the underlying process error is logged, never
// returned.
func (e *Exporter) Abort() {
	e.encoder.Kill()
	<-e.encoder.Done()

	if err := e.encoder.Err(); err != nil {
		e.logger.Debug("encoder terminated on abort", slog.String("error", err.Error()))
	}

	e.mu.Lock()
	if e.state == StateRunning || e.state == StateIdle {
		e.state = StateAborted
	}
	e.mu.Unlock()

	e.logger.Info("export aborted")
}
