package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rendermux/rendermux/internal/ffmpeg"
)

// VideoEncoder streams frame images from a FrameStream into one FFmpeg
// process producing the silent video file. Frames enter via stdin in push
// order; output frame N corresponds to push N. Completion is a single-fire
// signal; Kill is the only cancellation primitive.
type VideoEncoder struct {
	logger     *slog.Logger
	ffmpegPath string
	settings   *Settings
	stream     *FrameStream

	cmd     *ffmpeg.Command
	monitor *ffmpeg.ProcessMonitor

	mu      sync.Mutex
	started bool
	err     error
	done    chan struct{}
}

// NewVideoEncoder creates an encoder bound to the given frame stream.
func NewVideoEncoder(logger *slog.Logger, ffmpegPath string, settings *Settings, stream *FrameStream) *VideoEncoder {
	return &VideoEncoder{
		logger:     logger,
		ffmpegPath: ffmpegPath,
		settings:   settings,
		stream:     stream,
		done:       make(chan struct{}),
	}
}

// OutputPath is the silent video file this encoder writes.
func (e *VideoEncoder) OutputPath() string {
	return e.settings.VisualsPath()
}

// Start launches the encoder process and the goroutine draining the frame
// stream into it. The process runs until the stream closes, the process
// fails, or Kill is called.
func (e *VideoEncoder) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("encoder already started")
	}
	e.started = true
	e.mu.Unlock()

	builder := ffmpeg.NewCommandBuilder(e.ffmpegPath).
		HideBanner().
		Overwrite().
		Input("-",
			"-f", "image2pipe",
			"-framerate", formatFloat(e.settings.FPS))

	withAudio := e.settings.IncludeAudio && e.settings.AudioPath != ""
	if withAudio {
		var audioArgs []string
		if e.settings.AudioOffset > 0 {
			audioArgs = []string{"-ss", formatFloat(e.settings.AudioOffset)}
		}
		builder.Input(e.settings.AudioPath, audioArgs...)
	}

	builder.OutputArgs(
		"-s", fmt.Sprintf("%dx%d", e.settings.Width, e.settings.Height),
		"-r", formatFloat(e.settings.FPS),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p")

	if withAudio {
		builder.OutputArgs("-c:a", "aac", "-shortest")
	}
	if e.settings.FastStart {
		builder.OutputArgs("-movflags", "+faststart")
	}

	e.cmd = builder.Output(e.OutputPath()).Build()

	stdin, err := e.cmd.StartWithStdin(ctx)
	if err != nil {
		e.fail(fmt.Errorf("starting encoder: %w", err))
		return e.Err()
	}

	e.monitor = ffmpeg.NewProcessMonitor(e.cmd.Pid())
	e.monitor.Start()

	e.logger.Debug("encoder started",
		slog.Int("pid", e.cmd.Pid()),
		slog.String("output", e.OutputPath()))

	go e.drain(stdin)

	return nil
}

// drain copies frames from the stream into the encoder's stdin, closes the
// pipe on end-of-stream, and resolves the completion signal with the
// process result.
func (e *VideoEncoder) drain(stdin io.WriteCloser) {
	frames := 0
	for {
		frame, ok := e.stream.Next()
		if !ok {
			break
		}
		if _, err := stdin.Write(frame); err != nil {
			// The process died mid-stream; Wait below surfaces the cause.
			e.logger.Debug("encoder stdin write failed",
				slog.Int("frames_written", frames),
				slog.String("error", err.Error()))
			break
		}
		frames++
	}

	_ = stdin.Close()

	err := e.cmd.Wait()

	stats := e.monitor.Stats()
	e.monitor.Stop()
	e.logger.Debug("encoder finished",
		slog.Int("frames", frames),
		slog.Duration("duration", stats.Duration),
		slog.Float64("cpu_percent", stats.CPUPercent),
		slog.Uint64("memory_rss_bytes", stats.MemoryRSSBytes),
		slog.Bool("failed", err != nil))

	e.fail(err)
}

// fail resolves the completion signal once.
func (e *VideoEncoder) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
		return
	default:
	}
	e.err = err
	close(e.done)
}

// Done is closed when the encoder process has terminated, successfully or
// not.
func (e *VideoEncoder) Done() <-chan struct{} {
	return e.done
}

// Err returns the terminal process error. Only valid after Done is closed.
func (e *VideoEncoder) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Kill forcibly terminates the encoder process and releases the drain
// goroutine. Idempotent; errors from an already-dead process are discarded.
func (e *VideoEncoder) Kill() {
	// Unblock the drain goroutine first so a kill before end-of-stream
	// still resolves the completion signal.
	e.stream.Close()

	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		e.fail(fmt.Errorf("encoder killed before start"))
		return
	}

	if e.cmd != nil {
		_ = e.cmd.Kill()
	}
}

// Stats returns current encoder process resource usage, zero before start.
func (e *VideoEncoder) Stats() ffmpeg.ProcessStats {
	if e.monitor == nil {
		return ffmpeg.ProcessStats{}
	}
	return e.monitor.Stats()
}
