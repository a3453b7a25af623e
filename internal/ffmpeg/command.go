package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// input is one -i source with its preceding input arguments.
type input struct {
	args []string
	src  string
}

// CommandBuilder builds FFmpeg commands with a fluent API.
type CommandBuilder struct {
	binary        string
	globalArgs    []string
	inputs        []input
	audioFilter   string
	filterComplex string
	outputArgs    []string
	output        string
	logLevel      string
	overwrite     bool
}

// NewCommandBuilder creates a new FFmpeg command builder.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{
		binary:   ffmpegPath,
		logLevel: "error",
	}
}

// LogLevel sets the FFmpeg log level.
func (b *CommandBuilder) LogLevel(level string) *CommandBuilder {
	b.logLevel = level
	return b
}

// HideBanner hides the FFmpeg banner.
func (b *CommandBuilder) HideBanner() *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-hide_banner")
	return b
}

// Overwrite enables output file overwriting.
func (b *CommandBuilder) Overwrite() *CommandBuilder {
	b.overwrite = true
	return b
}

// Input adds an input source. args are input options placed before -i.
func (b *CommandBuilder) Input(src string, args ...string) *CommandBuilder {
	b.inputs = append(b.inputs, input{args: args, src: src})
	return b
}

// AudioFilter sets the -filter:a chain for the output.
func (b *CommandBuilder) AudioFilter(chain string) *CommandBuilder {
	b.audioFilter = chain
	return b
}

// FilterComplex sets the -filter_complex graph.
func (b *CommandBuilder) FilterComplex(graph string) *CommandBuilder {
	b.filterComplex = graph
	return b
}

// OutputArgs adds arbitrary output arguments.
func (b *CommandBuilder) OutputArgs(args ...string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, args...)
	return b
}

// Output sets the output destination.
func (b *CommandBuilder) Output(output string) *CommandBuilder {
	b.output = output
	return b
}

// Build builds the command.
func (b *CommandBuilder) Build() *Command {
	var args []string

	args = append(args, "-loglevel", b.logLevel)
	args = append(args, b.globalArgs...)

	if b.overwrite {
		args = append(args, "-y")
	}

	for _, in := range b.inputs {
		args = append(args, in.args...)
		args = append(args, "-i", in.src)
	}

	if b.filterComplex != "" {
		args = append(args, "-filter_complex", b.filterComplex)
	}
	if b.audioFilter != "" {
		args = append(args, "-filter:a", b.audioFilter)
	}

	args = append(args, b.outputArgs...)
	args = append(args, b.output)

	return &Command{
		Binary: b.binary,
		Args:   args,
		Output: b.output,
	}
}

// Command represents one FFmpeg process invocation.
type Command struct {
	Binary string
	Args   []string
	Output string

	mu      sync.RWMutex
	cmd     *exec.Cmd
	started time.Time

	// Recent stderr lines kept for error reporting.
	stderrMu    sync.RWMutex
	stderrLines []string
}

// maxStderrLines bounds the in-memory stderr ring buffer.
const maxStderrLines = 100

// String returns the command as a string.
func (c *Command) String() string {
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Run executes the command and waits for completion. On failure the returned
// error carries the tail of FFmpeg's stderr output.
func (c *Command) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	return c.Wait()
}

// Start starts the command without waiting. Stderr capture begins
// immediately.
func (c *Command) Start(ctx context.Context) error {
	_, err := c.start(ctx, false)
	return err
}

// StartWithStdin starts the command and returns a pipe connected to the
// process stdin. The caller owns the pipe and must close it to signal
// end-of-input.
func (c *Command) StartWithStdin(ctx context.Context) (io.WriteCloser, error) {
	return c.start(ctx, true)
}

func (c *Command) start(ctx context.Context, withStdin bool) (io.WriteCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return nil, fmt.Errorf("command already started")
	}

	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)

	var stdin io.WriteCloser
	if withStdin {
		var err error
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("getting stdin pipe: %w", err)
		}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("getting stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	c.cmd = cmd
	c.started = time.Now()

	go c.captureStderr(stderr)

	return stdin, nil
}

// Wait waits for the command to complete. Failures include the last stderr
// line for diagnosis.
func (c *Command) Wait() error {
	c.mu.RLock()
	cmd := c.cmd
	c.mu.RUnlock()

	if cmd == nil {
		return fmt.Errorf("command not started")
	}

	if err := cmd.Wait(); err != nil {
		if tail := c.lastStderrLine(); tail != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, tail)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// Kill terminates the FFmpeg process. Safe to call before start and after
// exit.
func (c *Command) Kill() error {
	c.mu.RLock()
	cmd := c.cmd
	c.mu.RUnlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// Pid returns the process id, or 0 when not started.
func (c *Command) Pid() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cmd == nil || c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Duration returns how long the command has been running.
func (c *Command) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.started.IsZero() {
		return 0
	}
	return time.Since(c.started)
}

// captureStderr reads FFmpeg stderr and stores recent lines.
func (c *Command) captureStderr(stderr io.ReadCloser) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()

		c.stderrMu.Lock()
		if len(c.stderrLines) >= maxStderrLines {
			c.stderrLines = c.stderrLines[1:]
		}
		c.stderrLines = append(c.stderrLines, line)
		c.stderrMu.Unlock()
	}
}

// StderrLines returns the recent stderr lines captured from FFmpeg.
func (c *Command) StderrLines() []string {
	c.stderrMu.RLock()
	defer c.stderrMu.RUnlock()

	lines := make([]string, len(c.stderrLines))
	copy(lines, c.stderrLines)
	return lines
}

func (c *Command) lastStderrLine() string {
	c.stderrMu.RLock()
	defer c.stderrMu.RUnlock()

	if len(c.stderrLines) == 0 {
		return ""
	}
	return c.stderrLines[len(c.stderrLines)-1]
}
