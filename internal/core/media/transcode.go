package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/repost-bot/internal/core/errors"
)

const (
	defaultFFmpegPath       = "ffmpeg"
	defaultTranscodeTimeout = 5 * time.Minute
	tempDirPrefix           = "repost-transcode-"
	maxStderrInError        = 512
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Transcoder converts WebM clips to MP4 (H.264) with an ffmpeg binary.
type Transcoder struct {
	ffmpegPath string
	tempDir    string
	timeout    time.Duration
	run        CommandRunner
	logger     *zerolog.Logger
}

// NewTranscoder creates a transcoder. An empty tempDir uses the OS default.
func NewTranscoder(ffmpegPath, tempDir string, timeout time.Duration, logger *zerolog.Logger) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = defaultFFmpegPath
	}

	if timeout <= 0 {
		timeout = defaultTranscodeTimeout
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Transcoder{
		ffmpegPath: ffmpegPath,
		tempDir:    tempDir,
		timeout:    timeout,
		run:        execRunner,
		logger:     logger,
	}
}

// WithRunner replaces the command runner, mainly for tests.
func (t *Transcoder) WithRunner(run CommandRunner) *Transcoder {
	t.run = run

	return t
}

// WebmToMP4 transcodes the clip and returns the MP4 bytes. Audio is copied
// when the container allows it and re-encoded to AAC otherwise. The scratch
// directory is always removed.
func (t *Transcoder) WebmToMP4(ctx context.Context, webm []byte) ([]byte, error) {
	if len(webm) == 0 {
		return nil, fmt.Errorf("transcode: %w", errors.ErrEmptyResponse)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	dir, err := os.MkdirTemp(t.tempDir, tempDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			t.logger.Warn().Err(rmErr).Str("dir", dir).Msg("failed to remove transcode dir")
		}
	}()

	name := uuid.New().String()
	input := filepath.Join(dir, name+".webm")
	output := filepath.Join(dir, name+".mp4")

	if err := os.WriteFile(input, webm, 0o600); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}

	if err := t.encode(ctx, input, output, "copy"); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("transcode: %w", ctx.Err())
		}

		t.logger.Debug().Err(err).Msg("audio copy failed, re-encoding to aac")

		if err := t.encode(ctx, input, output, "aac"); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("transcode: %w: empty output", errors.ErrTranscodeFailed)
	}

	return data, nil
}

func (t *Transcoder) encode(ctx context.Context, input, output, audioCodec string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", input,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", audioCodec,
		"-movflags", "+faststart",
		output,
	}

	out, err := t.run(ctx, t.ffmpegPath, args...)
	if err != nil {
		return fmt.Errorf("%w: %w: %s", errors.ErrTranscodeFailed, err, trimOutput(out))
	}

	return nil
}

func trimOutput(out []byte) string {
	s := strings.TrimSpace(string(bytes.ToValidUTF8(out, nil)))
	if len(s) > maxStderrInError {
		return s[:maxStderrInError]
	}

	return s
}
