package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"mediabot/internal/domain"
	"mediabot/internal/infrastructure/logger"
	"mediabot/internal/port"
)

var (
	ErrEmptyPath   = errors.New("path is empty")
	ErrInvalidPath = errors.New("path contains invalid characters")
)

// reapDelay bounds how long Wait lingers after the process is killed before
// forcibly closing its pipes, so a kill never leaks a descriptor.
const reapDelay = 5 * time.Second

type Invoker struct {
	ffmpegBin  string
	ffprobeBin string
	store      port.AssetStore
	diagLimit  int
}

func NewInvoker(ffmpegBin, ffprobeBin string, store port.AssetStore, diagLimit int) *Invoker {
	return &Invoker{
		ffmpegBin:  ffmpegBin,
		ffprobeBin: ffprobeBin,
		store:      store,
		diagLimit:  diagLimit,
	}
}

// Run spawns exactly one external process for the operation. The context
// deadline is enforced by killing the process; partial output is removed on
// every failure path. The produced file is staged as a new asset owned by the
// same job.
func (i *Invoker) Run(ctx context.Context, input domain.AssetHandle, op domain.Operation) (*domain.Result, error) {
	if err := validatePath(input.Path); err != nil {
		return nil, domain.NewFailure(domain.FailureValidation, "input path: %v", err)
	}

	outPath := i.store.ScratchPath(input.JobID, "work"+op.OutputExt())
	args := buildArgs(input.Path, outPath, op)

	// One byte past the reporting limit, so an over-long capture is
	// distinguishable from one that fits exactly.
	stderr := newBoundedBuffer(i.diagLimit + 1)
	cmd := exec.CommandContext(ctx, i.ffmpegBin, args...)
	cmd.Stderr = stderr
	cmd.WaitDelay = reapDelay

	err := cmd.Run()
	if err != nil {
		_ = os.Remove(outPath)
		if ctx.Err() != nil {
			return nil, domain.NewFailure(domain.FailureTimeout, "transcode killed after deadline")
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, domain.NewFailure(domain.FailureProcess, "ffmpeg exited with code %d: %s",
				exitErr.ExitCode(), logger.TruncateDiagnostic(stderr.String(), i.diagLimit))
		}
		return nil, domain.NewFailure(domain.FailureProcess, "ffmpeg failed to run: %v", err)
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(outPath)
		return nil, domain.NewFailure(domain.FailureProcess, "ffmpeg exited cleanly but produced no output")
	}

	output, err := i.store.StageFile(outPath, input.JobID, op.OutputKind())
	if err != nil {
		_ = os.Remove(outPath)
		return nil, domain.NewFailure(domain.FailureStorage, "stage output: %v", err)
	}

	result := &domain.Result{Output: output}
	if op.OutputKind() == domain.MediaKindVideo {
		if probe, err := i.probe(ctx, output.Path); err != nil {
			logger.Error.Printf("probe failed for job %s: %v", input.JobID, err)
		} else {
			result.Width = probe.width
			result.Height = probe.height
			result.DurationSeconds = probe.duration
		}
	}
	return result, nil
}

func buildArgs(inputPath, outputPath string, op domain.Operation) []string {
	var args []string

	switch op.Kind {
	case domain.OpVoiceToWAV:
		rate := op.SampleRate
		if rate == 0 {
			rate = 16000
		}
		channels := op.Channels
		if channels == 0 {
			channels = 1
		}
		args = []string{
			"-i", inputPath,
			"-ac", strconv.Itoa(channels),
			"-ar", strconv.Itoa(rate),
		}
	case domain.OpExtractAudio:
		args = []string{
			"-i", inputPath,
			"-c:a", "libopus",
			"-b:a", "128k",
			"-vn",
		}
	case domain.OpVideoToMP4:
		args = []string{
			"-i", inputPath,
			"-c:v", "libx264",
			"-crf", "23",
			"-preset", "medium",
			"-c:a", "aac",
			"-b:a", "128k",
			"-movflags", "+faststart",
		}
		if op.Fps > 0 {
			args = append(args, "-r", strconv.Itoa(op.Fps))
		}
	case domain.OpThumbnail:
		args = []string{
			"-ss", fmt.Sprintf("%g", op.SeekSeconds),
			"-i", inputPath,
			"-vframes", "1",
			"-f", "image2",
		}
	}

	return append(args, "-y", outputPath)
}

type probeInfo struct {
	width    int
	height   int
	duration float64
}

func (i *Invoker) probe(ctx context.Context, path string) (probeInfo, error) {
	cmd := exec.CommandContext(ctx, i.ffprobeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	cmd.WaitDelay = reapDelay

	output, err := cmd.Output()
	if err != nil {
		return probeInfo{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return probeInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info probeInfo
	info.duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	for _, stream := range probe.Streams {
		if stream.CodecType == "video" {
			info.width = stream.Width
			info.height = stream.Height
			break
		}
	}
	return info, nil
}

func validatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if strings.ContainsRune(path, 0) {
		return ErrInvalidPath
	}
	return nil
}

var _ port.TranscodeInvoker = (*Invoker)(nil)
