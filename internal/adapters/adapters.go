// Package adapters wires the core's external collaborator interfaces
// (splitdecide.SceneDetector, splitdecide.FirstPassRunner,
// queuebuild.Segmenter, queuebuild.KeyframeReader, scheduler.FrameCounter,
// assembly.AudioExtractor, tq.Prober) to the actual command-line tools:
// ffmpeg, ffprobe, and the configured encoder. None of these are part of
// the core algorithms; they are the thin boundary the core talks through,
// grounded on the same external-process style as internal/gateway and the
// upstream scenedetection/ffmpeg.py scene detector.
package adapters

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/splitreel/splitreel/internal/chunk"
	"github.com/splitreel/splitreel/internal/encoder"
	"github.com/splitreel/splitreel/internal/errors"
	"github.com/splitreel/splitreel/internal/ffprobe"
	"github.com/splitreel/splitreel/internal/gateway"
)

// FFmpegSceneDetector detects scene changes with ffmpeg's own select
// filter, the same technique as the upstream ffmpeg-based detector:
// select=gt(scene,threshold) wrapped in showinfo, reading frame numbers
// back out of stderr.
type FFmpegSceneDetector struct{}

var showinfoFrame = regexp.MustCompile(`n:\s*(\d+)`)

// DetectScenes returns the raw, unmerged candidate split points: the
// first frame of every shot ffmpeg's scene filter flags above threshold.
func (FFmpegSceneDetector) DetectScenes(sourcePath string, totalFrames int, threshold float64) ([]int, error) {
	filter := fmt.Sprintf("select='gt(scene\\,%g)',showinfo", threshold)
	cmd := exec.Command("ffmpeg", "-i", sourcePath, "-hide_banner", "-loglevel", "info",
		"-filter:v", filter, "-an", "-f", "null", "-")

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.NewCommandError("ffmpeg scene detect", errors.CommandStart, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.NewCommandError("ffmpeg scene detect", errors.CommandStart, err)
	}

	var scenes []int
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		m := showinfoFrame.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 || n >= totalFrames {
			continue
		}
		scenes = append(scenes, n)
	}

	if err := cmd.Wait(); err != nil {
		return nil, errors.Wrap(errors.KindSplit, "adapters: ffmpeg scene detection", err)
	}
	return scenes, nil
}

// FirstPassRunner runs tag's first-pass mode over the whole source,
// used by the firstpass_keyframes strategy. aom, rav1e and svt_av1 write
// statsPath.stat; vpx writes statsPath and x264/x265 write statsPath.log.
type FirstPassRunner struct {
	Tag         encoder.Tag
	Args        []string
	PixFormat   []string
	TotalFrames int
}

func (r FirstPassRunner) RunFirstPass(sourcePath, statsPath string) error {
	decodeCmd := []string{"ffmpeg", "-y", "-hide_banner", "-loglevel", "error", "-i", sourcePath}
	decodeCmd = append(decodeCmd, r.PixFormat...)
	decodeCmd = append(decodeCmd, "-color_range", "0", "-f", "yuv4mpegpipe", "-")

	pipeline, err := encoder.Compose(r.Tag, r.Args, encoder.ChunkInput{
		InputCommand: decodeCmd,
		Frames:       r.TotalFrames,
		FpfPath:      statsPath,
	}, 1, 2, os.DevNull)
	if err != nil {
		return err
	}
	return gateway.Run(context.Background(), pipeline.DecoderCmd, pipeline.EncoderCmd, nil)
}

// FFmpegSegmenter splits the source losslessly at splitPoints using
// ffmpeg's segment muxer, writing one file per resulting range under
// splitDir.
type FFmpegSegmenter struct{}

func (FFmpegSegmenter) Segment(sourcePath, splitDir string, splitPoints []int) ([]string, error) {
	if err := os.MkdirAll(splitDir, 0755); err != nil {
		return nil, errors.Wrap(errors.KindIO, "adapters: create split dir", err)
	}

	pattern := filepath.Join(splitDir, "%05d.mkv")
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", sourcePath, "-c", "copy", "-map", "0:v"}
	if len(splitPoints) > 0 {
		frames := make([]string, len(splitPoints))
		for i, p := range splitPoints {
			frames[i] = strconv.Itoa(p)
		}
		args = append(args, "-f", "segment", "-segment_frames", strings.Join(frames, ","))
	} else {
		args = append(args, "-f", "segment", "-segment_time", "999999")
	}
	args = append(args, "-reset_timestamps", "1", pattern)

	if err := exec.Command("ffmpeg", args...).Run(); err != nil {
		return nil, errors.Wrap(errors.KindSplit, "adapters: segment source", err)
	}

	matches, err := filepath.Glob(filepath.Join(splitDir, "*.mkv"))
	if err != nil {
		return nil, errors.Wrap(errors.KindIO, "adapters: glob split files", err)
	}
	return matches, nil
}

// FFprobeKeyframeReader lists the source container's own keyframe frame
// indices, used by the hybrid chunk method.
type FFprobeKeyframeReader struct{}

func (FFprobeKeyframeReader) Keyframes(sourcePath string) ([]int, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-select_streams", "v:0",
		"-show_entries", "frame=pict_type", "-print_format", "csv=p=0", sourcePath)
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrap(errors.KindIO, "adapters: probe keyframes", err)
	}

	var keyframes []int
	for i, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if strings.TrimSpace(line) == "I" {
			keyframes = append(keyframes, i)
		}
	}
	return keyframes, nil
}

// FFprobeFrameCounter satisfies scheduler.FrameCounter.
type FFprobeFrameCounter struct{}

func (FFprobeFrameCounter) FrameCount(path string) (int, error) {
	return ffprobe.FrameCount(path)
}

// FFmpegAudioExtractor satisfies assembly.AudioExtractor: it copies every
// audio stream from the source into a standalone container, or reports
// hasAudio=false when the source carries none.
type FFmpegAudioExtractor struct{}

func (FFmpegAudioExtractor) ExtractAudio(sourcePath, audioPath string) (bool, error) {
	streams, err := ffprobe.GetAudioStreamInfo(sourcePath)
	if err != nil {
		return false, errors.Wrap(errors.KindIO, "adapters: probe audio streams", err)
	}
	if len(streams) == 0 {
		return false, nil
	}

	cmd := exec.Command("ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-i", sourcePath, "-vn", "-map", "0:a", "-c", "copy", audioPath)
	if err := cmd.Run(); err != nil {
		return false, errors.Wrap(errors.KindAssembly, "adapters: extract audio", err)
	}
	return true, nil
}

// MetricScorer is the external collaborator that measures the perceptual
// quality of a probe encode against its source, e.g. an ssimulacra2 or
// VMAF binary. Probing itself (encode + measure) is the external
// boundary; tq only ever sees the resulting score.
type MetricScorer interface {
	Score(sourcePath, probePath string, probingRate int) (float64, error)
}

// EncodingProber implements tq.Prober: it encodes c at quality q with a
// throwaway output, then asks scorer to rate it against the source.
type EncodingProber struct {
	Tag        encoder.Tag
	Args       []string
	SourcePath string
	Scorer     MetricScorer
}

func (p EncodingProber) Probe(c chunk.Chunk, q int, probingRate int) (float64, error) {
	probePath := c.OutputPath + fmt.Sprintf(".q%d.probe", q)
	defer os.Remove(probePath)

	pipeline, err := encoder.Compose(p.Tag, p.Args, encoder.ChunkInput{
		InputCommand: c.InputCommand,
		Frames:       c.Frames,
		FpfPath:      c.FpfPath + fmt.Sprintf(".q%d", q),
	}, 1, 1, probePath)
	if err != nil {
		return 0, err
	}

	encoderCmd, err := encoder.RewriteQuality(p.Tag, pipeline.EncoderCmd, q)
	if err != nil {
		return 0, err
	}

	if err := gateway.Run(context.Background(), pipeline.DecoderCmd, encoderCmd, nil); err != nil {
		return 0, err
	}

	return p.Scorer.Score(p.SourcePath, probePath, probingRate)
}

// VMAFScorer measures perceptual quality with ffmpeg's libvmaf filter,
// sampling every probingRate-th frame to keep probe encodes cheap, the
// same probing-rate knob the upstream VMAF runner exposes.
type VMAFScorer struct {
	Model string // optional path to a non-default VMAF model
}

var _ MetricScorer = VMAFScorer{}

type vmafLog struct {
	PooledMetrics struct {
		VMAF struct {
			Mean float64 `json:"mean"`
		} `json:"vmaf"`
	} `json:"pooled_metrics"`
}

func (s VMAFScorer) Score(sourcePath, probePath string, probingRate int) (float64, error) {
	logPath := probePath + ".vmaf.json"
	defer os.Remove(logPath)

	filter := fmt.Sprintf("select=not(mod(n\\,%d))[dist];[0:v]select=not(mod(n\\,%d))[ref];"+
		"[dist][ref]libvmaf=log_path=%s:log_fmt=json", probingRate, probingRate, logPath)
	if s.Model != "" {
		filter += fmt.Sprintf(":model_path=%s", s.Model)
	}

	cmd := exec.Command("ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-i", probePath, "-i", sourcePath, "-filter_complex", filter, "-f", "null", "-")
	if err := cmd.Run(); err != nil {
		return 0, errors.Wrap(errors.KindIO, "adapters: run vmaf", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		return 0, errors.Wrap(errors.KindIO, "adapters: read vmaf log", err)
	}
	var parsed vmafLog
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, errors.Wrap(errors.KindJSONParse, "adapters: parse vmaf log", err)
	}
	return parsed.PooledMetrics.VMAF.Mean, nil
}
