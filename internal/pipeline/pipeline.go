// Package pipeline wires the core components (split decider, chunk queue
// builder, resume store, scheduler, assembly) and the external-tool
// adapters into one end-to-end encode operation, the role cmd/splitreel's
// main.go delegates to after flag parsing.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/splitreel/splitreel/internal/adapters"
	"github.com/splitreel/splitreel/internal/assembly"
	"github.com/splitreel/splitreel/internal/chunk"
	"github.com/splitreel/splitreel/internal/config"
	"github.com/splitreel/splitreel/internal/encoder"
	"github.com/splitreel/splitreel/internal/ffprobe"
	"github.com/splitreel/splitreel/internal/logging"
	"github.com/splitreel/splitreel/internal/queuebuild"
	"github.com/splitreel/splitreel/internal/reporter"
	"github.com/splitreel/splitreel/internal/resume"
	"github.com/splitreel/splitreel/internal/scheduler"
	"github.com/splitreel/splitreel/internal/splitdecide"
	"github.com/splitreel/splitreel/internal/util"
)

// Run executes the full pipeline for one source: inspect, decide splits,
// build the chunk queue (resuming where done.json leaves off), encode
// every remaining chunk, and assemble the final output.
func Run(ctx context.Context, cfg *config.Config, rep reporter.Reporter, log *logging.Logger, scorer adapters.MetricScorer) error {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("pipeline: invalid configuration: %w", err)
	}
	if err := util.EnsureDirectory(cfg.TempDir); err != nil {
		return fmt.Errorf("pipeline: create temp dir: %w", err)
	}

	log.Info("inspecting source %s", cfg.InputPath)
	media, err := ffprobe.GetMediaInfo(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("pipeline: inspect source: %w", err)
	}
	totalFrames := int(media.TotalFrames)

	rep.Source(reporter.SourceSummary{
		InputFile:    cfg.InputPath,
		OutputFile:   cfg.OutputPath,
		Duration:     util.FormatDurationFromSecs(int64(media.DurationSecs)),
		Resolution:   fmt.Sprintf("%dx%d", media.Width, media.Height),
		DynamicRange: "SDR",
		FrameCount:   totalFrames,
	})

	spec := encoder.Table[cfg.Encoder]
	pixFormat := []string{"-pix_fmt", "yuv420p10le"}

	points, err := decideSplits(cfg, media, totalFrames, rep, spec, pixFormat)
	if err != nil {
		return fmt.Errorf("pipeline: split decision: %w", err)
	}

	chunks, _, err := buildQueue(cfg, totalFrames, points, spec, pixFormat, rep)
	if err != nil {
		return fmt.Errorf("pipeline: chunk queue: %w", err)
	}

	resumeStore, err := resume.Open(cfg.TempDir, totalFrames)
	if err != nil {
		return fmt.Errorf("pipeline: open resume store: %w", err)
	}

	if len(chunks) > 0 {
		advancer := reporter.NewAdvancer(rep)
		for _, c := range chunks {
			advancer.Announce(reporter.ChunkStarted{
				ChunkName: c.Name,
				Frames:    c.Frames,
				Passes:    cfg.Passes,
			})
		}

		schedOpts := scheduler.Options{
			Encoder:         cfg.Encoder,
			EncoderArgs:     cfg.EncoderArgs,
			Passes:          cfg.Passes,
			ReuseFirstPass:  cfg.ReuseFirstPass,
			Target:          cfg.Target,
			QualityMin:      cfg.QualityMin,
			QualityMax:      cfg.QualityMax,
			TQProbes:        cfg.TQProbes,
			ProbingRate:     cfg.ProbingRate,
			Workers:         cfg.Workers,
			VerifyOutput:    cfg.VerifyOutput,
			MaxChunkRetries: cfg.MaxChunkRetries,
			Resume:          resumeStore,
			Counter:         adapters.FFprobeFrameCounter{},
			Progress:        advancer,
		}
		if cfg.TQEnabled() {
			schedOpts.Prober = adapters.EncodingProber{
				Tag:        cfg.Encoder,
				Args:       cfg.EncoderArgs,
				SourcePath: cfg.InputPath,
				Scorer:     scorer,
			}
		}

		if err := scheduler.Run(ctx, chunks, schedOpts); err != nil {
			return fmt.Errorf("pipeline: encode: %w", err)
		}
	}

	rep.StageProgress(reporter.StageProgress{Stage: "assembly", Message: "merging chunks"})
	finalChunks, err := queuebuild.Load(cfg.TempDir)
	if err != nil {
		return fmt.Errorf("pipeline: reload chunk queue for assembly: %w", err)
	}
	if err := assembly.Assemble(cfg.Assembly, finalChunks, cfg.InputPath, cfg.TempDir, cfg.OutputPath,
		adapters.FFmpegAudioExtractor{}); err != nil {
		return fmt.Errorf("pipeline: assemble output: %w", err)
	}

	hasAudio := media.HasAudio
	rep.Assembled(reporter.AssemblySummary{
		Strategy:   string(cfg.Assembly),
		ChunkCount: len(finalChunks),
		HasAudio:   hasAudio,
		OutputPath: cfg.OutputPath,
	})

	originalSize, _ := util.GetFileSize(cfg.InputPath)
	encodedSize, _ := util.GetFileSize(cfg.OutputPath)
	elapsed := time.Since(start)
	speed := float32(0)
	if elapsed.Seconds() > 0 {
		speed = float32(media.DurationSecs / elapsed.Seconds())
	}

	rep.Complete(reporter.EncodingOutcome{
		InputFile:    cfg.InputPath,
		OutputFile:   util.GetFilename(cfg.OutputPath),
		OriginalSize: originalSize,
		EncodedSize:  encodedSize,
		TotalTime:    elapsed,
		AverageSpeed: speed,
		ChunksTotal:  len(finalChunks),
		OutputPath:   cfg.OutputPath,
	})
	return nil
}

func decideSplits(cfg *config.Config, media *ffprobe.MediaInfo, totalFrames int, rep reporter.Reporter,
	spec encoder.Spec, pixFormat []string) ([]int, error) {

	rep.StageProgress(reporter.StageProgress{Stage: "split", Message: "deciding split points"})

	firstPass := adapters.FirstPassRunner{
		Tag:         cfg.Encoder,
		Args:        cfg.EncoderArgs,
		PixFormat:   pixFormat,
		TotalFrames: totalFrames,
	}

	points, err := splitdecide.Decide(cfg.SplitStrategy, splitdecide.Params{
		SourcePath:     cfg.InputPath,
		TotalFrames:    totalFrames,
		MinSceneLen:    cfg.MinSceneLen,
		SceneThreshold: cfg.SceneThreshold,
		ExtraSplitMax:  cfg.ExtraSplitMax,
		StatsPath:      filepath.Join(cfg.TempDir, "firstpass"),
	}, adapters.FFmpegSceneDetector{}, firstPass)
	if err != nil {
		return nil, err
	}

	if err := splitdecide.SaveScenes(cfg.TempDir, points); err != nil {
		return nil, err
	}

	rep.SplitDecided(reporter.SplitSummary{
		Strategy:    string(cfg.SplitStrategy),
		SceneCount:  len(points),
		AfterMerge:  len(points),
		AfterExtra:  len(points),
		MinSceneLen: cfg.MinSceneLen,
	})
	return points, nil
}

func buildQueue(cfg *config.Config, totalFrames int, points []int, spec encoder.Spec, pixFormat []string,
	rep reporter.Reporter) ([]chunk.Chunk, int, error) {

	rep.StageProgress(reporter.StageProgress{Stage: "queue", Message: "building chunk queue"})

	chunksPath := filepath.Join(cfg.TempDir, "chunks.json")
	if cfg.Resume && util.FileExists(chunksPath) {
		all, err := queuebuild.Load(cfg.TempDir)
		if err != nil {
			return nil, 0, err
		}
		remaining, err := queuebuild.LoadResuming(cfg.TempDir)
		if err != nil {
			return nil, 0, err
		}
		resumed := len(all) - len(remaining)
		rep.QueueBuilt(reporter.QueueSummary{
			Method:     string(cfg.ChunkMethod),
			ChunkCount: len(remaining),
			Resumed:    resumed,
		})
		return remaining, resumed, nil
	}

	chunks, err := queuebuild.Build(cfg.ChunkMethod, queuebuild.Params{
		SourcePath:      cfg.InputPath,
		TempDir:         cfg.TempDir,
		TotalFrames:     totalFrames,
		SplitPoints:     points,
		OutputExtension: spec.OutputExtension,
		PixFormatArgs:   pixFormat,
	}, adapters.FFmpegSegmenter{}, adapters.FFprobeKeyframeReader{})
	if err != nil {
		return nil, 0, err
	}

	rep.QueueBuilt(reporter.QueueSummary{Method: string(cfg.ChunkMethod), ChunkCount: len(chunks)})
	return chunks, 0, nil
}
