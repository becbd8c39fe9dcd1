// Package main provides the CLI entry point for splitreel.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/adapters"
	"github.com/splitreel/splitreel/internal/config"
	"github.com/splitreel/splitreel/internal/encoder"
	"github.com/splitreel/splitreel/internal/logging"
	"github.com/splitreel/splitreel/internal/pipeline"
	"github.com/splitreel/splitreel/internal/reporter"
	"github.com/splitreel/splitreel/internal/sysinfo"
	"github.com/splitreel/splitreel/internal/util"
)

const appVersion = "0.1.0"

// cliArgs holds the raw flag values, translated into config.Options in
// buildConfig once cobra has parsed them.
type cliArgs struct {
	outputPath string
	tempDir    string

	encoderTag     string
	encoderArgs    []string
	passes         int
	reuseFirstPass bool

	splitStrategy  string
	minSceneLen    int
	sceneThreshold float64
	extraSplitMax  int

	chunkMethod string

	target      float64
	qualityMin  int
	qualityMax  int
	tqProbes    int
	probingRate int
	vmafModel   string

	workers      int
	verifyOutput bool

	assembly string
	resume   bool

	verbose bool
	noLog   bool
	json    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var a cliArgs

	cmd := &cobra.Command{
		Use:     "splitreel <input>",
		Short:   "Parallel chunk-oriented video transcoding orchestrator",
		Version: appVersion,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], a)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&a.outputPath, "output", "o", "", "output file or directory (required)")
	flags.StringVar(&a.tempDir, "temp-dir", "", "persistent state directory (defaults to <output-dir>/.splitreel)")

	flags.StringVar(&a.encoderTag, "encoder", string(encoder.TagSVTAV1), "encoder (aom, rav1e, svt_av1, svt_vp9, vpx, x264, x265, vvc)")
	flags.StringArrayVar(&a.encoderArgs, "encoder-arg", nil, "extra encoder argument (repeatable); defaults to the encoder's own arguments when unset")
	flags.IntVar(&a.passes, "passes", 0, "encoder passes, 1 or 2 (defaults to the encoder's own default)")
	flags.BoolVar(&a.reuseFirstPass, "reuse-first-pass", false, "skip pass 1 of a 2-pass encode and reuse its stats file (its presence is not checked)")

	flags.StringVar(&a.splitStrategy, "split", string(config.SplitContentScene), "split strategy (content_scene, firstpass_keyframes, none)")
	flags.IntVar(&a.minSceneLen, "min-scene-len", config.DefaultMinSceneLen, "minimum scene length in frames")
	flags.Float64Var(&a.sceneThreshold, "scene-threshold", 0.4, "scene-cut detector sensitivity, 0-1")
	flags.IntVar(&a.extraSplitMax, "extra-split-max", config.DefaultExtraSplitMax, "maximum frame gap between split points before subdivision")

	flags.StringVar(&a.chunkMethod, "chunk-method", string(config.ChunkMethodHybrid), "chunk input method (segment, select, vs_ffms2, vs_lsmash, hybrid)")

	flags.Float64Var(&a.target, "target", 0, "target perceptual quality score (0 disables target-quality search)")
	flags.IntVar(&a.qualityMin, "quality-min", 0, "lower bound of the quality search range (defaults to the encoder's own range)")
	flags.IntVar(&a.qualityMax, "quality-max", 0, "upper bound of the quality search range (defaults to the encoder's own range)")
	flags.IntVar(&a.tqProbes, "tq-probes", config.DefaultTQProbes, "number of target-quality probes per chunk")
	flags.IntVar(&a.probingRate, "probing-rate", config.DefaultTQProbingRate, "decode every Nth frame during a probe")
	flags.StringVar(&a.vmafModel, "vmaf-model", "", "path to a non-default VMAF model for target-quality probing")

	flags.IntVar(&a.workers, "workers", 0, "number of chunks encoded in parallel (0 auto-sizes from CPU/memory)")
	flags.BoolVar(&a.verifyOutput, "verify-output", true, "probe each encoded chunk's frame count against its input")

	flags.StringVar(&a.assembly, "assembly", string(config.AssemblyConcat), "final assembly strategy (concat, tree)")
	flags.BoolVar(&a.resume, "resume", true, "resume from a prior run's chunk queue and done list when present")

	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug-level logging")
	flags.BoolVar(&a.noLog, "no-log", false, "disable log file creation")
	flags.BoolVar(&a.json, "json", false, "emit NDJSON progress events on stdout instead of terminal output")

	return cmd
}

func run(ctx context.Context, inputArg string, a cliArgs) error {
	inputPath, err := filepath.Abs(inputArg)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	if !util.FileExists(inputPath) {
		return fmt.Errorf("input file does not exist: %s", inputPath)
	}
	if !util.IsVideoFile(inputPath) {
		return fmt.Errorf("input file has an unrecognized video extension: %s", inputPath)
	}

	if a.outputPath == "" {
		return fmt.Errorf("output path is required (-o/--output)")
	}
	info, err := util.ResolveOutputArg(inputPath, a.outputPath)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if err := util.EnsureDirectory(info.OutputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := util.ResolveOutputPath(inputPath, info.OutputDir, info.FilenameOverride)

	tempDir := a.tempDir
	if tempDir == "" {
		tempDir = filepath.Join(info.OutputDir, ".splitreel")
	}

	encTag := encoder.Tag(a.encoderTag)

	opts := []config.Option{
		config.WithEncoder(encTag),
		config.WithPasses(a.passes),
		config.WithReuseFirstPass(a.reuseFirstPass),
		config.WithSplitStrategy(config.SplitStrategy(a.splitStrategy)),
		config.WithMinSceneLen(a.minSceneLen),
		config.WithSceneThreshold(a.sceneThreshold),
		config.WithExtraSplitMax(a.extraSplitMax),
		config.WithChunkMethod(config.ChunkMethod(a.chunkMethod)),
		config.WithTarget(a.target),
		config.WithAssembly(config.AssemblyStrategy(a.assembly)),
		config.WithResume(a.resume),
		config.WithVerbose(a.verbose),
		config.WithTempDir(tempDir),
	}
	if len(a.encoderArgs) > 0 {
		opts = append(opts, config.WithEncoderArgs(a.encoderArgs))
	}
	if a.qualityMin != 0 || a.qualityMax != 0 {
		opts = append(opts, config.WithQualityRange(a.qualityMin, a.qualityMax))
	}
	workers := a.workers
	if workers <= 0 {
		workers = sysinfo.DefaultWorkers(encTag)
	}
	opts = append(opts, config.WithWorkers(workers))

	cfg := config.New(inputPath, outputPath, opts...)
	cfg.TQProbes = a.tqProbes
	cfg.ProbingRate = a.probingRate
	cfg.VerifyOutput = a.verifyOutput
	cfg.NoLog = a.noLog

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.Setup(cfg.TempDir, cfg.Verbose, cfg.NoLog)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	var rep reporter.Reporter
	if a.json {
		rep = reporter.NewJSONReporter()
	} else {
		rep = reporter.NewTerminalReporter()
	}

	var scorer adapters.MetricScorer
	if cfg.TQEnabled() {
		scorer = adapters.VMAFScorer{Model: a.vmafModel}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		rep.Warning("interrupt received, stopping in-flight chunks")
		cancel()
	}()

	if err := pipeline.Run(runCtx, cfg, rep, logger, scorer); err != nil {
		rep.Error(reporter.ReporterError{
			Title:   "encode failed",
			Message: err.Error(),
		})
		return err
	}

	rep.OperationComplete(fmt.Sprintf("encoded %s", util.GetFilename(outputPath)))
	return nil
}
