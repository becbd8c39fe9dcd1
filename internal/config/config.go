// Package config holds the explicit configuration record for splitreel
// runs. Per the design notes, configuration is a fixed struct with an
// explicit Validate step, not a dynamic attribute bag: every field is
// named here, and Validate fills defaults from the encoder table and
// rejects unknown combinations. No runtime attribute injection.
package config

import (
	"fmt"

	"github.com/splitreel/splitreel/internal/encoder"
)

// Default constants shared across the encoder table and scheduler sizing.
const (
	// DefaultWorkerCap is the maximum worker count auto-sizing will choose
	// before per-encoder memory/CPU tunables cap it further.
	DefaultWorkerCap = 24

	// DefaultMinSceneLen is the minimum scene length, in frames, enforced
	// by the content_scene merge pass when not overridden.
	DefaultMinSceneLen = 24

	// DefaultExtraSplitMax is the maximum allowed gap, in frames, between
	// split points before subdivision kicks in.
	DefaultExtraSplitMax = 240

	// DefaultTQProbes is the default number of target-quality probes.
	DefaultTQProbes = 4

	// DefaultTQProbingRate decodes every Nth frame during a probe.
	DefaultTQProbingRate = 1

	// MaxChunkRetries is the number of retries before a chunk is fatal
	// (1 initial attempt + MaxChunkRetries retries; the 4th failure
	// overall is fatal, per §4.6/§8 scenario 6).
	MaxChunkRetries = 3
)

// SplitStrategy selects the split decider (component C).
type SplitStrategy string

const (
	SplitContentScene      SplitStrategy = "content_scene"
	SplitFirstpassKeyframe SplitStrategy = "firstpass_keyframes"
	SplitNone              SplitStrategy = "none"
)

// ChunkMethod selects the chunk queue builder's input-command strategy
// (component D).
type ChunkMethod string

const (
	ChunkMethodSegment  ChunkMethod = "segment"
	ChunkMethodSelect   ChunkMethod = "select"
	ChunkMethodVSFFMS2  ChunkMethod = "vs_ffms2"
	ChunkMethodVSLSmash ChunkMethod = "vs_lsmash"
	ChunkMethodHybrid   ChunkMethod = "hybrid"
)

// AssemblyStrategy selects the final container merge strategy (component
// I): container concat via the media toolkit, or the tree-style
// stream-level merger.
type AssemblyStrategy string

const (
	AssemblyConcat AssemblyStrategy = "concat"
	AssemblyTree   AssemblyStrategy = "tree"
)

// Config is the full, validated configuration for one encode run.
type Config struct {
	InputPath  string
	OutputPath string
	// TempDir is the persistent-state root (<temp>/ in the external
	// interfaces layout).
	TempDir string

	// Encoder is the tag selecting the encoder abstraction (component E).
	Encoder encoder.Tag
	// EncoderArgs are user-supplied arguments; when empty, the encoder's
	// DefaultArguments are used.
	EncoderArgs []string
	// Passes overrides the encoder's DefaultPasses when non-zero.
	Passes int
	// ReuseFirstPass skips pass 1 whenever passes >= 2, reusing the stats
	// file at the chunk's fpf path; whether that file exists is not checked.
	ReuseFirstPass bool

	// Split strategy and parameters (component C).
	SplitStrategy  SplitStrategy
	MinSceneLen    int
	SceneThreshold float64 // content_scene detector sensitivity, 0-1
	ExtraSplitMax  int

	// ChunkMethod selects the component D chunk-input strategy.
	ChunkMethod ChunkMethod

	// Target-quality search (component F). Target == 0 disables TQ.
	Target      float64
	QualityMin  int
	QualityMax  int
	TQProbes    int
	ProbingRate int

	// Scheduler (component G).
	Workers         int
	VerifyOutput    bool
	MaxChunkRetries int

	// Assembly (component I).
	Assembly AssemblyStrategy

	// Resume (component H).
	Resume bool

	// Ambient.
	Verbose bool
	NoLog   bool
}

// Option mutates a Config during construction, mirroring the teacher's
// functional-option pattern (WithPreset, WithQualitySD, ...).
type Option func(*Config)

func WithEncoder(tag encoder.Tag) Option         { return func(c *Config) { c.Encoder = tag } }
func WithEncoderArgs(args []string) Option       { return func(c *Config) { c.EncoderArgs = args } }
func WithPasses(n int) Option                    { return func(c *Config) { c.Passes = n } }
func WithSplitStrategy(s SplitStrategy) Option   { return func(c *Config) { c.SplitStrategy = s } }
func WithMinSceneLen(n int) Option               { return func(c *Config) { c.MinSceneLen = n } }
func WithSceneThreshold(t float64) Option        { return func(c *Config) { c.SceneThreshold = t } }
func WithExtraSplitMax(n int) Option             { return func(c *Config) { c.ExtraSplitMax = n } }
func WithChunkMethod(m ChunkMethod) Option        { return func(c *Config) { c.ChunkMethod = m } }
func WithTarget(t float64) Option                 { return func(c *Config) { c.Target = t } }
func WithQualityRange(min, max int) Option        { return func(c *Config) { c.QualityMin, c.QualityMax = min, max } }
func WithWorkers(n int) Option                    { return func(c *Config) { c.Workers = n } }
func WithResume(enabled bool) Option               { return func(c *Config) { c.Resume = enabled } }
func WithVerbose(v bool) Option                    { return func(c *Config) { c.Verbose = v } }
func WithTempDir(dir string) Option                { return func(c *Config) { c.TempDir = dir } }
func WithAssembly(a AssemblyStrategy) Option       { return func(c *Config) { c.Assembly = a } }
func WithReuseFirstPass(enabled bool) Option       { return func(c *Config) { c.ReuseFirstPass = enabled } }

// New builds a Config with defaults, then applies opts.
func New(inputPath, outputPath string, opts ...Option) *Config {
	c := &Config{
		InputPath:       inputPath,
		OutputPath:      outputPath,
		Encoder:         encoder.TagSVTAV1,
		SplitStrategy:   SplitContentScene,
		MinSceneLen:     DefaultMinSceneLen,
		SceneThreshold:  0.4,
		ExtraSplitMax:   DefaultExtraSplitMax,
		ChunkMethod:     ChunkMethodHybrid,
		TQProbes:        DefaultTQProbes,
		ProbingRate:     DefaultTQProbingRate,
		Workers:         DefaultWorkerCap,
		VerifyOutput:    true,
		MaxChunkRetries: MaxChunkRetries,
		Assembly:        AssemblyConcat,
		Resume:          true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate fills encoder-table defaults and rejects unknown combinations.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("input path is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if c.TempDir == "" {
		return fmt.Errorf("temp directory is required")
	}

	spec, ok := encoder.Table[c.Encoder]
	if !ok {
		return fmt.Errorf("unknown encoder %q", c.Encoder)
	}

	if c.Passes == 0 {
		c.Passes = spec.DefaultPasses
	}
	if c.Passes < 1 || c.Passes > 2 {
		return fmt.Errorf("passes must be 1 or 2, got %d", c.Passes)
	}
	if spec.SinglePassOnly && c.Passes == 2 {
		c.Passes = 1 // svt_vp9: 2-pass coerced to 1-pass, explicitly, per §9.
	}

	if len(c.EncoderArgs) == 0 {
		c.EncoderArgs = append([]string(nil), spec.DefaultArguments...)
	}

	if c.QualityMin == 0 && c.QualityMax == 0 {
		c.QualityMin, c.QualityMax = spec.DefaultQualityMin, spec.DefaultQualityMax
	}
	if c.QualityMin > c.QualityMax {
		return fmt.Errorf("quality range invalid: min %d > max %d", c.QualityMin, c.QualityMax)
	}
	if c.QualityMin < spec.DefaultQualityMin || c.QualityMax > spec.DefaultQualityMax {
		return fmt.Errorf("quality range [%d,%d] outside encoder %s's supported range [%d,%d]",
			c.QualityMin, c.QualityMax, c.Encoder, spec.DefaultQualityMin, spec.DefaultQualityMax)
	}

	switch c.SplitStrategy {
	case SplitContentScene, SplitFirstpassKeyframe, SplitNone:
	default:
		return fmt.Errorf("unknown split strategy %q", c.SplitStrategy)
	}

	switch c.ChunkMethod {
	case ChunkMethodSegment, ChunkMethodSelect, ChunkMethodVSFFMS2, ChunkMethodVSLSmash, ChunkMethodHybrid:
	default:
		return fmt.Errorf("unknown chunk method %q", c.ChunkMethod)
	}

	switch c.Assembly {
	case AssemblyConcat, AssemblyTree:
	default:
		return fmt.Errorf("unknown assembly strategy %q", c.Assembly)
	}

	if c.Target < 0 || c.Target > 100 {
		return fmt.Errorf("target quality must be in [0,100], got %g", c.Target)
	}
	if c.Target > 0 && c.TQProbes < 3 {
		return fmt.Errorf("target-quality probes must be >= 3, got %d", c.TQProbes)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxChunkRetries < 0 {
		return fmt.Errorf("max chunk retries must be non-negative, got %d", c.MaxChunkRetries)
	}
	if c.ExtraSplitMax < 1 {
		return fmt.Errorf("extra split max must be positive, got %d", c.ExtraSplitMax)
	}
	if c.MinSceneLen < 0 {
		return fmt.Errorf("min scene length must be non-negative, got %d", c.MinSceneLen)
	}

	return nil
}

// TQEnabled reports whether target-quality search is active for this run.
func (c *Config) TQEnabled() bool { return c.Target > 0 }
