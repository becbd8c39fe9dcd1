// Package encoder implements the encoder abstraction (component E): a
// closed tagged variant over the supported encoder family, each owning its
// default arguments, quality range, pipeline composition, quality-flag
// rewrite, and progress-line regex.
//
// Grounded on the upstream encoder subclasses (encoder.py, aom.py,
// rav1e.py, svtav1.py, svtvp9.py, vpx.py, x264.py, x265.py, vvc.py): each
// Go Spec below mirrors one Python Encoder subclass's __init__ arguments,
// compose_1_pass/compose_2_pass, man_q, and match_line.
package encoder

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Tag identifies one member of the closed encoder set.
type Tag string

const (
	TagAOM    Tag = "aom"
	TagRav1e  Tag = "rav1e"
	TagSVTAV1 Tag = "svt_av1"
	TagSVTVP9 Tag = "svt_vp9"
	TagVPX    Tag = "vpx"
	TagX264   Tag = "x264"
	TagX265   Tag = "x265"
	TagVVC    Tag = "vvc"
)

// qualityStyle distinguishes "--flag value" pairs from "--flag=value"
// single tokens when rewriting the quality parameter.
type qualityStyle int

const (
	styleSeparateArg qualityStyle = iota
	styleInlineArg
)

// ChunkInput is the subset of chunk data Compose needs, kept independent
// of the chunk package so that encoder stays a leaf package.
type ChunkInput struct {
	// InputCommand writes this chunk's raw frames to stdout in a
	// pipe-friendly frame format (Y4M for most encoders).
	InputCommand []string
	// Frames is this chunk's expected frame count.
	Frames int
	// FpfPath is the base path for first-pass statistics (§3).
	FpfPath string
}

// Pipeline is one decoder/encoder command pair: the decoder's stdout
// feeds the encoder's stdin (§9 design note on pipe orchestration).
type Pipeline struct {
	DecoderCmd []string
	EncoderCmd []string
	// DiscardOutput is true for a first pass whose bitstream output is
	// thrown away (written to the OS null device).
	DiscardOutput bool
}

// Spec is one encoder variant's complete behavior.
type Spec struct {
	Tag              Tag
	BinaryName       string
	DefaultArguments []string
	DefaultPasses    int
	DefaultQualityMin int
	DefaultQualityMax int
	OutputExtension  string
	// SinglePassOnly encoders silently coerce a 2-pass request to 1 pass
	// (svt_vp9, per §4.4's special rule and §9's open question to keep
	// the coercion explicit).
	SinglePassOnly bool
	// RawPixelPipe is true when the decoder must emit headerless raw
	// video instead of Y4M (svt_vp9).
	RawPixelPipe bool

	qualityFlag  *regexp.Regexp
	qualityStyle qualityStyle
	progressLine *regexp.Regexp
	fatalLine    *regexp.Regexp
}

// Table is the closed encoder set.
var Table = map[Tag]Spec{
	TagAOM: {
		Tag:               TagAOM,
		BinaryName:        "aomenc",
		DefaultArguments:  []string{"--threads=12", "--cpu-used=0", "--end-usage=q", "--cq-level=40"},
		DefaultPasses:     2,
		DefaultQualityMin: 0,
		DefaultQualityMax: 63,
		OutputExtension:   "ivf",
		qualityFlag:       regexp.MustCompile(`^--cq-level=`),
		qualityStyle:      styleInlineArg,
		progressLine:      regexp.MustCompile(`frame.*?/(\d+) `),
		fatalLine:         regexp.MustCompile(`(?i)fatal`),
	},
	TagRav1e: {
		Tag:               TagRav1e,
		BinaryName:        "rav1e",
		DefaultArguments:  []string{"--tiles", "8", "--speed", "6", "--quantizer", "100"},
		DefaultPasses:     1,
		DefaultQualityMin: 50,
		DefaultQualityMax: 140,
		OutputExtension:   "ivf",
		qualityFlag:       regexp.MustCompile(`^--quantizer$`),
		qualityStyle:      styleSeparateArg,
		progressLine:      regexp.MustCompile(`encoded.*? (\d+) `),
		fatalLine:         regexp.MustCompile(`(?i)error`),
	},
	TagSVTAV1: {
		Tag:               TagSVTAV1,
		BinaryName:        "SvtAv1EncApp",
		DefaultArguments:  []string{"--preset", "6", "--crf", "30"},
		DefaultPasses:     2,
		DefaultQualityMin: 0,
		DefaultQualityMax: 63,
		OutputExtension:   "ivf",
		qualityFlag:       regexp.MustCompile(`^(--qp|-q|--crf)$`),
		qualityStyle:      styleSeparateArg,
		progressLine:      regexp.MustCompile(`Encoding frame\s+(\d+)`),
		fatalLine:         regexp.MustCompile(`(?i)error`),
	},
	TagSVTVP9: {
		Tag:               TagSVTVP9,
		BinaryName:        "SvtVp9EncApp",
		DefaultArguments:  []string{"-q", "30"},
		DefaultPasses:     1,
		DefaultQualityMin: 15,
		DefaultQualityMax: 55,
		OutputExtension:   "ivf",
		SinglePassOnly:    true,
		RawPixelPipe:      true,
		qualityFlag:       regexp.MustCompile(`^-q$`),
		qualityStyle:      styleSeparateArg,
		progressLine:      regexp.MustCompile(`frame\s+(\d+)`),
		fatalLine:         regexp.MustCompile(`(?i)fatal`),
	},
	TagVPX: {
		Tag:               TagVPX,
		BinaryName:        "vpxenc",
		DefaultArguments:  []string{"--codec=vp9", "-b", "10", "--profile=2", "--threads=4", "--cpu-used=0", "--end-usage=q", "--cq-level=30", "--row-mt=1"},
		DefaultPasses:     2,
		DefaultQualityMin: 15,
		DefaultQualityMax: 55,
		OutputExtension:   "ivf",
		qualityFlag:       regexp.MustCompile(`^--cq-level=`),
		qualityStyle:      styleInlineArg,
		progressLine:      regexp.MustCompile(`frame.*?/(\d+) `),
		fatalLine:         regexp.MustCompile(`(?i)fatal`),
	},
	TagX264: {
		Tag:               TagX264,
		BinaryName:        "x264",
		DefaultArguments:  []string{"--preset", "slow", "--crf", "25"},
		DefaultPasses:     1,
		DefaultQualityMin: 15,
		DefaultQualityMax: 35,
		OutputExtension:   "mkv",
		qualityFlag:       regexp.MustCompile(`^--crf$`),
		qualityStyle:      styleSeparateArg,
		progressLine:      regexp.MustCompile(`^[^\d]*(\d+)`),
		fatalLine:         regexp.MustCompile(`(?i)x264 \[error\]`),
	},
	TagX265: {
		Tag:               TagX265,
		BinaryName:        "x265",
		DefaultArguments:  []string{"-p", "slow", "--crf", "25", "-D", "10"},
		DefaultPasses:     1,
		DefaultQualityMin: 15,
		DefaultQualityMax: 35,
		OutputExtension:   "mkv",
		qualityFlag:       regexp.MustCompile(`^--crf$`),
		qualityStyle:      styleSeparateArg,
		progressLine:      regexp.MustCompile(`^\[.*\]\s(\d+)/\d+`),
		fatalLine:         regexp.MustCompile(`(?i)x265 \[error\]`),
	},
	TagVVC: {
		Tag:               TagVVC,
		BinaryName:        "vvc_encoder",
		DefaultArguments:  []string{"-q", "30"},
		DefaultPasses:     1,
		DefaultQualityMin: 15,
		DefaultQualityMax: 50,
		OutputExtension:   "h266",
		qualityFlag:       regexp.MustCompile(`^-q$`),
		qualityStyle:      styleSeparateArg,
		progressLine:      regexp.MustCompile(`POC.*? (\d+)`),
		fatalLine:         regexp.MustCompile(`(?i)error`),
	},
}

// Tags returns the closed set in a stable order, useful for CLI help text
// and validation error messages.
func Tags() []Tag {
	return []Tag{TagAOM, TagRav1e, TagSVTAV1, TagSVTVP9, TagVPX, TagX264, TagX265, TagVVC}
}

// Compose builds the (decoder, encoder) command pair for one pass.
//
// decoderCmd is chunk.InputCommand rewritten to emit the pixel format this
// encoder consumes (Y4M for all but svt_vp9, which needs headerless raw
// video, §4.4's special rule). encoderCmd is the encoder invocation for
// this pass; for 2-pass encoders, pass 1 writes fpf stats and discards its
// bitstream output, pass 2 reads those stats and writes outputPath.
func Compose(tag Tag, args []string, chunk ChunkInput, passIndex, totalPasses int, outputPath string) (Pipeline, error) {
	spec, ok := Table[tag]
	if !ok {
		return Pipeline{}, fmt.Errorf("encoder: unknown tag %q", tag)
	}
	if spec.SinglePassOnly && totalPasses > 1 {
		totalPasses = 1
	}

	format := "yuv4mpegpipe"
	if spec.RawPixelPipe {
		format = "rawvideo"
	}
	decoderCmd := rewriteOutputFormat(chunk.InputCommand, format)

	var encoderCmd []string
	discard := false

	switch tag {
	case TagAOM:
		encoderCmd, discard = composeAom(args, chunk, passIndex, totalPasses, outputPath)
	case TagRav1e:
		encoderCmd, discard = composeRav1e(args, chunk, passIndex, totalPasses, outputPath)
	case TagSVTAV1:
		encoderCmd, discard = composeSvtAv1(args, chunk, passIndex, totalPasses, outputPath)
	case TagSVTVP9:
		encoderCmd = composeSvtVp9(args, chunk, outputPath)
	case TagVPX:
		encoderCmd, discard = composeVpx(args, chunk, passIndex, totalPasses, outputPath)
	case TagX264:
		encoderCmd, discard = composeX264(args, chunk, passIndex, totalPasses, outputPath)
	case TagX265:
		encoderCmd, discard = composeX265(args, chunk, passIndex, totalPasses, outputPath)
	case TagVVC:
		encoderCmd = composeVvc(args, chunk, outputPath)
	default:
		return Pipeline{}, fmt.Errorf("encoder: unhandled tag %q", tag)
	}

	return Pipeline{DecoderCmd: decoderCmd, EncoderCmd: encoderCmd, DiscardOutput: discard}, nil
}

func composeAom(args []string, c ChunkInput, pass, total int, output string) ([]string, bool) {
	if total == 1 {
		return append([]string{"aomenc", "--passes=1"}, append(args, "-o", output, "-")...), false
	}
	if pass == 1 {
		return append([]string{"aomenc", "--passes=2", "--pass=1"}, append(args, fmt.Sprintf("--fpf=%s.stat", c.FpfPath), "-o", os.DevNull, "-")...), true
	}
	return append([]string{"aomenc", "--passes=2", "--pass=2"}, append(args, fmt.Sprintf("--fpf=%s.stat", c.FpfPath), "-o", output, "-")...), false
}

func composeRav1e(args []string, c ChunkInput, pass, total int, output string) ([]string, bool) {
	if total == 1 {
		return append([]string{"rav1e", "-", "-y"}, append(args, "--output", output)...), false
	}
	if pass == 1 {
		return append([]string{"rav1e", "-", "-q", "-y", "--first-pass", c.FpfPath + ".stat"}, append(args, "--output", os.DevNull)...), true
	}
	return append([]string{"rav1e", "-", "-y", "--second-pass", c.FpfPath + ".stat"}, append(args, "--output", output)...), false
}

func composeSvtAv1(args []string, c ChunkInput, pass, total int, output string) ([]string, bool) {
	base := []string{"SvtAv1EncApp", "-i", "stdin", "--progress", "2", "--irefresh-type", "2"}
	if total == 1 {
		return append(append(base, args...), "-b", output), false
	}
	if pass == 1 {
		return append(append(base, args...), "--pass", "1", "--stats", c.FpfPath+".stat", "-b", os.DevNull), true
	}
	return append(append(base, args...), "--pass", "2", "--stats", c.FpfPath+".stat", "-b", output), false
}

func composeSvtVp9(args []string, c ChunkInput, output string) []string {
	return append([]string{"SvtVp9EncApp", "-i", "stdin", "-n", strconv.Itoa(c.Frames)}, append(args, "-b", output)...)
}

func composeVpx(args []string, c ChunkInput, pass, total int, output string) ([]string, bool) {
	if total == 1 {
		return append([]string{"vpxenc", "--passes=1"}, append(args, "-o", output, "-")...), false
	}
	if pass == 1 {
		return append([]string{"vpxenc", "--passes=2", "--pass=1"}, append(args, fmt.Sprintf("--fpf=%s", c.FpfPath), "-o", os.DevNull, "-")...), true
	}
	return append([]string{"vpxenc", "--passes=2", "--pass=2"}, append(args, fmt.Sprintf("--fpf=%s", c.FpfPath), "-o", output, "-")...), false
}

func composeX264(args []string, c ChunkInput, pass, total int, output string) ([]string, bool) {
	if total == 1 {
		return append([]string{"x264", "--stitchable", "--log-level", "error", "--demuxer", "y4m"}, append(args, "-", "-o", output)...), false
	}
	if pass == 1 {
		return append([]string{"x264", "--stitchable", "--log-level", "error", "--pass", "1", "--demuxer", "y4m"}, append(args, "-", "--stats", c.FpfPath+".log", "-o", os.DevNull)...), true
	}
	return append([]string{"x264", "--stitchable", "--log-level", "error", "--pass", "2", "--demuxer", "y4m"}, append(args, "-", "--stats", c.FpfPath+".log", "-o", output)...), false
}

func composeX265(args []string, c ChunkInput, pass, total int, output string) ([]string, bool) {
	if total == 1 {
		return append([]string{"x265", "--y4m", "--frames", strconv.Itoa(c.Frames)}, append(args, "-", "-o", output)...), false
	}
	if pass == 1 {
		return append([]string{"x265", "--log-level", "error", "--no-progress", "--pass", "1", "--y4m", "--frames", strconv.Itoa(c.Frames)}, append(args, "--stats", c.FpfPath+".log", "-", "-o", os.DevNull)...), true
	}
	return append([]string{"x265", "--log-level", "error", "--pass", "2", "--y4m", "--frames", strconv.Itoa(c.Frames)}, append(args, "--stats", c.FpfPath+".log", "-", "-o", output)...), false
}

func composeVvc(args []string, c ChunkInput, output string) []string {
	return append([]string{"vvc_encoder", "-i", "-"}, append(args, "-f", strconv.Itoa(c.Frames), "--InputBitDepth=10", "--OutputBitDepth=10", "-b", output)...)
}

// rewriteOutputFormat clones cmd and swaps the trailing "-f <format> -"
// tokens, or appends them if absent. chunk.InputCommand is expected to end
// this way by convention (see queuebuild).
func rewriteOutputFormat(cmd []string, format string) []string {
	out := append([]string(nil), cmd...)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "-f" {
			out[i+1] = format
			return out
		}
	}
	return append(out, "-f", format, "-")
}

// RewriteQuality returns encoderCmd with its quality flag set to q. Exactly
// one argument is replaced; if the canonical flag is absent, that is a bug
// in Compose's output, not a user-recoverable condition, so it returns an
// error rather than silently appending a flag (per §9: "failing with
// 'quality-flag not found' when absent").
func RewriteQuality(tag Tag, encoderCmd []string, q int) ([]string, error) {
	spec, ok := Table[tag]
	if !ok {
		return nil, fmt.Errorf("encoder: unknown tag %q", tag)
	}
	out := append([]string(nil), encoderCmd...)
	for i, tok := range out {
		if !spec.qualityFlag.MatchString(tok) {
			continue
		}
		switch spec.qualityStyle {
		case styleInlineArg:
			loc := spec.qualityFlag.FindStringIndex(tok)
			out[i] = tok[:loc[1]] + strconv.Itoa(q)
		case styleSeparateArg:
			if i+1 >= len(out) {
				return nil, fmt.Errorf("encoder %s: quality flag %q has no value argument", tag, tok)
			}
			out[i+1] = strconv.Itoa(q)
		}
		return out, nil
	}
	return nil, fmt.Errorf("encoder %s: quality-flag not found", tag)
}

// MatchProgressLine extracts the cumulative encoded frame count from one
// line of encoder stdout/stderr, and reports whether the line indicates a
// fatal encoder error (distinct from a non-zero exit, since some encoders
// print "fatal"/"error" before continuing to flush buffered output).
func MatchProgressLine(tag Tag, line string) (frames int, matched bool, fatal bool) {
	spec, ok := Table[tag]
	if !ok {
		return 0, false, false
	}
	if spec.fatalLine != nil && spec.fatalLine.MatchString(line) {
		fatal = true
	}
	m := spec.progressLine.FindStringSubmatch(line)
	if m == nil {
		return 0, false, fatal
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false, fatal
	}
	return n, true, fatal
}
