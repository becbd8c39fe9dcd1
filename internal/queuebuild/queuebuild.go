// Package queuebuild implements the chunk queue builder: it turns split
// points and a chunk method into an ordered list of chunks, persists and
// reloads that list, and filters out chunks already recorded as done.
package queuebuild

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/splitreel/splitreel/internal/chunk"
	"github.com/splitreel/splitreel/internal/config"
	"github.com/splitreel/splitreel/internal/errors"
	"github.com/splitreel/splitreel/internal/resume"
)

// Segmenter is the external collaborator that losslessly splits the
// source into per-segment files at the given split points, writing them
// under <temp>/split/<name>.mkv, used by the segment and hybrid methods.
type Segmenter interface {
	Segment(sourcePath, splitDir string, splitPoints []int) ([]string, error)
}

// KeyframeReader returns the source's own container keyframe positions,
// used by the hybrid method to decide which split points can be
// satisfied losslessly.
type KeyframeReader interface {
	Keyframes(sourcePath string) ([]int, error)
}

// Params bundles the builder's shared inputs.
type Params struct {
	SourcePath      string
	TempDir         string
	TotalFrames     int
	SplitPoints     []int
	OutputExtension string
	PixFormatArgs   []string // encoder-preferred pixel format flags for select/hybrid decode commands
}

// chunkRecord is the chunks.json wire schema (§6): all other chunk fields
// are derivable from these six.
type chunkRecord struct {
	Index           int      `json:"index"`
	InputCommand    []string `json:"input_command"`
	OutputExtension string   `json:"output_extension"`
	Size            int64    `json:"size"`
	Frames          int      `json:"frames"`
	AssignedQuality *int     `json:"assigned_quality"`
}

// Build dispatches to the configured chunk method, sorts the result by
// Size descending, and persists it to <temp>/chunks.json.
func Build(method config.ChunkMethod, p Params, seg Segmenter, kf KeyframeReader) ([]chunk.Chunk, error) {
	var chunks []chunk.Chunk
	var err error

	switch method {
	case config.ChunkMethodSegment:
		chunks, err = buildSegment(p, seg)
	case config.ChunkMethodSelect:
		chunks = buildSelect(p)
	case config.ChunkMethodVSFFMS2:
		chunks = buildVapoursynth(p, "ffms2")
	case config.ChunkMethodVSLSmash:
		chunks = buildVapoursynth(p, "lsmash")
	case config.ChunkMethodHybrid:
		chunks, err = buildHybrid(p, seg, kf)
	default:
		return nil, fmt.Errorf("queuebuild: unknown chunk method %q", method)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Size > chunks[j].Size })

	if err := Save(p.TempDir, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

func boundaries(splitPoints []int, totalFrames int) [][2]int {
	bounds := make([]int, 0, len(splitPoints)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, splitPoints...)
	bounds = append(bounds, totalFrames)

	pairs := make([][2]int, 0, len(bounds)-1)
	for i := 1; i < len(bounds); i++ {
		pairs = append(pairs, [2]int{bounds[i-1], bounds[i]})
	}
	return pairs
}

func selectCommand(sourcePath string, start, end int, pixFormat []string) []string {
	cmd := []string{
		"ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-i", sourcePath,
		"-vf", fmt.Sprintf("select=between(n\\,%d\\,%d),setpts=PTS-STARTPTS", start, end-1),
	}
	cmd = append(cmd, pixFormat...)
	cmd = append(cmd, "-color_range", "0", "-f", "yuv4mpegpipe", "-")
	return cmd
}

func decodeCommand(path string, pixFormat []string) []string {
	cmd := []string{"ffmpeg", "-y", "-hide_banner", "-loglevel", "error", "-i", path}
	cmd = append(cmd, pixFormat...)
	cmd = append(cmd, "-color_range", "0", "-f", "yuv4mpegpipe", "-")
	return cmd
}

// buildSelect builds one chunk per split range, each decoding the whole
// source and filtering to its frame range with ffmpeg's select filter.
func buildSelect(p Params) []chunk.Chunk {
	pairs := boundaries(p.SplitPoints, p.TotalFrames)
	chunks := make([]chunk.Chunk, 0, len(pairs))
	for i, b := range pairs {
		frames := b[1] - b[0]
		cmd := selectCommand(p.SourcePath, b[0], b[1], p.PixFormatArgs)
		chunks = append(chunks, chunk.New(i, frames, int64(frames), cmd, p.OutputExtension, p.TempDir))
	}
	return chunks
}

// buildSegment pre-splits the source losslessly, then builds one chunk
// per segment file, each simply decoding its own file.
func buildSegment(p Params, seg Segmenter) ([]chunk.Chunk, error) {
	splitDir := filepath.Join(p.TempDir, "split")
	files, err := seg.Segment(p.SourcePath, splitDir, p.SplitPoints)
	if err != nil {
		return nil, errors.Wrap(errors.KindSplit, "queuebuild: segment source", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("queuebuild: segmenter produced no files in %s", splitDir)
	}

	pairs := boundaries(p.SplitPoints, p.TotalFrames)
	chunks := make([]chunk.Chunk, 0, len(files))
	for i, f := range files {
		frames := pairs[i][1] - pairs[i][0]
		info, err := os.Stat(f)
		if err != nil {
			return nil, errors.Wrap(errors.KindIO, "queuebuild: stat segment file", err)
		}
		cmd := decodeCommand(f, p.PixFormatArgs)
		chunks = append(chunks, chunk.New(i, frames, info.Size(), cmd, p.OutputExtension, p.TempDir))
	}
	return chunks, nil
}

// buildHybrid pre-splits at the subset of split points that coincide with
// the source's own keyframes, then uses the select method for the
// interior cuts within each resulting segment file.
func buildHybrid(p Params, seg Segmenter, kf KeyframeReader) ([]chunk.Chunk, error) {
	keyframes, err := kf.Keyframes(p.SourcePath)
	if err != nil {
		return nil, err
	}
	keyframeSet := make(map[int]bool, len(keyframes))
	for _, k := range keyframes {
		keyframeSet[k] = true
	}

	splitDir := filepath.Join(p.TempDir, "split")
	var toSplit []int
	for _, s := range p.SplitPoints {
		if keyframeSet[s] {
			toSplit = append(toSplit, s)
		}
	}

	files, err := seg.Segment(p.SourcePath, splitDir, toSplit)
	if err != nil {
		return nil, errors.Wrap(errors.KindSplit, "queuebuild: segment source for hybrid", err)
	}

	segmentBounds := boundaries(toSplit, p.TotalFrames)
	if len(files) != len(segmentBounds) {
		return nil, fmt.Errorf("queuebuild: hybrid segmenter produced %d files for %d keyframe-aligned segments", len(files), len(segmentBounds))
	}

	allBounds := boundaries(p.SplitPoints, p.TotalFrames)

	index := 0
	var chunks []chunk.Chunk
	for i, segBound := range segmentBounds {
		segStart, segEnd := segBound[0], segBound[1]
		for _, b := range allBounds {
			if b[0] >= segStart && b[1] <= segEnd && b[0] < b[1] {
				frames := b[1] - b[0]
				cmd := selectCommand(files[i], b[0]-segStart, b[1]-segStart, p.PixFormatArgs)
				chunks = append(chunks, chunk.New(index, frames, int64(frames), cmd, p.OutputExtension, p.TempDir))
				index++
			}
		}
	}
	return chunks, nil
}

// buildVapoursynth builds one chunk per split range using a vspipe
// command against a frame-accurate seekable source filter. The load
// script itself is produced by the external vapoursynth tooling, not
// this package (it is out of the core's scope per the purpose notes);
// here we only shape the per-chunk vspipe invocation.
func buildVapoursynth(p Params, sourceFilter string) []chunk.Chunk {
	loadScript := filepath.Join(p.TempDir, "split", "loadscript.vpy")
	pairs := boundaries(p.SplitPoints, p.TotalFrames)
	chunks := make([]chunk.Chunk, 0, len(pairs))
	for i, b := range pairs {
		frames := b[1] - b[0]
		cmd := []string{"vspipe", loadScript, "-y", "-", "-s", fmt.Sprint(b[0]), "-e", fmt.Sprint(b[1]-1)}
		chunks = append(chunks, chunk.New(i, frames, int64(frames), cmd, p.OutputExtension, p.TempDir))
	}
	return chunks
}

// Save persists chunks to <temp>/chunks.json in the order given, so a
// size-sorted queue is read back in the same scheduling order.
func Save(tempDir string, chunks []chunk.Chunk) error {
	records := make([]chunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = chunkRecord{
			Index:           c.Index,
			InputCommand:    c.InputCommand,
			OutputExtension: c.OutputExtension,
			Size:            c.Size,
			Frames:          c.Frames,
			AssignedQuality: c.AssignedQuality,
		}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(errors.KindJSONParse, "queuebuild: marshal chunks.json", err)
	}
	path := filepath.Join(tempDir, "chunks.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.KindIO, "queuebuild: write chunks.json", err)
	}
	return nil
}

// Load reads <temp>/chunks.json and reconstructs each chunk's derived
// paths from tempDir.
func Load(tempDir string) ([]chunk.Chunk, error) {
	path := filepath.Join(tempDir, "chunks.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindIO, "queuebuild: read chunks.json", err)
	}
	var records []chunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(errors.KindJSONParse, "queuebuild: parse chunks.json", err)
	}

	chunks := make([]chunk.Chunk, len(records))
	for i, r := range records {
		c := chunk.New(r.Index, r.Frames, r.Size, r.InputCommand, r.OutputExtension, tempDir)
		c.AssignedQuality = r.AssignedQuality
		chunks[i] = c
	}
	return chunks, nil
}

// LoadResuming reads the persisted queue and the resume record, then
// drops every chunk already recorded as done with a matching frame
// count, preserving the original ordering so priorities stay meaningful.
func LoadResuming(tempDir string) ([]chunk.Chunk, error) {
	chunks, err := Load(tempDir)
	if err != nil {
		return nil, err
	}

	record, err := resume.Load(tempDir)
	if err != nil {
		return nil, errors.Wrap(errors.KindResumeIO, "queuebuild: read done.json", err)
	}

	remaining := chunks[:0]
	for _, c := range chunks {
		if done, ok := record.Done[c.Name]; ok && c.Done(done) {
			continue
		}
		remaining = append(remaining, c)
	}
	return remaining, nil
}
