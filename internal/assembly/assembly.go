// Package assembly implements the final assembly step (component I):
// concatenating encoded chunks with the preserved audio track into the
// final output container, by one of two strategies.
package assembly

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/splitreel/splitreel/internal/chunk"
	"github.com/splitreel/splitreel/internal/config"
	"github.com/splitreel/splitreel/internal/errors"
)

// AudioExtractor is the external collaborator that pulls the source's
// audio stream(s) into a standalone container, done once at encode
// start.
type AudioExtractor interface {
	ExtractAudio(sourcePath, audioPath string) (hasAudio bool, err error)
}

// Assemble merges chunks in index order, whatever order they are passed
// in, into outputPath using the configured strategy,
// including the extracted audio track when present.
func Assemble(strategy config.AssemblyStrategy, chunks []chunk.Chunk, sourcePath, tempDir, outputPath string, extractor AudioExtractor) error {
	ordered := append([]chunk.Chunk(nil), chunks...)
	sortByIndex(ordered)

	audioPath := filepath.Join(tempDir, "audio.mkv")
	hasAudio, err := extractor.ExtractAudio(sourcePath, audioPath)
	if err != nil {
		return errors.Wrap(errors.KindAssembly, "assembly: extract audio", err)
	}
	if !hasAudio {
		audioPath = ""
	}

	switch strategy {
	case config.AssemblyConcat:
		return concatAssemble(ordered, tempDir, audioPath, outputPath)
	case config.AssemblyTree:
		return treeAssemble(ordered, tempDir, audioPath, outputPath)
	default:
		return fmt.Errorf("assembly: unknown strategy %q", strategy)
	}
}

func sortByIndex(chunks []chunk.Chunk) {
	for i := 1; i < len(chunks); i++ {
		for j := i; j > 0 && chunks[j-1].Index > chunks[j].Index; j-- {
			chunks[j-1], chunks[j] = chunks[j], chunks[j-1]
		}
	}
}

// concatAssemble writes a text manifest of absolute chunk output paths
// and invokes the media toolkit's concat demuxer together with the
// audio track.
func concatAssemble(chunks []chunk.Chunk, tempDir, audioPath, outputPath string) error {
	manifestPath := filepath.Join(tempDir, "concat")
	f, err := os.Create(manifestPath)
	if err != nil {
		return errors.Wrap(errors.KindAssembly, "assembly: create concat manifest", err)
	}
	for _, c := range chunks {
		abs, err := filepath.Abs(c.OutputPath)
		if err != nil {
			_ = f.Close()
			return errors.Wrap(errors.KindAssembly, "assembly: resolve chunk path", err)
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", abs); err != nil {
			_ = f.Close()
			return errors.Wrap(errors.KindAssembly, "assembly: write concat manifest", err)
		}
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.KindAssembly, "assembly: close concat manifest", err)
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-f", "concat", "-safe", "0", "-i", manifestPath}
	if audioPath != "" {
		args = append(args, "-i", audioPath, "-map", "0:v", "-map", "1:a")
	}
	args = append(args, "-c", "copy", outputPath)

	if err := exec.Command("ffmpeg", args...).Run(); err != nil {
		return errors.Wrap(errors.KindAssembly, "assembly: concat demux", err)
	}
	return nil
}

// treeAssemble merges chunks in tree fashion, writing temporary
// intermediates, until a single output remains. This respects per-OS
// limits on command-line length and open files that a single
// flat invocation over every chunk could exceed.
func treeAssemble(chunks []chunk.Chunk, tempDir, audioPath, outputPath string) error {
	const fanIn = 16

	paths := make([]string, len(chunks))
	for i, c := range chunks {
		abs, err := filepath.Abs(c.OutputPath)
		if err != nil {
			return errors.Wrap(errors.KindAssembly, "assembly: resolve chunk path", err)
		}
		paths[i] = abs
	}

	level := 0
	for len(paths) > 1 {
		var next []string
		for i := 0; i < len(paths); i += fanIn {
			end := i + fanIn
			if end > len(paths) {
				end = len(paths)
			}
			group := paths[i:end]
			if len(group) == 1 {
				next = append(next, group[0])
				continue
			}
			merged := filepath.Join(tempDir, fmt.Sprintf("merge_%d_%d.mkv", level, i/fanIn))
			if err := mergeGroup(group, merged); err != nil {
				return errors.Wrap(errors.KindAssembly, "assembly: tree merge", err)
			}
			next = append(next, merged)
		}
		paths = next
		level++
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", paths[0]}
	if audioPath != "" {
		args = append(args, "-i", audioPath, "-map", "0:v", "-map", "1:a")
	}
	args = append(args, "-c", "copy", outputPath)
	if err := exec.Command("ffmpeg", args...).Run(); err != nil {
		return errors.Wrap(errors.KindAssembly, "assembly: final mux", err)
	}
	return nil
}

func mergeGroup(inputs []string, output string) error {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args, "-filter_complex", fmt.Sprintf("concat=n=%d:v=1:a=0[outv]", len(inputs)), "-map", "[outv]", output)
	return exec.Command("ffmpeg", args...).Run()
}
