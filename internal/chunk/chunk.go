// Package chunk defines the value type representing one encodable segment
// of the source video: its name, frame count, ordering weight, the command
// that produces its raw frames, and the paths its encoder output and
// first-pass statistics live at.
package chunk

import (
	"fmt"
	"path/filepath"
)

// NameWidth is the fixed width of a chunk's zero-padded decimal name.
const NameWidth = 5

// Chunk is a contiguous span of the source video, encoded independently.
// Its fields are set once by the chunk queue builder except
// AssignedQuality, which the scheduler sets after a target-quality probe.
type Chunk struct {
	// Index is dense and unique over the queue.
	Index int
	// Name is Index rendered as a NameWidth zero-padded decimal string;
	// every derived path is built from it.
	Name string
	// Frames is this chunk's frame count; strictly positive.
	Frames int
	// Size is an ordering weight: byte size of a pre-extracted segment
	// file, or Frames when no such file exists.
	Size int64
	// InputCommand writes the chunk's raw frames to stdout in a
	// pipe-friendly frame format when run.
	InputCommand []string
	// OutputExtension is the bit-exact extension the encoder produces,
	// e.g. "ivf", "mkv", "h266".
	OutputExtension string
	// OutputPath is <temp>/encode/<name>.<output_extension>.
	OutputPath string
	// FpfPath is <temp>/split/<name>_fpf, the base path for first-pass
	// statistics; the encoder appends its own extension.
	FpfPath string
	// AssignedQuality is set only when target-quality search ran for
	// this chunk.
	AssignedQuality *int
}

// Name renders index as the fixed-width zero-padded decimal name used in
// every derived path.
func Name(index int) string {
	return fmt.Sprintf("%0*d", NameWidth, index)
}

// New builds a Chunk with its derived paths filled in from tempDir, name,
// and outputExtension.
func New(index int, frames int, size int64, inputCommand []string, outputExtension, tempDir string) Chunk {
	name := Name(index)
	return Chunk{
		Index:           index,
		Name:            name,
		Frames:          frames,
		Size:            size,
		InputCommand:    inputCommand,
		OutputExtension: outputExtension,
		OutputPath:      filepath.Join(tempDir, "encode", name+"."+outputExtension),
		FpfPath:         filepath.Join(tempDir, "split", name+"_fpf"),
	}
}

// Done reports whether encodedFrames (as recorded in the resume store)
// means this chunk is complete.
func (c Chunk) Done(encodedFrames int) bool {
	return encodedFrames == c.Frames
}
