package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/splitreel/splitreel/internal/util"
)

// JSONReporter outputs NDJSON events, one per line, suitable for a
// supervising process to consume.
type JSONReporter struct {
	writer io.Writer
	mu     sync.Mutex
}

var _ Reporter = (*JSONReporter)(nil)

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{writer: os.Stdout}
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{writer: w}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) Source(summary SourceSummary) {
	r.write(map[string]interface{}{
		"type":          "source",
		"input_file":    summary.InputFile,
		"output_file":   summary.OutputFile,
		"duration":      summary.Duration,
		"resolution":    summary.Resolution,
		"dynamic_range": summary.DynamicRange,
		"frame_count":   summary.FrameCount,
		"audio_tracks":  summary.AudioTracks,
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) StageProgress(update StageProgress) {
	r.write(map[string]interface{}{
		"type":      "stage_progress",
		"stage":     update.Stage,
		"message":   update.Message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) SplitDecided(summary SplitSummary) {
	r.write(map[string]interface{}{
		"type":          "split_decided",
		"strategy":      summary.Strategy,
		"scene_count":   summary.SceneCount,
		"after_merge":   summary.AfterMerge,
		"after_extra":   summary.AfterExtra,
		"min_scene_len": summary.MinSceneLen,
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) QueueBuilt(summary QueueSummary) {
	r.write(map[string]interface{}{
		"type":        "queue_built",
		"method":      summary.Method,
		"chunk_count": summary.ChunkCount,
		"resumed":     summary.Resumed,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) Probe(result ProbeResult) {
	r.write(map[string]interface{}{
		"type":       "probe",
		"chunk_name": result.ChunkName,
		"quality":    result.Quality,
		"score":      result.Score,
		"target":     result.Target,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) ChunkStarted(started ChunkStarted) {
	r.write(map[string]interface{}{
		"type":       "chunk_started",
		"chunk_name": started.ChunkName,
		"frames":     started.Frames,
		"passes":     started.Passes,
		"quality":    started.Quality,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) ChunkProgress(progress ChunkProgress) {
	r.write(map[string]interface{}{
		"type":          "chunk_progress",
		"chunk_name":    progress.ChunkName,
		"pass":          progress.Pass,
		"total_passes":  progress.TotalPasses,
		"current_frame": progress.CurrentFrame,
		"total_frames":  progress.TotalFrames,
		"percent":       progress.Percent,
		"fps":           progress.FPS,
		"eta_seconds":   int64(progress.ETA.Seconds()),
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) ChunkComplete(complete ChunkComplete) {
	r.write(map[string]interface{}{
		"type":             "chunk_complete",
		"chunk_name":       complete.ChunkName,
		"quality":          complete.Quality,
		"frames":           complete.Frames,
		"attempts":         complete.Attempts,
		"elapsed_seconds":  complete.Elapsed.Seconds(),
		"timestamp":        r.timestamp(),
	})
}

func (r *JSONReporter) ChunkFailed(failed ChunkFailed) {
	r.write(map[string]interface{}{
		"type":       "chunk_failed",
		"chunk_name": failed.ChunkName,
		"attempts":   failed.Attempts,
		"reason":     failed.Reason,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) Assembled(summary AssemblySummary) {
	r.write(map[string]interface{}{
		"type":        "assembled",
		"strategy":    summary.Strategy,
		"chunk_count": summary.ChunkCount,
		"has_audio":   summary.HasAudio,
		"output_path": summary.OutputPath,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) Complete(summary EncodingOutcome) {
	reduction := util.CalculateSizeReduction(summary.OriginalSize, summary.EncodedSize)

	r.write(map[string]interface{}{
		"type":                   "complete",
		"input_file":             summary.InputFile,
		"output_file":            summary.OutputFile,
		"original_size":          summary.OriginalSize,
		"encoded_size":           summary.EncodedSize,
		"average_speed":          summary.AverageSpeed,
		"chunks_total":           summary.ChunksTotal,
		"output_path":            summary.OutputPath,
		"duration_seconds":       int64(summary.TotalTime.Seconds()),
		"size_reduction_percent": reduction,
		"timestamp":              r.timestamp(),
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) OperationComplete(message string) {
	r.write(map[string]interface{}{
		"type":      "operation_complete",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Verbose(message string) {
	r.write(map[string]interface{}{
		"type":      "verbose",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}
