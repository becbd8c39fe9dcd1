// Package ffprobe wraps the external frame-counting and stream-probing
// tool. Per the purpose & scope notes, the concrete probe is an external
// collaborator — this package is a thin, typed facade over its JSON
// output, not a media-format parser.
package ffprobe

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// MediaInfo is the subset of source-file properties the split decider and
// scheduler need: total frame count (for split-point bounds) and
// dimensions (reported in the source summary).
type MediaInfo struct {
	Width       uint32
	Height      uint32
	DurationSecs float64
	FPSNum      uint32
	FPSDen      uint32
	TotalFrames uint64
	HasAudio    bool
}

// AudioStreamInfo describes one audio stream, used by the assembly
// component's audio-extraction step.
type AudioStreamInfo struct {
	Index     int
	Channels  uint32
	CodecName string
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int64  `json:"width"`
	Height    int64  `json:"height"`
	Channels  int    `json:"channels"`
	NbFrames  string `json:"nb_frames"`
	RFrameRate string `json:"r_frame_rate"`
}

func runFFprobe(inputPath string) (*ffprobeOutput, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var result ffprobeOutput
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("ffprobe: parse output: %w", err)
	}
	return &result, nil
}

// GetMediaInfo returns the video's dimensions, duration, frame rate, total
// frame count, and whether it carries an audio stream.
func GetMediaInfo(inputPath string) (*MediaInfo, error) {
	probe, err := runFFprobe(inputPath)
	if err != nil {
		return nil, err
	}

	info := &MediaInfo{}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.DurationSecs = d
		}
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width = uint32(stream.Width)
				info.Height = uint32(stream.Height)
				if stream.NbFrames != "" {
					if frames, err := strconv.ParseUint(stream.NbFrames, 10, 64); err == nil {
						info.TotalFrames = frames
					}
				}
				num, den := parseFrameRate(stream.RFrameRate)
				info.FPSNum, info.FPSDen = num, den
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("ffprobe: no video stream found in %s", inputPath)
	}
	return info, nil
}

func parseFrameRate(s string) (num, den uint32) {
	var n, d int64
	if _, err := fmt.Sscanf(s, "%d/%d", &n, &d); err != nil || d == 0 {
		return 25, 1
	}
	return uint32(n), uint32(d)
}

// GetAudioStreamInfo returns every audio stream in the source, used by the
// assembly component's audio extraction step.
func GetAudioStreamInfo(inputPath string) ([]AudioStreamInfo, error) {
	probe, err := runFFprobe(inputPath)
	if err != nil {
		return nil, err
	}

	var streams []AudioStreamInfo
	idx := 0
	for _, stream := range probe.Streams {
		if stream.CodecType != "audio" || stream.Channels <= 0 {
			continue
		}
		streams = append(streams, AudioStreamInfo{
			Index:     idx,
			Channels:  uint32(stream.Channels),
			CodecName: stream.CodecName,
		})
		idx++
	}
	return streams, nil
}

// FrameCount runs the frame-counting probe against an encoded chunk or
// final output, used by the scheduler's step 3 output verification.
func FrameCount(path string) (int, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-count_frames",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_read_frames",
		"-print_format", "csv=p=0",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: frame count probe on %s: %w", path, err)
	}
	n, err := strconv.Atoi(trimNewline(string(output)))
	if err != nil {
		return 0, fmt.Errorf("ffprobe: parse frame count for %s: %w", path, err)
	}
	return n, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
