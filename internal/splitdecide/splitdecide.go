// Package splitdecide implements the split decider: it produces the
// sorted list of frame indices at which the source is divided into
// chunks, using one of three strategies, then subdivides any oversized
// gap between adjacent split points.
package splitdecide

import (
	"sort"

	"github.com/splitreel/splitreel/internal/config"
	"github.com/splitreel/splitreel/internal/keyframe"
)

// SceneDetector is the external content-based scene detector collaborator
// (component A's scene-change tool). It returns raw, unfiltered candidate
// split points.
type SceneDetector interface {
	DetectScenes(sourcePath string, totalFrames int, threshold float64) ([]int, error)
}

// FirstPassRunner is the external collaborator that runs the encoder in
// first-pass mode over the whole source and writes a stats file at
// statsPath + ".stat", used by the firstpass_keyframes strategy.
type FirstPassRunner interface {
	RunFirstPass(sourcePath, statsPath string) error
}

// Params bundles the split decider's strategy-independent inputs.
type Params struct {
	SourcePath    string
	TotalFrames   int
	MinSceneLen   int
	SceneThreshold float64
	ExtraSplitMax int
	StatsPath     string // used only by firstpass_keyframes
}

// Decide runs the configured strategy and applies extra-split
// subdivision, returning the final sorted, duplicate-free split points.
func Decide(strategy config.SplitStrategy, p Params, detector SceneDetector, firstPass FirstPassRunner) ([]int, error) {
	var points []int
	var err error

	switch strategy {
	case config.SplitNone:
		points = nil
	case config.SplitContentScene:
		points, err = contentScene(p, detector)
	case config.SplitFirstpassKeyframe:
		points, err = firstpassKeyframes(p, firstPass)
	default:
		return nil, errUnknownStrategy(strategy)
	}
	if err != nil {
		return nil, err
	}

	if p.ExtraSplitMax > 0 {
		points = applyExtraSplits(points, p.TotalFrames, p.ExtraSplitMax)
	}
	return points, nil
}

func errUnknownStrategy(s config.SplitStrategy) error {
	return &unknownStrategyError{s}
}

type unknownStrategyError struct{ strategy config.SplitStrategy }

func (e *unknownStrategyError) Error() string {
	return "splitdecide: unknown split strategy " + string(e.strategy)
}

// contentScene delegates to the external scene detector, then enforces
// MinSceneLen by merging any scene shorter than the minimum into its
// predecessor, discarding its start point. Frame 0 is removed if present.
func contentScene(p Params, detector SceneDetector) ([]int, error) {
	raw, err := detector.DetectScenes(p.SourcePath, p.TotalFrames, p.SceneThreshold)
	if err != nil {
		return nil, err
	}
	return mergeMinSceneLen(raw, p.TotalFrames, p.MinSceneLen), nil
}

// mergeMinSceneLen walks split points low to high, merging any scene
// shorter than minSceneLen into its predecessor, then drops frame 0 and
// the total-frame sentinel if present. It is a pure function, independent
// of the detector collaborator, so it is directly testable.
func mergeMinSceneLen(raw []int, totalFrames, minSceneLen int) []int {
	sorted := dedupeSorted(raw)

	bounds := make([]int, 0, len(sorted)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, sorted...)
	bounds = append(bounds, totalFrames)

	merged := []int{bounds[0]}
	for i := 1; i < len(bounds); i++ {
		if bounds[i]-merged[len(merged)-1] < minSceneLen && i != len(bounds)-1 {
			continue // discard this start point; scene merges into predecessor
		}
		merged = append(merged, bounds[i])
	}

	var out []int
	for _, b := range merged {
		if b != 0 && b != totalFrames {
			out = append(out, b)
		}
	}
	return out
}

// firstpassKeyframes runs the encoder's first pass over the whole source,
// then scans the resulting stats file for aom-style candidate keyframes.
func firstpassKeyframes(p Params, firstPass FirstPassRunner) ([]int, error) {
	if err := firstPass.RunFirstPass(p.SourcePath, p.StatsPath); err != nil {
		return nil, err
	}
	return keyframe.FindKeyframesInFile(p.StatsPath+".stat", p.MinSceneLen)
}

// applyExtraSplits subdivides any gap between consecutive split points
// (including the implicit boundaries 0 and totalFrames) exceeding max:
// new interior boundaries are placed at fixed strides of max frames from
// the gap's low end, leaving a final partial segment no longer than max.
func applyExtraSplits(points []int, totalFrames, max int) []int {
	bounds := make([]int, 0, len(points)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, points...)
	bounds = append(bounds, totalFrames)

	out := append([]int(nil), points...)
	for i := 1; i < len(bounds); i++ {
		lo, hi := bounds[i-1], bounds[i]
		for b := lo + max; b < hi; b += max {
			if b != 0 && b != totalFrames {
				out = append(out, b)
			}
		}
	}
	return dedupeSorted(out)
}

func dedupeSorted(in []int) []int {
	cp := append([]int(nil), in...)
	sort.Ints(cp)
	out := cp[:0]
	for i, v := range cp {
		if i == 0 || v != cp[i-1] {
			out = append(out, v)
		}
	}
	return out
}
