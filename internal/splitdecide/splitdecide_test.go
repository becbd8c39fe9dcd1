package splitdecide

import (
	"reflect"
	"testing"
)

type fakeDetector struct {
	points []int
	err    error
}

func (f fakeDetector) DetectScenes(sourcePath string, totalFrames int, threshold float64) ([]int, error) {
	return f.points, f.err
}

type fakeFirstPass struct{ err error }

func (f fakeFirstPass) RunFirstPass(sourcePath, statsPath string) error { return f.err }

func TestMergeMinSceneLenDropsShortScenes(t *testing.T) {
	// scenes at 10, 15, 100 on a 300-frame source with min length 20:
	// 10 is too close to 0, 15 too close to 10 -> both discarded.
	got := mergeMinSceneLen([]int{10, 15, 100}, 300, 20)
	want := []int{100}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestMergeMinSceneLenRemovesSentinels(t *testing.T) {
	got := mergeMinSceneLen([]int{0, 100, 300}, 300, 1)
	want := []int{100}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestApplyExtraSplitsScenario3(t *testing.T) {
	got := applyExtraSplits([]int{120}, 300, 50)
	want := []int{50, 100, 120, 170, 220, 270}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestApplyExtraSplitsNoOpWhenWithinBound(t *testing.T) {
	got := applyExtraSplits([]int{100, 200}, 300, 150)
	want := []int{100, 200}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtraSplitBoundInvariant(t *testing.T) {
	points := applyExtraSplits([]int{37, 241}, 500, 64)
	bounds := append([]int{0}, points...)
	bounds = append(bounds, 500)
	for i := 1; i < len(bounds); i++ {
		if gap := bounds[i] - bounds[i-1]; gap > 64 {
			t.Fatalf("gap %d between %d and %d exceeds max 64", gap, bounds[i-1], bounds[i])
		}
	}
}

func TestDecideNoneReturnsEmpty(t *testing.T) {
	points, err := Decide("none", Params{TotalFrames: 100}, fakeDetector{}, fakeFirstPass{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected no split points, got %v", points)
	}
}

func TestDecideContentScenePropagatesDetectorError(t *testing.T) {
	wantErr := errUnknownStrategy("boom")
	_, err := Decide("content_scene", Params{TotalFrames: 100}, fakeDetector{err: wantErr}, fakeFirstPass{})
	if err == nil {
		t.Fatal("expected propagated detector error")
	}
}

func TestDecideUnknownStrategy(t *testing.T) {
	_, err := Decide("bogus", Params{}, fakeDetector{}, fakeFirstPass{})
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
