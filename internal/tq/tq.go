// Package tq implements the target-quality search (component F): a
// per-chunk feedback loop that probes an encoder at several quality
// settings, measures a perceptual score at each, and picks the integer
// quality value whose score is closest to the user's target.
package tq

import (
	"fmt"
	"math"
	"sort"

	"github.com/splitreel/splitreel/internal/chunk"
)

// tMax is the ceiling applied to the T(v) transform as v approaches 100,
// where the natural log would otherwise diverge.
const tMax = 9.2103403719

// Prober runs a throwaway encode of chunk at quality q and returns the
// perceptual-quality collaborator's score for it. This is the external
// collaborator boundary: probing itself (encode + measure) is not part
// of the core search.
type Prober interface {
	Probe(c chunk.Chunk, q int, probingRate int) (score float64, err error)
}

// probePoint is one (score, quality) observation made during the search.
type probePoint struct {
	q     int
	score float64
}

// Search runs the full target-quality algorithm (§4.5) for one chunk and
// returns the chosen quality. probes must be >= 3.
func Search(c chunk.Chunk, target float64, minQ, maxQ, probes, probingRate int, prober Prober) (int, error) {
	if probes < 3 {
		return 0, fmt.Errorf("tq: probes must be >= 3, got %d", probes)
	}
	if minQ > maxQ {
		return 0, fmt.Errorf("tq: invalid quality range [%d,%d]", minQ, maxQ)
	}

	seen := map[int]bool{}
	var points []probePoint

	probeAt := func(q int) (float64, error) {
		score, err := prober.Probe(c, q, probingRate)
		if err != nil {
			return 0, err
		}
		seen[q] = true
		points = append(points, probePoint{q: q, score: score})
		return score, nil
	}

	// 1. Middle probe.
	qMid := (minQ + maxQ) / 2
	scoreMid, err := probeAt(qMid)
	if err != nil {
		return 0, err
	}

	// 2. Edge probe.
	nextQ := maxQ
	if scoreMid < target {
		nextQ = minQ
	}
	scoreNext, err := probeAt(nextQ)
	if err != nil {
		return 0, err
	}

	// 3. Early-exit edges.
	if nextQ == minQ && scoreNext < target {
		return minQ, nil
	}
	if nextQ == maxQ && scoreNext > target {
		return maxQ, nil
	}

	// Establish the bracket: (qLo, vLo) with score < target, (qHi, vHi)
	// with score >= target.
	var qLo, qHi int
	var vLo, vHi float64
	if scoreMid < target {
		qLo, vLo = qMid, scoreMid
		qHi, vHi = nextQ, scoreNext
	} else {
		qLo, vLo = nextQ, scoreNext
		qHi, vHi = qMid, scoreMid
	}
	// minQ/maxQ convention: a smaller quality parameter means a larger
	// file and (for this family of encoders) a higher perceptual score,
	// so qLo (lower score) corresponds to the higher quality-parameter
	// value and qHi to the lower one. Track by score, not by raw q
	// ordering, since the bracket invariant is on score not quality index.

	// 4. Bounded bisection.
	for i := 0; i < probes-2; i++ {
		qNew := nextBisectionProbe(qLo, qHi, vLo, vHi, target)

		if seen[qNew] {
			break
		}

		scoreNew, err := probeAt(qNew)
		if err != nil {
			return 0, err
		}

		if scoreNew < target {
			qLo, vLo = qNew, scoreNew
		} else {
			qHi, vHi = qNew, scoreNew
		}
	}

	// 5. Final interpolation over all probe points.
	q := interpolatePick(points, target, minQ, maxQ)
	return q, nil
}

// transform applies T(v) = -ln(1 - v/100), clamped at tMax as v
// approaches 100, linearizing the typical sigmoid relation between
// quality parameter and perceived quality near the top of the scale.
func transform(v float64) float64 {
	if v >= 99.99 {
		return tMax
	}
	return -math.Log(1 - v/100)
}

// nextBisectionProbe computes the next quality to probe from the current
// bracket (qLo, vLo) / (qHi, vHi), weighting each endpoint by the
// T-transformed distance from target to the OTHER endpoint's score, per
// §4.5: w_lo = |T(target) - T(v_hi)|, w_hi = |T(target) - T(v_lo)|.
//
// This is algebraically the standard linear interpolation of q against
// T(score) evaluated at T(target) — the point whose own score is further
// from target in transform-space pulls the estimate toward the other
// endpoint less, since it is weighted by the OTHER endpoint's distance.
// For targets close to one endpoint's score, the pick lands close to
// that endpoint's q, same as untransformed secant interpolation would,
// but compressed differently as scores approach 100.
func nextBisectionProbe(qLo, qHi int, vLo, vHi, target float64) int {
	tTarget := transform(target)
	wLo := math.Abs(tTarget - transform(vHi))
	wHi := math.Abs(tTarget - transform(vLo))
	w := wLo + wHi
	if w == 0 {
		return qLo
	}
	return int(math.Round(float64(qLo)*wLo/w + float64(qHi)*wHi/w))
}

// interpolatePick builds a 1-D interpolant over all observed (q, score)
// pairs — quadratic for n>=3 points, linear for n==2 — samples it at
// every integer q in [min(q seen), max(q seen)], and returns the q whose
// interpolated score is closest to target.
func interpolatePick(points []probePoint, target float64, minQ, maxQ int) int {
	sorted := append([]probePoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].q < sorted[j].q })

	// Deduplicate by q, keeping the first observation (probes never
	// revisit a q once seen, so this is defensive only).
	dedup := sorted[:0]
	for i, p := range sorted {
		if i == 0 || p.q != sorted[i-1].q {
			dedup = append(dedup, p)
		}
	}
	sorted = dedup

	if len(sorted) == 0 {
		return (minQ + maxQ) / 2
	}

	lo, hi := sorted[0].q, sorted[len(sorted)-1].q
	bestQ := sorted[0].q
	bestDiff := math.Inf(1)

	for q := lo; q <= hi; q++ {
		s := interpolate(sorted, float64(q))
		diff := math.Abs(s - target)
		if diff < bestDiff {
			bestDiff = diff
			bestQ = q
		}
	}
	return bestQ
}

// interpolate evaluates the sampled points' interpolant at x: quadratic
// Lagrange interpolation using the three points nearest x when n>=3,
// linear interpolation between the two bracketing points when n==2.
func interpolate(points []probePoint, x float64) float64 {
	if len(points) == 1 {
		return points[0].score
	}
	if len(points) == 2 {
		return linear(points[0], points[1], x)
	}

	// Pick the three points nearest x for a local quadratic fit.
	idx := 0
	bestDist := math.Abs(float64(points[0].q) - x)
	for i, p := range points {
		d := math.Abs(float64(p.q) - x)
		if d < bestDist {
			bestDist = d
			idx = i
		}
	}
	lo := idx - 1
	if lo < 0 {
		lo = 0
	}
	if lo+3 > len(points) {
		lo = len(points) - 3
	}
	p0, p1, p2 := points[lo], points[lo+1], points[lo+2]
	return quadratic(p0, p1, p2, x)
}

func linear(a, b probePoint, x float64) float64 {
	if b.q == a.q {
		return a.score
	}
	t := (x - float64(a.q)) / float64(b.q-a.q)
	return a.score + t*(b.score-a.score)
}

// quadratic evaluates the Lagrange quadratic through three points at x.
func quadratic(a, b, c probePoint, x float64) float64 {
	x0, x1, x2 := float64(a.q), float64(b.q), float64(c.q)
	y0, y1, y2 := a.score, b.score, c.score

	l0 := (x - x1) * (x - x2) / ((x0 - x1) * (x0 - x2))
	l1 := (x - x0) * (x - x2) / ((x1 - x0) * (x1 - x2))
	l2 := (x - x0) * (x - x1) / ((x2 - x0) * (x2 - x1))
	return y0*l0 + y1*l1 + y2*l2
}
