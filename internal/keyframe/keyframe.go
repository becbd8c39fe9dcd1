// Package keyframe implements the first-pass-statistics keyframe finder:
// a port of aom's internal candidate-keyframe test run against an
// encoder-produced stats file, used by the firstpass_keyframes split
// strategy.
package keyframe

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/splitreel/splitreel/internal/errors"
)

// RecordSize is the byte size of one first-pass statistics record: 26
// little-endian IEEE-754 doubles.
const RecordSize = 208

const fieldCount = 26

// Record is one frame's worth of first-pass statistics. Field names and
// order are copied verbatim from the upstream encoder's firstpass.h.
type Record struct {
	Frame                 float64
	Weight                float64
	IntraError            float64
	FrameAvgWaveletEnergy float64
	CodedError            float64
	SrCodedError          float64
	TrCodedError          float64
	PcntInter             float64
	PcntMotion            float64
	PcntSecondRef         float64
	PcntThirdRef          float64
	PcntNeutral           float64
	IntraSkipPct          float64
	InactiveZoneRows      float64
	InactiveZoneCols      float64
	MVr                   float64
	MvrAbs                float64
	MVc                   float64
	MvcAbs                float64
	MVrv                  float64
	MVcv                  float64
	MvInOutCount          float64
	NewMvCount            float64
	Duration              float64
	Count                 float64
	RawErrorStdev         float64
}

func (r Record) fields() [fieldCount]float64 {
	return [fieldCount]float64{
		r.Frame, r.Weight, r.IntraError, r.FrameAvgWaveletEnergy, r.CodedError,
		r.SrCodedError, r.TrCodedError, r.PcntInter, r.PcntMotion, r.PcntSecondRef,
		r.PcntThirdRef, r.PcntNeutral, r.IntraSkipPct, r.InactiveZoneRows, r.InactiveZoneCols,
		r.MVr, r.MvrAbs, r.MVc, r.MvcAbs, r.MVrv, r.MVcv, r.MvInOutCount, r.NewMvCount,
		r.Duration, r.Count, r.RawErrorStdev,
	}
}

func recordFromFields(f [fieldCount]float64) Record {
	return Record{
		Frame: f[0], Weight: f[1], IntraError: f[2], FrameAvgWaveletEnergy: f[3], CodedError: f[4],
		SrCodedError: f[5], TrCodedError: f[6], PcntInter: f[7], PcntMotion: f[8], PcntSecondRef: f[9],
		PcntThirdRef: f[10], PcntNeutral: f[11], IntraSkipPct: f[12], InactiveZoneRows: f[13], InactiveZoneCols: f[14],
		MVr: f[15], MvrAbs: f[16], MVc: f[17], MvcAbs: f[18], MVrv: f[19], MVcv: f[20],
		MvInOutCount: f[21], NewMvCount: f[22], Duration: f[23], Count: f[24], RawErrorStdev: f[25],
	}
}

// Marshal writes a Record as its 208-byte little-endian encoding.
func Marshal(r Record) []byte {
	buf := make([]byte, RecordSize)
	fields := r.fields()
	for i, v := range fields {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// Unmarshal reads a 208-byte buffer into a Record.
func Unmarshal(buf []byte) (Record, error) {
	if len(buf) != RecordSize {
		return Record{}, fmt.Errorf("keyframe: record must be %d bytes, got %d", RecordSize, len(buf))
	}
	var f [fieldCount]float64
	for i := range f {
		f[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return recordFromFields(f), nil
}

// ReadStatsFile reads a first-pass statistics file and returns its
// per-frame records, excluding the trailing end-of-sequence record.
func ReadStatsFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindIO, "keyframe: read stats file", err)
	}
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("keyframe: stats file %s size %d is not a multiple of %d", path, len(data), RecordSize)
	}

	numFrames := len(data)/RecordSize - 1 // last record is EOS
	if numFrames < 0 {
		return nil, fmt.Errorf("keyframe: stats file %s is empty", path)
	}

	records := make([]Record, 0, numFrames)
	for i := 0; i < numFrames; i++ {
		rec, err := Unmarshal(data[i*RecordSize : (i+1)*RecordSize])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Tunable constants for the candidate test, reproduced verbatim from the
// upstream encoder's pass2_strategy.c; any deviation from these exact
// values must be documented.
const (
	boostFactor           = 12.5
	minIntraLevel         = 0.25
	intraVsInterThresh    = 2.0
	veryLowInterThresh    = 0.05
	kfIIErrThreshold      = 2.5
	errChangeThreshold    = 0.4
	iiImprovementThresh   = 3.5
	kfIIMax               = 128.0
	adaptUpto             = 32
	minSecondRefUsageBase = 0.085
	secondRefUsageDelta   = 0.035
	confirmationWindow    = 16
	boostScoreThreshold   = 30.0
)

// doubleDivideCheck biases x away from zero by 1e-6, sign-preserving, so
// that it is safe to use as a denominator.
func doubleDivideCheck(x float64) float64 {
	if x < 0 {
		return x - 0.000001
	}
	return x + 0.000001
}

func secondRefUsageThresh(frameCountSoFar int) float64 {
	if frameCountSoFar >= adaptUpto {
		return minSecondRefUsageBase + secondRefUsageDelta
	}
	return minSecondRefUsageBase + (float64(frameCountSoFar)/(adaptUpto-1))*secondRefUsageDelta
}

// testCandidateKF reports whether records[i] is a keyframe candidate,
// given the previous, current, and next-15 records are all present.
func testCandidateKF(records []Record, i, frameCountSoFar int) bool {
	p := records[i-1]
	c := records[i]
	f := records[i+1]

	pcntIntra := 1.0 - c.PcntInter
	modifiedPcntInter := c.PcntInter - c.PcntNeutral
	thresh := secondRefUsageThresh(frameCountSoFar)

	gateA := c.PcntInter < veryLowInterThresh
	gateB := pcntIntra > minIntraLevel &&
		pcntIntra > intraVsInterThresh*modifiedPcntInter &&
		(c.IntraError/doubleDivideCheck(c.CodedError)) < kfIIErrThreshold &&
		(math.Abs(p.CodedError-c.CodedError)/doubleDivideCheck(c.CodedError) > errChangeThreshold ||
			math.Abs(p.IntraError-c.IntraError)/doubleDivideCheck(c.IntraError) > errChangeThreshold ||
			(f.IntraError/doubleDivideCheck(f.CodedError)) > iiImprovementThresh)

	if frameCountSoFar <= 2 {
		return false
	}
	if c.PcntSecondRef >= thresh || f.PcntSecondRef >= thresh {
		return false
	}
	if !gateA && !gateB {
		return false
	}

	boostScore := 0.0
	oldBoostScore := 0.0
	decayAccumulator := 1.0
	advanced := 0
	for j := 0; j < confirmationWindow; j++ {
		idx := i + 1 + j
		if idx >= len(records) {
			break
		}
		lnf := records[idx]

		nextRatio := boostFactor * lnf.IntraError / doubleDivideCheck(lnf.CodedError)
		if nextRatio > kfIIMax {
			nextRatio = kfIIMax
		}

		if lnf.PcntInter > 0.85 {
			decayAccumulator *= lnf.PcntInter
		} else {
			decayAccumulator *= (0.85 + lnf.PcntInter) / 2.0
		}

		boostScore += decayAccumulator * nextRatio
		advanced = j

		if lnf.PcntInter < 0.05 ||
			nextRatio < 1.5 ||
			((lnf.PcntInter-lnf.PcntNeutral) < 0.20 && nextRatio < 3.0) ||
			(boostScore-oldBoostScore) < 3.0 ||
			lnf.IntraError < 200 {
			break
		}
		oldBoostScore = boostScore
	}

	return boostScore > boostScoreThreshold && advanced > 3
}

// FindKeyframes scans stats-file records for candidate keyframes, skipping
// frame 0 and the last 16 frames, enforcing a minimum interval of
// keyFreqMin frames between accepted candidates.
func FindKeyframes(records []Record, keyFreqMin int) []int {
	var keyframes []int
	frameCountSoFar := 1

	last := len(records) - 16
	for i := 1; i < last; i++ {
		isKeyframe := false
		if frameCountSoFar >= keyFreqMin {
			isKeyframe = testCandidateKF(records, i, frameCountSoFar)
		}
		if isKeyframe {
			keyframes = append(keyframes, i)
			frameCountSoFar = 0
		}
		frameCountSoFar++
	}
	return keyframes
}

// FindKeyframesInFile reads path as a first-pass statistics file and
// returns its candidate keyframe indices.
func FindKeyframesInFile(path string, keyFreqMin int) ([]int, error) {
	records, err := ReadStatsFile(path)
	if err != nil {
		return nil, err
	}
	return FindKeyframes(records, keyFreqMin), nil
}
