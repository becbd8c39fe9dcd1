package keyframe

import "testing"

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	r := Record{
		Frame: 3, Weight: 1, IntraError: 1234.5, CodedError: 567.8,
		PcntInter: 0.91, PcntNeutral: 0.1, PcntSecondRef: 0.01,
	}
	buf := Marshal(r)
	if len(buf) != RecordSize {
		t.Fatalf("marshal length = %d, want %d", len(buf), RecordSize)
	}
	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != r {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestUnmarshalRejectsWrongSize(t *testing.T) {
	if _, err := Unmarshal(make([]byte, 100)); err == nil {
		t.Fatal("expected error for wrong-sized buffer")
	}
}

func TestDoubleDivideCheckPreservesSign(t *testing.T) {
	if got := doubleDivideCheck(-1.0); got >= -1.0 {
		t.Fatalf("expected bias below -1.0, got %v", got)
	}
	if got := doubleDivideCheck(1.0); got <= 1.0 {
		t.Fatalf("expected bias above 1.0, got %v", got)
	}
}

func TestSecondRefUsageThreshClampsAtAdaptUpto(t *testing.T) {
	at32 := secondRefUsageThresh(32)
	at100 := secondRefUsageThresh(100)
	if at32 != at100 {
		t.Fatalf("expected clamp at adaptUpto, got %v vs %v", at32, at100)
	}
	if at32 != minSecondRefUsageBase+secondRefUsageDelta {
		t.Fatalf("unexpected clamp value %v", at32)
	}
}

func TestFindKeyframesFlatSequenceHasNoCandidates(t *testing.T) {
	// A flat, entirely inter-coded sequence of 40 frames should never
	// trigger a candidate (pcnt_inter stays high, intra gates fail).
	records := make([]Record, 40)
	for i := range records {
		records[i] = Record{
			Frame: float64(i), PcntInter: 0.95, PcntNeutral: 0.05,
			IntraError: 10, CodedError: 10,
		}
	}
	kfs := FindKeyframes(records, 0)
	if len(kfs) != 0 {
		t.Fatalf("expected no keyframes for flat inter-coded sequence, got %v", kfs)
	}
}

func TestFindKeyframesSkipsFrame0AndTail(t *testing.T) {
	records := make([]Record, 60)
	for i := range records {
		records[i] = Record{Frame: float64(i), PcntInter: 0.95, PcntNeutral: 0.05, IntraError: 10, CodedError: 10}
	}
	// Force a strong scene-cut signature at frame 10.
	records[10] = Record{Frame: 10, PcntInter: 0.01, PcntNeutral: 0.0, PcntSecondRef: 0, IntraError: 5000, CodedError: 10}
	for j := 0; j < confirmationWindow; j++ {
		records[11+j].IntraError = 5000
		records[11+j].CodedError = 1
		records[11+j].PcntInter = 0.3
	}
	kfs := FindKeyframes(records, 5)
	for _, k := range kfs {
		if k == 0 {
			t.Fatal("frame 0 must never be a candidate")
		}
		if k >= len(records)-16 {
			t.Fatalf("keyframe %d falls within the excluded tail", k)
		}
	}
}
