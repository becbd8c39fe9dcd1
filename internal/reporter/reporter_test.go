package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type countingReporter struct {
	NullReporter
	chunkStarted  int
	chunkProgress int
}

func (c *countingReporter) ChunkStarted(ChunkStarted)   { c.chunkStarted++ }
func (c *countingReporter) ChunkProgress(ChunkProgress) { c.chunkProgress++ }

func TestCompositeReporterFansOut(t *testing.T) {
	a := &countingReporter{}
	b := &countingReporter{}
	composite := NewCompositeReporter(a, b)

	composite.ChunkStarted(ChunkStarted{ChunkName: "00000", Frames: 100})
	composite.ChunkProgress(ChunkProgress{ChunkName: "00000", CurrentFrame: 10})

	for _, r := range []*countingReporter{a, b} {
		if r.chunkStarted != 1 || r.chunkProgress != 1 {
			t.Fatalf("expected both reporters to receive events, got %+v", r)
		}
	}
}

func TestAdvancerForwardsEachAdvance(t *testing.T) {
	rep := &countingReporter{}
	adv := NewAdvancer(rep)
	adv.Announce(ChunkStarted{ChunkName: "00001", Frames: 200})

	adv.Advance("00001", 50)
	adv.Advance("00001", 50)

	if rep.chunkProgress != 2 {
		t.Fatalf("expected 2 progress events, got %d", rep.chunkProgress)
	}
}

func TestJSONReporterEmitsNDJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	r.QueueBuilt(QueueSummary{Method: "segment", ChunkCount: 12})
	r.ChunkFailed(ChunkFailed{ChunkName: "00003", Attempts: 4, Reason: "encoder exited 1"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 NDJSON lines, got %d: %q", len(lines), buf.String())
	}

	var first map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 not valid JSON: %v", err)
	}
	if first["type"] != "queue_built" || first["chunk_count"] != float64(12) {
		t.Fatalf("unexpected first event: %+v", first)
	}

	var second map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2 not valid JSON: %v", err)
	}
	if second["type"] != "chunk_failed" || second["attempts"] != float64(4) {
		t.Fatalf("unexpected second event: %+v", second)
	}
}

func TestNullReporterSatisfiesInterface(t *testing.T) {
	var _ Reporter = NullReporter{}
}
