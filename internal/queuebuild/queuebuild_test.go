package queuebuild

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildSelectCoversWholeSource(t *testing.T) {
	dir := t.TempDir()
	p := Params{SourcePath: "in.mkv", TempDir: dir, TotalFrames: 300, SplitPoints: []int{100, 200}, OutputExtension: "ivf"}
	chunks, err := Build("select", p, nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		total += c.Frames
	}
	if total != 300 {
		t.Fatalf("expected frames to sum to 300, got %d", total)
	}
}

func TestBuildSelectSortedBySizeDescending(t *testing.T) {
	dir := t.TempDir()
	p := Params{SourcePath: "in.mkv", TempDir: dir, TotalFrames: 300, SplitPoints: []int{50, 200}, OutputExtension: "ivf"}
	chunks, err := Build("select", p, nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i-1].Size < chunks[i].Size {
			t.Fatalf("queue not sorted descending by size: %+v", chunks)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := Params{SourcePath: "in.mkv", TempDir: dir, TotalFrames: 100, SplitPoints: nil, OutputExtension: "ivf"}
	chunks, err := Build("select", p, nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "chunks.json")); err != nil {
		t.Fatalf("expected chunks.json to be written: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != len(chunks) {
		t.Fatalf("expected %d chunks reloaded, got %d", len(chunks), len(loaded))
	}
	if loaded[0].Name != chunks[0].Name || loaded[0].Frames != chunks[0].Frames {
		t.Fatalf("reloaded chunk mismatch: %+v vs %+v", loaded[0], chunks[0])
	}
}

func TestLoadResumingDropsCompletedChunks(t *testing.T) {
	dir := t.TempDir()
	p := Params{SourcePath: "in.mkv", TempDir: dir, TotalFrames: 300, SplitPoints: []int{100, 200}, OutputExtension: "ivf"}
	if _, err := Build("select", p, nil, nil); err != nil {
		t.Fatalf("build: %v", err)
	}

	doneJSON := `{"frames":300,"done":{"00000":100}}`
	if err := os.WriteFile(filepath.Join(dir, "done.json"), []byte(doneJSON), 0644); err != nil {
		t.Fatalf("write done.json: %v", err)
	}

	remaining, err := LoadResuming(dir)
	if err != nil {
		t.Fatalf("load resuming: %v", err)
	}
	for _, c := range remaining {
		if c.Name == "00000" {
			t.Fatal("expected completed chunk 00000 to be dropped")
		}
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining chunks, got %d", len(remaining))
	}
}
