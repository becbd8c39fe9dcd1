package resume

import (
	"sync"
	"testing"
)

func TestOpenCreatesRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 100)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rec, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec.Frames != 100 || len(rec.Done) != 0 {
		t.Fatalf("unexpected initial record: %+v", rec)
	}
}

func TestMarkDonePersists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 30)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.MarkDone("00000", 10); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	rec, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec.Done["00000"] != 10 {
		t.Fatalf("expected 00000 done with 10 frames, got %+v", rec.Done)
	}
}

func TestMarkDoneSerializesConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 300)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	names := []string{"00000", "00001", "00002", "00003", "00004"}
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(n string, frames int) {
			defer wg.Done()
			if err := s.MarkDone(n, frames); err != nil {
				t.Errorf("mark done %s: %v", n, err)
			}
		}(name, (i+1)*10)
	}
	wg.Wait()

	rec, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rec.Done) != len(names) {
		t.Fatalf("expected %d entries, got %d: %+v", len(names), len(rec.Done), rec.Done)
	}
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	rec, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rec.Done) != 0 {
		t.Fatalf("expected empty done map, got %+v", rec.Done)
	}
}
