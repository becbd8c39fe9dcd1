package gateway

import (
	"context"
	"testing"

	"github.com/splitreel/splitreel/internal/errors"
)

func TestRunRejectsEmptyCommands(t *testing.T) {
	err := Run(context.Background(), nil, []string{"cat"}, nil)
	if err == nil {
		t.Fatal("expected error for empty decoder command")
	}
}

func TestRunStreamsLinesAndSucceeds(t *testing.T) {
	var lines []string
	err := Run(context.Background(),
		[]string{"printf", "a\\nb\\nc\\n"},
		[]string{"cat"},
		func(line string) { lines = append(lines, line) },
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(lines) != 3 || lines[0] != "a" || lines[2] != "c" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestRunSurfacesEncoderFailureWithTail(t *testing.T) {
	err := Run(context.Background(),
		[]string{"printf", "x\\n"},
		[]string{"sh", "-c", "cat >/dev/null; echo boom; exit 3"},
		nil,
	)
	if err == nil {
		t.Fatal("expected error for non-zero encoder exit")
	}
	if !errors.IsKind(err, errors.KindChunkEncode) {
		t.Fatalf("expected KindChunkEncode, got %v", err)
	}
}

func TestRingBufferKeepsLastN(t *testing.T) {
	rb := newRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.add(string(rune('a' + i)))
	}
	if got := rb.lines(); got != "c\nd\ne" {
		t.Fatalf("ring buffer = %q, want %q", got, "c\nd\ne")
	}
}
