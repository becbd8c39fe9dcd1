package assembly

import (
	"testing"

	"github.com/splitreel/splitreel/internal/chunk"
)

func TestSortByIndex(t *testing.T) {
	chunks := []chunk.Chunk{
		{Index: 2, Name: "00002"},
		{Index: 0, Name: "00000"},
		{Index: 1, Name: "00001"},
	}
	sortByIndex(chunks)
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunks not sorted by index: %+v", chunks)
		}
	}
}
