package chunk

import "testing"

func TestNameIsZeroPadded(t *testing.T) {
	cases := map[int]string{0: "00000", 7: "00007", 123: "00123", 99999: "99999"}
	for idx, want := range cases {
		if got := Name(idx); got != want {
			t.Errorf("Name(%d) = %q, want %q", idx, got, want)
		}
	}
}

func TestNewDerivesPaths(t *testing.T) {
	c := New(42, 48, 48, []string{"ffmpeg", "-i", "src.mkv"}, "ivf", "/tmp/run")
	if c.Name != "00042" {
		t.Fatalf("name = %q", c.Name)
	}
	if c.OutputPath != "/tmp/run/encode/00042.ivf" {
		t.Fatalf("output path = %q", c.OutputPath)
	}
	if c.FpfPath != "/tmp/run/split/00042_fpf" {
		t.Fatalf("fpf path = %q", c.FpfPath)
	}
}

func TestDone(t *testing.T) {
	c := Chunk{Frames: 48}
	if !c.Done(48) {
		t.Fatal("expected done at matching frame count")
	}
	if c.Done(47) {
		t.Fatal("expected not done at mismatched frame count")
	}
}
