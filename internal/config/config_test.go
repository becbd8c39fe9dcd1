package config

import (
	"testing"

	"github.com/splitreel/splitreel/internal/encoder"
)

func TestValidateFillsEncoderDefaults(t *testing.T) {
	c := New("in.mkv", "out.mkv", WithTempDir("/tmp/work"))
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.QualityMin != 0 || c.QualityMax != 63 {
		t.Fatalf("expected svt_av1 default quality range, got [%d,%d]", c.QualityMin, c.QualityMax)
	}
	if len(c.EncoderArgs) == 0 {
		t.Fatal("expected default encoder args to be filled")
	}
}

func TestValidateRejectsUnknownEncoder(t *testing.T) {
	c := New("in.mkv", "out.mkv", WithTempDir("/tmp/work"), WithEncoder("nope"))
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown encoder")
	}
}

func TestValidateCoercesSvtVp9ToOnePass(t *testing.T) {
	c := New("in.mkv", "out.mkv", WithTempDir("/tmp/work"), WithEncoder(encoder.TagSVTVP9), WithPasses(2))
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Passes != 1 {
		t.Fatalf("expected coercion to 1 pass, got %d", c.Passes)
	}
}

func TestValidateRejectsOutOfRangeQuality(t *testing.T) {
	c := New("in.mkv", "out.mkv", WithTempDir("/tmp/work"), WithQualityRange(-5, 70))
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for out-of-range quality")
	}
}

func TestValidateRequiresTempDir(t *testing.T) {
	c := New("in.mkv", "out.mkv")
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing temp dir")
	}
}

func TestValidateRejectsLowTQProbes(t *testing.T) {
	c := New("in.mkv", "out.mkv", WithTempDir("/tmp/work"), WithTarget(90))
	c.TQProbes = 2
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for too few target-quality probes")
	}
}
