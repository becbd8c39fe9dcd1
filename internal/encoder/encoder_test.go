package encoder

import "testing"

func TestRewriteQualityPreservesShape(t *testing.T) {
	for _, tag := range Tags() {
		spec := Table[tag]
		c := ChunkInput{InputCommand: []string{"ffmpeg", "-i", "src.mkv", "-f", "yuv4mpegpipe", "-"}, Frames: 48, FpfPath: "/tmp/split/00000_fpf"}
		p, err := Compose(tag, spec.DefaultArguments, c, 1, spec.DefaultPasses, "/tmp/encode/00000."+spec.OutputExtension)
		if err != nil {
			t.Fatalf("%s: compose: %v", tag, err)
		}
		q := spec.DefaultQualityMin
		rewritten, err := RewriteQuality(tag, p.EncoderCmd, q)
		if err != nil {
			t.Fatalf("%s: rewrite: %v", tag, err)
		}
		if len(rewritten) != len(p.EncoderCmd) {
			t.Fatalf("%s: rewrite changed length: %d vs %d", tag, len(rewritten), len(p.EncoderCmd))
		}
		diff := 0
		for i := range rewritten {
			if rewritten[i] != p.EncoderCmd[i] {
				diff++
			}
		}
		if diff != 1 {
			t.Fatalf("%s: rewrite changed %d positions, want 1", tag, diff)
		}
	}
}

func TestSvtVp9CoercesToOnePass(t *testing.T) {
	spec := Table[TagSVTVP9]
	c := ChunkInput{InputCommand: []string{"ffmpeg", "-i", "src.mkv", "-f", "yuv4mpegpipe", "-"}, Frames: 48}
	p, err := Compose(TagSVTVP9, spec.DefaultArguments, c, 1, 2, "/tmp/encode/00000.ivf")
	if err != nil {
		t.Fatal(err)
	}
	if p.DiscardOutput {
		t.Fatal("svt_vp9 single pass should not discard output")
	}
	for _, tok := range p.DecoderCmd {
		if tok == "rawvideo" {
			return
		}
	}
	t.Fatal("svt_vp9 decoder command should request rawvideo framing")
}

func TestMatchProgressLine(t *testing.T) {
	frames, ok, fatal := MatchProgressLine(TagSVTAV1, "Encoding frame    42")
	if !ok || fatal || frames != 42 {
		t.Fatalf("got frames=%d ok=%v fatal=%v", frames, ok, fatal)
	}
}

func TestQualityFlagNotFound(t *testing.T) {
	_, err := RewriteQuality(TagAOM, []string{"aomenc", "-o", "out"}, 30)
	if err == nil {
		t.Fatal("expected quality-flag-not-found error")
	}
}
