package ffprobe

import "testing"

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in      string
		wantNum uint32
		wantDen uint32
	}{
		{"24000/1001", 24000, 1001},
		{"25/1", 25, 1},
		{"", 25, 1},
		{"garbage", 25, 1},
		{"30/0", 25, 1},
	}
	for _, tt := range tests {
		num, den := parseFrameRate(tt.in)
		if num != tt.wantNum || den != tt.wantDen {
			t.Errorf("parseFrameRate(%q) = %d/%d, want %d/%d", tt.in, num, den, tt.wantNum, tt.wantDen)
		}
	}
}

func TestTrimNewline(t *testing.T) {
	tests := map[string]string{
		"120\n":   "120",
		"120\r\n": "120",
		"120":     "120",
		"":        "",
	}
	for in, want := range tests {
		if got := trimNewline(in); got != want {
			t.Errorf("trimNewline(%q) = %q, want %q", in, got, want)
		}
	}
}
