package services

import (
	"strings"
	"testing"
)

func TestBuildXfadeFilterTwoClips(t *testing.T) {
	filter, out := BuildXfadeFilter([]float64{5, 7}, 0.5)

	want := "[0:v][1:v]xfade=transition=fade:duration=0.5:offset=4.5[fade1]"
	if filter != want {
		t.Errorf("filter:\ngot  %s\nwant %s", filter, want)
	}
	if out != "[fade1]" {
		t.Errorf("output label: got %s, want [fade1]", out)
	}
}

func TestBuildXfadeFilterChainsOffsets(t *testing.T) {
	filter, out := BuildXfadeFilter([]float64{10, 10, 10}, 1)

	// Second fade offset accumulates: (10-1) + (10-1) = 18.
	wantParts := []string{
		"[0:v][1:v]xfade=transition=fade:duration=1:offset=9[fade1]",
		"[fade1][2:v]xfade=transition=fade:duration=1:offset=18[fade2]",
	}
	for _, part := range wantParts {
		if !strings.Contains(filter, part) {
			t.Errorf("filter missing %q:\n%s", part, filter)
		}
	}
	if strings.Count(filter, ";") != 1 {
		t.Errorf("expected one chain separator, got %d in %s", strings.Count(filter, ";"), filter)
	}
	if out != "[fade2]" {
		t.Errorf("output label: got %s, want [fade2]", out)
	}
}

func TestProbeResultVideoStream(t *testing.T) {
	p := &ProbeResult{Streams: []ProbeStream{
		{CodecType: "audio", CodecName: "aac"},
		{CodecType: "video", CodecName: "h264", Width: 1280, Height: 720},
	}}

	vs := p.VideoStream()
	if vs == nil {
		t.Fatal("video stream not found")
	}
	if vs.CodecName != "h264" || vs.Width != 1280 {
		t.Errorf("wrong stream selected: %+v", vs)
	}

	audioOnly := &ProbeResult{Streams: []ProbeStream{{CodecType: "audio"}}}
	if audioOnly.VideoStream() != nil {
		t.Error("video stream reported for audio-only file")
	}
}

func TestProbeResultDurationSeconds(t *testing.T) {
	p := &ProbeResult{Format: ProbeFormat{Duration: "12.480000"}}
	if d := p.DurationSeconds(); d != 12.48 {
		t.Errorf("got %v, want 12.48", d)
	}

	missing := &ProbeResult{}
	if d := missing.DurationSeconds(); d != 0 {
		t.Errorf("missing duration: got %v, want 0", d)
	}
}
