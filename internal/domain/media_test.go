package domain

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "https://m.youtube.com/watch?v=dQw4w9WgXcQ&pp=ygU=", want: "dQw4w9WgXcQ"},
		{in: "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		got := ExtractVideoID(tt.in)
		if got != tt.want {
			t.Fatalf("ExtractVideoID(%q)=%q, want %q", tt.in, got, tt.want)
		}
		if again := ExtractVideoID(got); again != got {
			t.Fatalf("ExtractVideoID not idempotent for %q: %q -> %q", tt.in, got, again)
		}
	}
}

func TestVideoRefURL(t *testing.T) {
	if got := ParseRef("dQw4w9WgXcQ").URL(); got != WatchBase+"dQw4w9WgXcQ" {
		t.Fatalf("bare id URL = %q", got)
	}
	raw := "https://youtu.be/watch?v=abc&t=3"
	ref := ParseRef(raw)
	if ref.ID != "abc" || ref.URL() != raw {
		t.Fatalf("ParseRef(%q) = %+v, URL=%q", raw, ref, ref.URL())
	}
	if got := RefFromID("abc"); got.Raw != WatchBase+"abc" {
		t.Fatalf("RefFromID raw = %q", got.Raw)
	}
}

func TestDurationToSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3:33", 213},
		{"1:02:03", 3723},
		{"45", 45},
		{"0:00", 0},
		{"None", 0},
		{"", 0},
		{"abc", 0},
		{"1::2", 0},
		{"-1:30", 0},
		{" 2:05 ", 125},
		{"9223372036854775807:00", 0},
		{"9223372036854775807:59:59", 0},
		{"1:0:0:0:0:0:0:0:0:0:0:0", 0},
	}
	for _, tt := range tests {
		got := DurationToSeconds(tt.in)
		if got < 0 {
			t.Errorf("DurationToSeconds(%q) = %d, want >= 0", tt.in, got)
		}
		if got != tt.want {
			t.Errorf("DurationToSeconds(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	for secs, want := range map[int]string{0: "0:00", 213: "3:33", 3723: "1:02:03", -4: "0:00"} {
		if got := FormatDuration(secs); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", secs, got, want)
		}
		if secs > 0 && DurationToSeconds(FormatDuration(secs)) != secs {
			t.Errorf("round trip failed for %d", secs)
		}
	}
}

func TestNewMetadata(t *testing.T) {
	m := NewMetadata("T", "", "https://x/y.jpg?a=1&b=2", RefFromID("id1"))
	if m.DurationDisplay != "0:00" || m.DurationSeconds != 0 {
		t.Fatalf("duration = %q/%d", m.DurationDisplay, m.DurationSeconds)
	}
	if m.ThumbnailURL != "https://x/y.jpg" {
		t.Fatalf("thumbnail = %q", m.ThumbnailURL)
	}
}

func TestIsSupportedReference(t *testing.T) {
	if !IsSupportedReference("https://youtu.be/abc", false) {
		t.Fatal("youtu.be should be supported")
	}
	if !IsSupportedReference("abc", true) {
		t.Fatal("bare id should be supported")
	}
	if IsSupportedReference("https://vimeo.com/1", false) {
		t.Fatal("vimeo should not be supported")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeAudio {
		t.Fatalf("ParseMode(\"\") = %q, %v", m, err)
	}
	if m, err := ParseMode("Song_Video"); err != nil || m != ModeSongVideo || !m.WantsVideo() {
		t.Fatalf("ParseMode(Song_Video) = %q, %v", m, err)
	}
	if _, err := ParseMode("flac"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestPlaylistURL(t *testing.T) {
	if got := PlaylistURL("PLabc"); got != PlaylistBase+"PLabc" {
		t.Fatalf("PlaylistURL = %q", got)
	}
	u := "https://www.youtube.com/playlist?list=PLabc"
	if got := PlaylistURL(u); got != u {
		t.Fatalf("PlaylistURL(url) = %q", got)
	}
}
