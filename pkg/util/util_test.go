package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "00:00:00.000",
		1500 * time.Millisecond: "00:00:01.500",
		time.Hour + 2*time.Minute + 3*time.Second: "01:02:03.000",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	cases := map[string]float64{
		"30/1":       30,
		"30000/1001": 30000.0 / 1001.0,
		"25":         25,
		" 29.97 ":    29.97,
		"0/0":        0,
		"abc":        0,
		"1/2/3":      0,
		"":           0,
	}
	for in, want := range cases {
		if got := ParseFrameRate(in); got != want {
			t.Errorf("ParseFrameRate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	if !FileExists(dir) {
		t.Fatalf("%s should exist", dir)
	}

	var paths []string
	for _, name := range []string{"one.png", "two.png"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "missing.png"))

	if n := CleanupFiles(paths...); n != 2 {
		t.Errorf("CleanupFiles removed %d, want 2", n)
	}
	if FileExists(paths[0]) {
		t.Errorf("%s should be gone", paths[0])
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"/data/session_01.mp4": "session_01",
		"clip.tar.gz":          "clip.tar",
		"noext":                "noext",
	}
	for in, want := range cases {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}
