package objectstore

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"final report.pdf", "final-report.pdf"},
		{"  padded  name.txt ", "padded-name.txt"},
		{"tabs\tand\nnewlines.md", "tabs-and-newlines.md"},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildKey(t *testing.T) {
	key := BuildKey("submissions", "my work.zip")
	if !strings.HasPrefix(key, "submissions/") {
		t.Fatalf("key = %q, want submissions/ prefix", key)
	}
	rest := strings.TrimPrefix(key, "submissions/")
	if !strings.HasSuffix(rest, "-my-work.zip") {
		t.Fatalf("key = %q, want sanitized filename suffix", key)
	}
	id := strings.TrimSuffix(rest, "-my-work.zip")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("key prefix %q is not a uuid: %v", id, err)
	}
}

func TestBuildKeyDefaultsFolder(t *testing.T) {
	key := BuildKey("", "a.txt")
	if !strings.HasPrefix(key, "uploads/") {
		t.Fatalf("key = %q, want uploads/ fallback", key)
	}
	key = BuildKey("/nested/dir/", "a.txt")
	if !strings.HasPrefix(key, "nested/dir/") {
		t.Fatalf("key = %q, want trimmed folder", key)
	}
}

func TestBuildKeysNeverCollide(t *testing.T) {
	a := BuildKey("f", "same.txt")
	b := BuildKey("f", "same.txt")
	if a == b {
		t.Fatalf("two keys for the same filename collided: %s", a)
	}
}
