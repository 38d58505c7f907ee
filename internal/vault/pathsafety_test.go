package vault

import (
	"errors"
	"testing"

	"github.com/liminal-notes/vaultcore/internal/apperr"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`notes\plan.md`, "notes/plan.md"},
		{"/notes/plan.md", "notes/plan.md"},
		{"//notes/plan.md", "notes/plan.md"},
		{"./notes/plan.md", "notes/plan.md"},
		{"notes/plan.md", "notes/plan.md"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{`a\b.md`, "/a/b.md", "./a/b.md", "a/b.md", "a//b.md"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestAssertSafe_Valid(t *testing.T) {
	got, err := AssertSafe(`notes\plan.md`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "notes/plan.md" {
		t.Errorf("normalized = %q, want notes/plan.md", got)
	}
}

func TestAssertSafe_Rejections(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"a\x00b.md",
		"/etc/passwd",
		`\windows\system32`,
		"C:/secrets.md",
		"c:stuff.md",
		"../outside.md",
		"notes/../../outside.md",
		`notes\..\outside.md`,
	}
	for _, in := range cases {
		if _, err := AssertSafe(in); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("AssertSafe(%q) = %v, want ErrInvalidPath", in, err)
		}
	}
}

func TestAssertSafe_DotDotInName(t *testing.T) {
	// ".." must be rejected only as a full segment, not as a substring.
	got, err := AssertSafe("notes/..hidden.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "notes/..hidden.md" {
		t.Errorf("normalized = %q", got)
	}
}

func TestJoin(t *testing.T) {
	if got := Join("notes", "plan.md"); got != "notes/plan.md" {
		t.Errorf("Join = %q, want notes/plan.md", got)
	}
	if got := Join("/notes", "sub", "plan.md"); got != "notes/sub/plan.md" {
		t.Errorf("Join = %q, want notes/sub/plan.md", got)
	}
}
