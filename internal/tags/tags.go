// Package tags defines the tag model, id normalization rules, and the
// JSON tag catalogue that travels with the vault.
package tags

import (
	"regexp"
	"strings"
)

// Tag is a tag definition. The catalogue JSON is the authoritative
// source for DisplayName, Color, and AIAutoApprove.
type Tag struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	Color         string `json:"color,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
	AIAutoApprove bool   `json:"aiAutoApprove,omitempty"`
}

var (
	spacesRe     = regexp.MustCompile(`[\s_]+`)
	invalidRe    = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRunsRe = regexp.MustCompile(`-+`)
)

// NormalizeID converts an arbitrary label into a kebab-case tag id:
// lowercase, spaces and underscores to hyphens, non [a-z0-9-] stripped,
// hyphen runs collapsed, leading/trailing hyphens trimmed. The function
// is idempotent.
func NormalizeID(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = spacesRe.ReplaceAllString(s, "-")
	s = invalidRe.ReplaceAllString(s, "")
	s = hyphenRunsRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// DeriveFromPath returns the normalized tag ids implied by a note's
// containing folders. "work/projects/plan.md" yields work, projects.
func DeriveFromPath(id string) []string {
	parts := strings.Split(id, "/")
	if len(parts) <= 1 {
		return nil
	}
	var out []string
	for _, p := range parts[:len(parts)-1] {
		if p == "" {
			continue
		}
		if t := NormalizeID(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Humanize turns a tag id into a friendly display name: hyphen-separated
// words, each capitalized.
func Humanize(id string) string {
	words := strings.Split(id, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
