// Package parser extracts frontmatter and wikilinks from Markdown content.
package parser

import (
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var wikilinkRe = regexp.MustCompile(`\\?\[\[([^\]]+)\]\]`)

// WikiLink is one wikilink occurrence found in note content.
type WikiLink struct {
	TargetRaw string
}

// ParseFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the Markdown body. It never fails: missing or
// malformed frontmatter yields empty data and the original text as
// content.
func ParseFrontmatter(text string) (map[string]any, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(text, "\n\r")

	if !strings.HasPrefix(trimmed, delim) {
		return map[string]any{}, text
	}

	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		// No closing delimiter; treat everything as body.
		return map[string]any{}, text
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(afterDelim, "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil || fm == nil {
		return map[string]any{}, text
	}
	return fm, body
}

// ParseWikilinks returns deduplicated wikilink targets from text,
// normalising aliases ([[Target|Alias]] becomes Target) and ignoring
// escaped brackets (\[[...]]).
func ParseWikilinks(text string) []WikiLink {
	matches := wikilinkRe.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []WikiLink
	for _, m := range matches {
		if strings.HasPrefix(m[0], `\`) {
			continue
		}
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, WikiLink{TargetRaw: target})
	}
	return out
}

// DeriveTitle returns a note's display title: the vault-relative id
// minus its markdown extension.
func DeriveTitle(id string) string {
	return strings.TrimSuffix(id, ".md")
}

// ResolveTarget resolves a raw wikilink target against the set of
// existing note ids. Targets containing a path separator are matched
// exactly (with .md appended when missing); bare names match a root
// note first, then the first path ending in /name.md in sorted order.
// Returns "" when nothing matches.
func ResolveTarget(targetRaw string, existing []string) string {
	set := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		set[id] = struct{}{}
	}

	candidate := targetRaw
	if !strings.HasSuffix(candidate, ".md") {
		candidate += ".md"
	}

	if strings.ContainsAny(targetRaw, "/\\") {
		if _, ok := set[candidate]; ok {
			return candidate
		}
		return ""
	}

	if _, ok := set[candidate]; ok {
		return candidate
	}
	sorted := append([]string(nil), existing...)
	sort.Strings(sorted)
	for _, id := range sorted {
		if strings.HasSuffix(id, "/"+candidate) {
			return id
		}
	}
	return ""
}
