package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating or updating notes.
const NoteFormatContract = `# Note Format Contract

Every Markdown note stored in the vault SHOULD follow this structure.

## Structure

` + "```" + `markdown
---
tags:                               # OPTIONAL – YAML list or single value; used for filtering
  - tag-one
  - tag-two
created: 2025-01-15                 # OPTIONAL – ISO-8601 date or datetime
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes.
Use [[target|alias]] for display text that differs from the target.
` + "```" + `

## Rules

1. **Frontmatter is optional.** When present, the ` + "```" + `---` + "```" + ` fences must be
   the first thing in the file (no leading blank lines). A malformed
   frontmatter block is ignored, never an error.
2. **Titles are derived from the path.** The note id without its ` + "`" + `.md` + "`" + `
   extension is the display title; there is no title frontmatter field.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `project-x` + "`" + `, ` + "`" + `meeting-notes` + "`" + `).
   Notes in folders also inherit their folder names as tags automatically.
4. **Wikilinks** use double brackets: ` + "`" + `[[other-note]]` + "`" + `. Path separators
   are OK: ` + "`" + `[[folder/note]]` + "`" + `. Links to notes that do not exist yet are
   allowed and resolve once the target is created.
5. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes. Absolute
   paths and ` + "`" + `..` + "`" + ` segments are rejected.
6. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
---
tags:
  - meeting-notes
  - project-x
created: 2025-01-20
---

# Weekly standup 2025-01-20

Attendees: Alice, Bob.

## Action items

- [[alice]] to review the [[design-doc]]
- Bob to update [[project-x/roadmap|the roadmap]]
` + "```" + `
`
