package mcpserver

// NoteFormatContract describes the Markdown format import_note accepts.
const NoteFormatContract = `# Quire Import Format

Notes are imported from Markdown with optional YAML frontmatter.

## Structure

` + "```" + `markdown
---
title: Human-readable title   # OPTIONAL – falls back to the first "# " heading
tags:                          # OPTIONAL – YAML list
  - groceries
color: green                   # OPTIONAL – color id
notebook: home                 # OPTIONAL – with topic, moves the note
topic: errands
---

Body text in standard Markdown. Inline #hashtags are collected as tags.
` + "```" + `

## Rules

1. A document needs a title or a non-blank body.
2. ` + "`" + `notebook` + "`" + ` and ` + "`" + `topic` + "`" + ` only apply together.
3. ` + "`" + `id` + "`" + `, ` + "`" + `created` + "`" + ` and ` + "`" + `edited` + "`" + ` are written on export and ignored on import.
4. Encoding is UTF-8.`
