package mcpserver

// SydFormatContract describes the content file format that LLM consumers
// should follow when creating or editing content.
const SydFormatContract = `# Synamic Content Format Contract

Every content file is a Markdown (` + "`" + `.md` + "`" + `) file with an optional Syd front matter.

## Structure

` + "```" + `
---
title: Human-readable title
tags: (Go, Static Sites)
created: 2025-01-15 9:30 AM
author {
    name: Jane
    site: https://example.org
}
---

Body text in Markdown.
` + "```" + `

## Front matter

1. The front matter opens with a line of three or more dashes as the first
   non-blank line and closes with an identical line.
2. Each entry is ` + "`" + `key: value` + "`" + `; the colon may be omitted (` + "`" + `count 3` + "`" + `).
   Keys are letters, digits and underscores and must not start with a digit.
3. Whole lines starting with ` + "`" + `#` + "`" + ` or ` + "`" + `//` + "`" + ` are comments.
4. Values are numbers (` + "`" + `42` + "`" + `, ` + "`" + `-1.5` + "`" + `), dates (` + "`" + `2025-01-15` + "`" + `), times
   (` + "`" + `9:30 AM` + "`" + `, ` + "`" + `21:30` + "`" + `), datetimes (a date, a space, a time) or strings.
   Quote a string with ` + "`" + `'` + "`" + ` or ` + "`" + `"` + "`" + ` to keep it literal.
5. Inline lists use parentheses: ` + "`" + `(a, b, "c, d")` + "`" + `.
6. Blocks use ` + "`" + `key {` + "`" + ` ... ` + "`" + `}` + "`" + ` and lists use ` + "`" + `key [` + "`" + ` ... ` + "`" + `]` + "`" + `, each opener
   and closer on its own line.
7. Multiline strings use ` + "`" + `key~ {` + "`" + ` ... ` + "`" + `}` + "`" + `; common indentation is removed.
   ` + "`" + `key~~ {` + "`" + ` keeps lines verbatim. Write ` + "`" + `\}` + "`" + ` for a literal closing brace line.
8. ` + "`" + `${name}` + "`" + ` inside a string is replaced by the sibling value ` + "`" + `name` + "`" + `;
   ` + "`" + `$${name}` + "`" + ` is kept literally.
9. Keys may repeat; every value is kept.

## Models

The ` + "`" + `model` + "`" + ` key selects a model (default ` + "`" + `content` + "`" + `). A model file
` + "`" + `<name>.model` + "`" + ` lists ` + "`" + `key: type | required | unique` + "`" + ` lines. Built-in types:
number, string, text, date, time, datetime, markdown, html, mark and list
variants such as ` + "`" + `mark[]` + "`" + `. Fields not in the model are kept as text; the body
is Markdown unless the model declares ` + "`" + `__body__` + "`" + `.

The default model declares title, description, created, updated, tags,
categories and summary. ` + "`" + `tags` + "`" + ` and ` + "`" + `categories` + "`" + ` are marks.
`
