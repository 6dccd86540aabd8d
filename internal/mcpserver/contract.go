package mcpserver

// FrontMatterContract describes the front matter the listing reads from
// every post file.
const FrontMatterContract = `# Folio Front-Matter Contract

Posts are Markdown (` + "`" + `.md` + "`" + `) or MDX (` + "`" + `.mdx` + "`" + `) files inside the posts folder.

## Structure

` + "```" + `markdown
---
title: Human-readable title     # OPTIONAL – falls back to the first H1, then the file name
date: 2024-03-18                # REQUIRED – calendar date or RFC 3339 timestamp
tags:                            # OPTIONAL – YAML list or comma-separated string
  - go
  - tooling
summary: One-line teaser         # OPTIONAL – falls back to the first paragraph
draft: false                     # OPTIONAL – drafts are hidden from listings
slug: custom/url                 # OPTIONAL – overrides the path-derived slug
---

Body text in Markdown or MDX.
` + "```" + `

## Rules

1. **` + "`" + `date` + "`" + ` is mandatory.** A missing or unparseable date fails the build and
   the listing endpoints answer 500 until it is fixed.
2. **Ordering** is newest first by ` + "`" + `date` + "`" + `. Posts with the same date keep file-path order.
3. **Slugs** default to the path inside the posts folder without extension
   (` + "`" + `posts/2024/trip.md` + "`" + ` becomes ` + "`" + `2024/trip` + "`" + `).
4. **Tags** are matched case-insensitively when filtering; duplicates are dropped.
5. **Summaries** are rendered as Markdown; raw HTML in them is removed.
6. **Encoding** is UTF-8. File names use forward slashes and Latin characters.

## Example

` + "```" + `markdown
---
title: Moving the blog to static pages
date: 2024-03-18
tags: [meta, go]
summary: Why the listing is now generated at build time.
---

# Moving the blog to static pages

The listing used to be rendered on every request...
` + "```" + `
`
