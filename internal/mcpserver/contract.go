package mcpserver

// NoteFormatContract describes how offnote stores and syncs notes, for LLM
// consumers creating or editing them.
const NoteFormatContract = `# offnote Note Contract

A note has an id (UUID), a title, a Markdown body and an update time. Every
edit is made to the local replica first and pushed to the server later, so
tools work the same online and offline.

## Mirrored files

Each note is mirrored into the vault directory as ` + "`" + `<id>.md` + "`" + `:

` + "```" + `markdown
---
id: 0e7b6f0a-8d3c-4c1e-9f2a-1b2c3d4e5f60
title: Groceries
updated_at: 2025-01-20T09:30:00Z
synced: false
---
milk, eggs
` + "```" + `

1. ` + "`" + `id` + "`" + `, ` + "`" + `updated_at` + "`" + ` and ` + "`" + `synced` + "`" + ` are maintained by offnote. Edits to them are ignored.
2. ` + "`" + `title` + "`" + ` and the body may be edited in place; the change becomes a local edit.
3. A new file named ` + "`" + `<uuid>.md` + "`" + ` becomes a new note. Without frontmatter its
   title is the first ` + "`" + `# heading` + "`" + `.
4. Deleting a file does not delete the note: the file is restored. Delete notes
   through the API.
5. Titles are at most 500 characters. A blank title becomes "Untitled Note".

## Sync

- A sync pass pulls the server's notes, then pushes every note with local edits.
- A pulled note replaces the local copy only when the local copy has no
  pending edits and the server copy is strictly newer.
- Pushes use the full note body; the server's timestamp is recorded locally.
- Per-note status is one of ` + "`" + `synced` + "`" + `, ` + "`" + `syncing` + "`" + `, ` + "`" + `unsynced` + "`" + `, ` + "`" + `error` + "`" + `. Notes in
  ` + "`" + `error` + "`" + ` are retried on the next pass.
- Deletions are never propagated in either direction.
`
