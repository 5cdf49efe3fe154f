package mcpserver

// TaskFormatContract describes the canonical task ledger document format
// that LLM consumers should follow when editing the ledger directly.
const TaskFormatContract = `# Raido Task Ledger Format

The task ledger (TASK.md at the capsa root) is one Markdown document with
four blocks separated by horizontal rules (` + "`---`" + ` on a line by itself).

## Structure

` + "```" + `markdown
---
PREFIX: task-
---

Free-text description of the ledger. Preserved verbatim; never edited by
the tools.

---

## Doing

- [ ] [Fix login bug][task-1] @agent1
  - 2026-02-10 09:15 reproduced locally
- [x] [Write changelog][task-2]

---

[task-1]: 222714
[task-2]: 20260210/changelog
[task-3]: 143022
` + "```" + `

## Rules

1. **Metadata block** (between the first two rules) holds key/value pairs.
   ` + "`PREFIX`" + ` controls generated task ids (default ` + "`task-`" + `).
2. **Body entries** have the exact form ` + "`- [ ] [title][id]`" + ` or
   ` + "`- [x] [title][id]`" + `, optionally suffixed ` + "` @agent`" + ` for the owner.
3. **Comments** are indented lines immediately under an entry:
   ` + "`  - YYYY-MM-DD HH:MM text`" + `, optionally ending in a short git hash
   in brackets.
4. **Reference block** (after the final rule) maps each task id to a note
   reference: ` + "`[id]: reference`" + `. Every body entry's id must be defined
   here. A task defined only here is in the backlog.
5. **Status** is derived: reference-only = backlog, in body unchecked =
   doing, in body checked = done.
6. **Ownership**: only an unowned entry may be taken; release clears the
   owner. Never edit another agent's ` + "`@owner`" + ` marker.
7. Headings and any other body lines are free-form; the tools preserve
   them and use headings only as placement targets.
`
