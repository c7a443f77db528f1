package mcpserver

// CommandsGuide describes the note commands for LLM consumers.
const CommandsGuide = `# knowleague note commands

A note is ` + "`" + `{"id", "title", "content", "tags"}` + "`" + `. The id is a 24-character
hex string assigned by the store on creation and never changes.

| Command | Arguments | Result |
|---|---|---|
| check_connection | none | ` + "`" + `Databases: [...]` + "`" + ` |
| create_note | title, content, tags | the new note's id |
| get_notes | none | every note, store order |
| delete_note | id | ` + "`" + `Deleted` + "`" + ` |
| update_note | id, title, content, tags | ` + "`" + `Updated successfully` + "`" + ` |
| search_notes | query | matching notes, best match first |

## Rules

1. **Title is required** on create and update and must not be blank.
2. **Update replaces everything.** Send the full title, content and tag list;
   omitted tags become an empty list.
3. **Tags** are trimmed and blank entries dropped; order is kept.
4. **Search** matches whole words over title, tags and content. An empty
   query returns no notes.

## Errors

- ` + "`" + `database not connected` + "`" + `: the server started without a store
  connection. Every command fails until it is restarted.
- ` + "`" + `invalid note id` + "`" + `: the id is not a 24-character hex string.
- ` + "`" + `note not found` + "`" + `: no note has that id.
- ` + "`" + `invalid input: ...` + "`" + `: a blank title or malformed arguments.
- ` + "`" + `store error: ...` + "`" + `: the store rejected the operation.
`
