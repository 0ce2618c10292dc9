package mcpserver

// SearchSyntax describes how notes are indexed and how find_notes input is
// interpreted, for LLM consumers of the tools.
const SearchSyntax = `# redisnotes Search Syntax

Notes are identified by a Unix timestamp (seconds). Every note is indexed by:

- each word of its text (letters, digits and underscores; case is preserved),
- each hashtag, kept with its leading ` + "`#`" + ` and internal hyphens
  (` + "`#tons-of-hashtags`" + ` is also indexed as tons, of, hashtags),
- five UTC time buckets of its timestamp: year, month, day, hour, weekday
  (weekday 0 = Monday ... 6 = Sunday).

## Queries

A query is split on whitespace and every part must match (AND):

- ` + "`word`" + ` matches notes containing that word,
- ` + "`#tag`" + ` matches notes carrying that exact hashtag,
- ` + "`year:2013`" + `, ` + "`month:7`" + `, ` + "`day:11`" + `, ` + "`hour:0`" + `, ` + "`weekday:3`" + ` filter by time bucket.

There is no ranking; results are returned newest first.

## Example

` + "`quick #todo weekday:0`" + ` finds notes written on a Monday that contain
"quick" and the hashtag #todo.
`
