// Package keys builds the deterministic store keys used for note bodies and
// index sets.
package keys

import "strconv"

// Wildcard matches any key suffix in a store pattern scan.
const Wildcard = "*"

const (
	notePrefix   = "note_"
	wordPrefix   = "w_"
	tokensPrefix = "note_tokens_"
)

// NoteKey returns the key holding the body of the note with timestamp ts.
func NoteKey(ts int64) string {
	return notePrefix + strconv.FormatInt(ts, 10)
}

// NoteKeyFor returns "note_" + value, where value is a stringified timestamp
// or the Wildcard.
func NoteKeyFor(value string) string {
	return notePrefix + value
}

// NotePattern matches every note body key.
func NotePattern() string {
	return NoteKeyFor(Wildcard)
}

// WordKey returns "w_" + token verbatim.
func WordKey(token string) string {
	return wordPrefix + token
}

// WordPattern matches every word index key.
func WordPattern() string {
	return WordKey(Wildcard)
}

// TokensKey returns the key recording which index sets a note joined.
func TokensKey(ts int64) string {
	return tokensPrefix + strconv.FormatInt(ts, 10)
}

// ParseNoteKey extracts the timestamp from a note body key. It reports false
// for any key that is not of the form note_<integer>.
func ParseNoteKey(key string) (int64, bool) {
	if len(key) <= len(notePrefix) || key[:len(notePrefix)] != notePrefix {
		return 0, false
	}
	ts, err := strconv.ParseInt(key[len(notePrefix):], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
