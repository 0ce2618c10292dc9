// Package search turns raw search input into index keys.
package search

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/starford/redisnotes/internal/keys"
	"github.com/starford/redisnotes/internal/tokenizer"
)

// Parser normalises raw search terms into index lookup keys.
type Parser interface {
	Parse(raw []string) []string
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(raw []string) []string

// Parse calls f.
func (f ParserFunc) Parse(raw []string) []string { return f(raw) }

// RequestParser is the default Parser. Every whitespace-separated field of
// every raw term becomes index keys:
//
//	year:2013, weekday:3  -> year_2013, weekday_3
//	#tag                  -> w_#tag
//	#tag,extra            -> w_#tag, w_extra
//	anything else         -> w_<word> for each word run
//
// Case is preserved to match how notes are indexed.
type RequestParser struct{}

// Parse implements Parser.
func (RequestParser) Parse(raw []string) []string {
	var out []string
	for _, term := range raw {
		for _, field := range strings.Fields(term) {
			if bucket, ok := parseBucket(field); ok {
				out = append(out, bucket)
				continue
			}
			words, tags := tokenizer.Split(field)
			if len(tags) > 0 {
				// Words trailing the tag body ("#a,b" -> b) still constrain.
				tagWords, _ := tokenizer.Split(strings.Join(tags, " "))
				words = lo.Without(words, tagWords...)
				out = append(out, lo.Map(tags, wordKey)...)
			}
			out = append(out, lo.Map(words, wordKey)...)
		}
	}
	return lo.Uniq(out)
}

// parseBucket recognises name:value time bucket filters.
func parseBucket(field string) (string, bool) {
	name, value, ok := strings.Cut(field, ":")
	if !ok || !tokenizer.IsBucket(name) {
		return "", false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return "", false
	}
	return tokenizer.Bucket(name, n), true
}

func wordKey(w string, _ int) string {
	return keys.WordKey(w)
}
