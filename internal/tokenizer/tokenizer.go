// Package tokenizer converts note text and timestamps into index tokens.
package tokenizer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/starford/redisnotes/internal/keys"
)

var (
	wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	tagRe  = regexp.MustCompile(`^#+([\p{L}\p{N}_][\p{L}\p{N}_-]*)`)
)

// Time bucket names, in the order they are appended to every token list.
const (
	BucketYear    = "year"
	BucketMonth   = "month"
	BucketDay     = "day"
	BucketHour    = "hour"
	BucketWeekday = "weekday"
)

// Buckets lists the time bucket names in emission order.
var Buckets = []string{BucketYear, BucketMonth, BucketDay, BucketHour, BucketWeekday}

// Tokenize returns the index keys for a note: word keys (w_<word>) for every
// plain word, then word keys for every hashtag, then the five time buckets.
// Duplicates are removed keeping the first occurrence.
func Tokenize(ts int64, text string) []string {
	words, tags := Split(text)

	out := make([]string, 0, len(words)+len(tags)+len(Buckets))
	for _, w := range words {
		out = append(out, keys.WordKey(w))
	}
	for _, t := range tags {
		out = append(out, keys.WordKey(t))
	}
	out = append(out, TimeBuckets(ts)...)
	return lo.Uniq(out)
}

// Split breaks text into plain words and hashtags. A hashtag contributes its
// stripped words to the word list and its #-prefixed form (internal hyphens
// kept) to the tag list. Both lists are deduplicated in first-occurrence order.
func Split(text string) (words, tags []string) {
	for _, field := range strings.Fields(text) {
		words = append(words, wordRe.FindAllString(field, -1)...)
		if tag := hashtag(field); tag != "" {
			tags = append(tags, tag)
		}
	}
	return lo.Uniq(words), lo.Uniq(tags)
}

// hashtag returns the normalised #tag form of field, or "" when field is not
// a hashtag.
func hashtag(field string) string {
	m := tagRe.FindStringSubmatch(field)
	if m == nil {
		return ""
	}
	body := strings.TrimRight(m[1], "-")
	if body == "" {
		return ""
	}
	return "#" + body
}

// TimeBuckets returns year_Y, month_M, day_D, hour_H and weekday_W for ts
// (seconds since the Unix epoch), computed in UTC. Weekdays count from
// Monday = 0 to Sunday = 6.
func TimeBuckets(ts int64) []string {
	t := time.Unix(ts, 0).UTC()
	return []string{
		Bucket(BucketYear, t.Year()),
		Bucket(BucketMonth, int(t.Month())),
		Bucket(BucketDay, t.Day()),
		Bucket(BucketHour, t.Hour()),
		Bucket(BucketWeekday, Weekday(t)),
	}
}

// Bucket formats a time bucket token such as "year_2013".
func Bucket(name string, value int) string {
	return name + "_" + strconv.Itoa(value)
}

// Weekday returns the Monday-based weekday number of t.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsBucket reports whether name is one of the time bucket names.
func IsBucket(name string) bool {
	return lo.Contains(Buckets, name)
}
