package search

import (
	"reflect"
	"testing"
)

func TestRequestParser_Parse(t *testing.T) {
	cases := []struct {
		name string
		raw  []string
		want []string
	}{
		{"single term", []string{"test note"}, []string{"w_test", "w_note"}},
		{"multiple terms", []string{"redis", "notes"}, []string{"w_redis", "w_notes"}},
		{"hashtag", []string{"#awesome"}, []string{"w_#awesome"}},
		{"hyphenated hashtag", []string{"#tons-of-hashtags"}, []string{"w_#tons-of-hashtags"}},
		{"hashtag with trailing word", []string{"#a,b"}, []string{"w_#a", "w_b"}},
		{"hashtag trailing punctuation", []string{"#todo!"}, []string{"w_#todo"}},
		{"punctuation", []string{"special&&& characters"}, []string{"w_special", "w_characters"}},
		{"time buckets", []string{"year:2013 weekday:3"}, []string{"year_2013", "weekday_3"}},
		{"bucket with leading zero", []string{"month:07"}, []string{"month_7"}},
		{"unknown bucket is a word", []string{"minute:5"}, []string{"w_minute", "w_5"}},
		{"duplicates", []string{"go go", "go"}, []string{"w_go"}},
		{"case preserved", []string{"Go"}, []string{"w_Go"}},
		{"empty", []string{"", "  ", "&&"}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := RequestParser{}.Parse(c.raw)
			if len(got) == 0 && len(c.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("Parse(%q) = %v, want %v", c.raw, got, c.want)
			}
		})
	}
}

func TestParserFunc(t *testing.T) {
	var p Parser = ParserFunc(func(raw []string) []string { return raw })
	if got := p.Parse([]string{"x"}); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("ParserFunc = %v", got)
	}
}
