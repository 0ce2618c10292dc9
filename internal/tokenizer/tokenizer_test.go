package tokenizer

import (
	"reflect"
	"testing"
	"time"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		ts   int64
		text string
		want []string
	}{
		{
			name: "plain words",
			ts:   1373500800,
			text: "a quick note",
			want: []string{"w_a", "w_quick", "w_note", "year_2013", "month_7", "day_11", "hour_0", "weekday_3"},
		},
		{
			name: "duplicates collapse",
			ts:   1373500800,
			text: "a a a quick note",
			want: []string{"w_a", "w_quick", "w_note", "year_2013", "month_7", "day_11", "hour_0", "weekday_3"},
		},
		{
			name: "special characters and hashtag",
			ts:   1373500800,
			text: "special&&& characters #awesome",
			want: []string{"w_special", "w_characters", "w_awesome", "w_#awesome", "year_2013", "month_7", "day_11", "hour_0", "weekday_3"},
		},
		{
			name: "hyphenated hashtags",
			ts:   1450794188,
			text: "#yolo #sl4life #tons-of-hashtags #yolo",
			want: []string{
				"w_yolo", "w_sl4life", "w_tons", "w_of", "w_hashtags",
				"w_#yolo", "w_#sl4life", "w_#tons-of-hashtags",
				"year_2015", "month_12", "day_22", "hour_14", "weekday_1",
			},
		},
		{
			name: "empty text",
			ts:   1373500800,
			text: "  &&& ## ",
			want: []string{"year_2013", "month_7", "day_11", "hour_0", "weekday_3"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Tokenize(c.ts, c.text)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("Tokenize(%d, %q) =\n  %v\nwant\n  %v", c.ts, c.text, got, c.want)
			}
		})
	}
}

func TestTokenize_Deterministic(t *testing.T) {
	a := Tokenize(1450794188, "Some #Mixed case, words! #mixed")
	b := Tokenize(1450794188, "Some #Mixed case, words! #mixed")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("tokenize not deterministic: %v vs %v", a, b)
	}
	// Case is preserved, so #Mixed and #mixed are distinct tags.
	want := []string{"w_Some", "w_Mixed", "w_case", "w_words", "w_mixed", "w_#Mixed", "w_#mixed"}
	if !reflect.DeepEqual(a[:len(want)], want) {
		t.Errorf("words = %v, want %v", a[:len(want)], want)
	}
}

func TestSplit_HashtagPunctuation(t *testing.T) {
	words, tags := Split("end #done. (#paren) #trailing- ##double")
	wantWords := []string{"end", "done", "paren", "trailing", "double"}
	wantTags := []string{"#done", "#trailing", "#double"}
	if !reflect.DeepEqual(words, wantWords) {
		t.Errorf("words = %v, want %v", words, wantWords)
	}
	if !reflect.DeepEqual(tags, wantTags) {
		t.Errorf("tags = %v, want %v", tags, wantTags)
	}
}

func TestTimeBuckets_Weekdays(t *testing.T) {
	// 2024-01-01 was a Monday.
	monday := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		got := TimeBuckets(day.Unix())
		want := Bucket(BucketWeekday, i)
		if got[4] != want {
			t.Errorf("%s: weekday bucket = %q, want %q", day.Weekday(), got[4], want)
		}
	}
}

func TestIsBucket(t *testing.T) {
	if !IsBucket("weekday") || IsBucket("minute") {
		t.Error("IsBucket mismatch")
	}
}
