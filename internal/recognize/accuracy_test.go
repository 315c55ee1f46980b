package recognize

import "testing"

func TestCompareTranscripts(t *testing.T) {
	tests := []struct {
		name       string
		reference  string
		hypothesis string
		lang       string
		wantRate   float64
		wantSubs   int
		wantIns    int
		wantDels   int
		wantRef    int
	}{
		{
			name:       "identical",
			reference:  "the cat sat on the mat",
			hypothesis: "the cat sat on the mat",
			lang:       "en",
			wantRef:    6,
		},
		{
			name:       "one_substitution",
			reference:  "the cat sat on the mat",
			hypothesis: "the cat sit on the mat",
			lang:       "en",
			wantRate:   1.0 / 6.0,
			wantSubs:   1,
			wantRef:    6,
		},
		{
			name:       "one_insertion",
			reference:  "the cat sat",
			hypothesis: "the big cat sat",
			lang:       "en",
			wantRate:   1.0 / 3.0,
			wantIns:    1,
			wantRef:    3,
		},
		{
			name:       "punctuation_and_case",
			reference:  "Hello, World!",
			hypothesis: "hello world",
			lang:       "en",
			wantRef:    2,
		},
		{
			name:       "empty_reference",
			reference:  "",
			hypothesis: "some words",
			lang:       "en",
		},
		{
			name:       "empty_hypothesis",
			reference:  "some words",
			hypothesis: "",
			lang:       "en",
			wantRate:   1.0,
			wantDels:   2,
			wantRef:    2,
		},
		{
			name:       "mixed_errors",
			reference:  "the quick brown fox jumps over the lazy dog",
			hypothesis: "a quick brown cat jumps the lazy dog",
			lang:       "en",
			wantRate:   3.0 / 9.0,
			wantSubs:   2,
			wantDels:   1,
			wantRef:    9,
		},
		{
			name:       "japanese_identical_ignores_punctuation",
			reference:  "今日はいい天気ですね。",
			hypothesis: "今日は いい天気ですね",
			lang:       "ja",
			wantRef:    10,
		},
		{
			name:       "japanese_one_character_substituted",
			reference:  "こんにちは",
			hypothesis: "こんばんは",
			lang:       "ja",
			wantRate:   2.0 / 5.0,
			wantSubs:   2,
			wantRef:    5,
		},
		{
			name:       "japanese_deletion",
			reference:  "ありがとうございます",
			hypothesis: "ありがとう",
			lang:       "ja",
			wantRate:   5.0 / 10.0,
			wantDels:   5,
			wantRef:    10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareTranscripts(tt.reference, tt.hypothesis, tt.lang)

			if diff := got.Rate - tt.wantRate; diff > 0.001 || diff < -0.001 {
				t.Errorf("Rate = %f, want %f", got.Rate, tt.wantRate)
			}
			if got.RefUnits != tt.wantRef {
				t.Errorf("RefUnits = %d, want %d", got.RefUnits, tt.wantRef)
			}
			if got.Substitutions != tt.wantSubs {
				t.Errorf("Substitutions = %d, want %d", got.Substitutions, tt.wantSubs)
			}
			if got.Insertions != tt.wantIns {
				t.Errorf("Insertions = %d, want %d", got.Insertions, tt.wantIns)
			}
			if got.Deletions != tt.wantDels {
				t.Errorf("Deletions = %d, want %d", got.Deletions, tt.wantDels)
			}
		})
	}
}
