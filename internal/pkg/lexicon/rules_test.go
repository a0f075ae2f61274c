package lexicon

import (
	"context"
	"math"
	"testing"

	"nohate/internal/pkg/filter"
)

func TestScorer_DefaultRules(t *testing.T) {
	s := NewScorer(nil)

	tests := []struct {
		text string
		want float64
	}{
		{"Great post!", 0},
		{"This is awful", 0.5},
		{"you are an IDIOT", 0.5},
		{"dumb and dumber", 0.4},
		{"kill yourself", 1},
		{"what an 1d10t, total tr@sh", 0.9},
		{"", 0},
	}

	for _, tt := range tests {
		got, err := s.Score(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("Score(%q) unexpected error: %v", tt.text, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Score(%q) = %v; want %v", tt.text, got, tt.want)
		}
	}
}

func TestScorer_RepeatsCountOnce(t *testing.T) {
	s := NewScorer([]filter.Pattern{{Phrase: "meh", Weight: 0.3}})
	got, _ := s.Score(context.Background(), "meh meh meh")
	if got != 0.3 {
		t.Errorf("Score = %v; want 0.3", got)
	}
}

func TestScorer_Name(t *testing.T) {
	if NewScorer(nil).Name() != "lexicon" {
		t.Error("unexpected scorer name")
	}
}
