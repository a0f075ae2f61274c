// Package lexicon scores comments with a weighted table of hateful phrases.
package lexicon

import (
	"context"
	"math"

	"nohate/internal/pkg/filter"
)

// DefaultRules is the built-in weight table.
var DefaultRules = []filter.Pattern{
	{Phrase: "fuck you", Weight: 0.9},
	{Phrase: "kill yourself", Weight: 1.0},
	{Phrase: "go die", Weight: 0.95},
	{Phrase: "stupid bitch", Weight: 0.95},
	{Phrase: "you people", Weight: 0.6},
	{Phrase: "dirty", Weight: 0.5},
	{Phrase: "get out", Weight: 0.4},
	{Phrase: "go back", Weight: 0.5},

	{Phrase: "awful", Weight: 0.5},
	{Phrase: "toxic", Weight: 0.6},
	{Phrase: "abuse", Weight: 0.7},
	{Phrase: "hate", Weight: 0.7},
	{Phrase: "kill", Weight: 0.9},
	{Phrase: "die", Weight: 0.8},
	{Phrase: "bitch", Weight: 0.8},
	{Phrase: "slur", Weight: 0.7},
	{Phrase: "idiot", Weight: 0.5},
	{Phrase: "dumb", Weight: 0.4},
	{Phrase: "stupid", Weight: 0.5},
	{Phrase: "trash", Weight: 0.4},
}

// Scorer sums the weights of the distinct rules found in a comment, capped at 1.
type Scorer struct {
	ac *filter.Automaton
}

// NewScorer builds a Scorer; nil rules means DefaultRules.
func NewScorer(rules []filter.Pattern) *Scorer {
	if rules == nil {
		rules = DefaultRules
	}
	return &Scorer{ac: filter.NewAutomaton(rules)}
}

func (s *Scorer) Name() string {
	return "lexicon"
}

// Score never fails.
func (s *Scorer) Score(_ context.Context, text string) (float64, error) {
	var total float64
	for _, p := range s.ac.Distinct(text) {
		total += p.Weight
	}
	return math.Min(total, 1), nil
}
