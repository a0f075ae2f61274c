package biz

import (
	"context"
	"math"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
)

// EscalationBand is the width of the score range below the threshold in
// which the LLM is consulted.
const EscalationBand = 0.2

// bandTolerance absorbs float error in threshold-EscalationBand.
const bandTolerance = 1e-9

// ScoreProvider scores a text in [0,1].
type ScoreProvider interface {
	Name() string
	Score(ctx context.Context, text string) (float64, error)
}

// Escalator is a costly ScoreProvider consulted only for ambiguous scores.
type Escalator interface {
	ScoreProvider
	Ready(ctx context.Context) bool
}

// Scorers is the set of providers a decision may use. Nil members are skipped.
type Scorers struct {
	Lexicon   ScoreProvider
	Quantized ScoreProvider
	LLM       Escalator
}

// Select drops the providers the settings switch off. The lexicon is always on.
func (s Scorers) Select(settings Settings) Scorers {
	out := Scorers{Lexicon: s.Lexicon}
	if settings.UseQuantizedModel {
		out.Quantized = s.Quantized
	}
	if settings.UseLlm {
		out.LLM = s.LLM
	}
	return out
}

// Override says which user-taught rule decided a comment.
type Override string

const (
	OverrideNone Override = ""
	OverrideHate Override = "hate"
	OverrideSafe Override = "safe"
)

// Decision is the outcome for one comment.
type Decision struct {
	FinalScore float64            `json:"final_score"`
	Flagged    bool               `json:"flagged"`
	Override   Override           `json:"override,omitempty"`
	Escalated  bool               `json:"escalated"`
	Scores     map[string]float64 `json:"scores"`
}

// DecisionEngine fuses provider scores into a flag decision.
type DecisionEngine struct {
	log *log.Helper
}

// NewDecisionEngine creates a DecisionEngine.
func NewDecisionEngine(logger log.Logger) *DecisionEngine {
	return &DecisionEngine{log: log.NewHelper(logger)}
}

// Decide scores text and applies escalation and user overrides.
func (e *DecisionEngine) Decide(ctx context.Context, text string, lex UserLexicon, threshold float64, scorers Scorers) Decision {
	d := Decision{Scores: make(map[string]float64, 3)}

	// fusion by max: any strong signal is enough
	if scorers.Lexicon != nil {
		d.FinalScore = math.Max(d.FinalScore, e.score(ctx, scorers.Lexicon, text, d.Scores))
	}
	if scorers.Quantized != nil {
		d.FinalScore = math.Max(d.FinalScore, e.score(ctx, scorers.Quantized, text, d.Scores))
	}

	if scorers.LLM != nil && InEscalationBand(d.FinalScore, threshold) && scorers.LLM.Ready(ctx) {
		d.Escalated = true
		d.FinalScore = math.Max(d.FinalScore, e.score(ctx, scorers.LLM, text, d.Scores))
	}

	d.Override = MatchOverride(text, lex)
	switch d.Override {
	case OverrideHate:
		d.Flagged = true
	case OverrideSafe:
		d.Flagged = false
	default:
		d.Flagged = d.FinalScore >= threshold
	}
	return d
}

// score calls one provider; a failure counts as 0 for that provider only.
func (e *DecisionEngine) score(ctx context.Context, p ScoreProvider, text string, scores map[string]float64) float64 {
	s, err := p.Score(ctx, text)
	if err != nil {
		e.log.Warnf("scorer %s failed, counting as 0: %v", p.Name(), err)
		s = 0
	}
	s = ClampScore(s)
	scores[p.Name()] = s
	return s
}

// InEscalationBand reports whether score lies in [threshold-EscalationBand, threshold].
func InEscalationBand(score, threshold float64) bool {
	return score >= threshold-EscalationBand-bandTolerance && score <= threshold
}

// MatchOverride checks user-taught phrases against the lowercased text.
// Hate phrases win over safe phrases.
func MatchOverride(text string, lex UserLexicon) Override {
	lowered := strings.ToLower(text)
	for _, p := range lex.Hate {
		if p = strings.TrimSpace(p); p != "" && strings.Contains(lowered, p) {
			return OverrideHate
		}
	}
	for _, p := range lex.Safe {
		if p = strings.TrimSpace(p); p != "" && strings.Contains(lowered, p) {
			return OverrideSafe
		}
	}
	return OverrideNone
}

// ClampScore maps a raw score into [0,1]; NaN becomes 0.
func ClampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
