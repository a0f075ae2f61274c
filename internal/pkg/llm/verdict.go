package llm

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// Label is what a model said about a comment.
type Label string

const (
	LabelHate          Label = "hate"
	LabelNotHate       Label = "not_hate"
	LabelUnsafe        Label = "unsafe"
	LabelControversial Label = "controversial"
	LabelSafe          Label = "safe"
)

// Verdict is a parsed model answer.
type Verdict struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// ErrUnparsable is returned when a completion carries no usable verdict.
var ErrUnparsable = errors.New("llm: unparsable completion")

// hatePrompt asks for a compact JSON verdict.
const hatePrompt = `You are a strict hate-speech classifier. Output compact JSON only:
{"label":"hate|not_hate","score":0.0-1.0}
Text: %s`

var (
	jsonObject    = regexp.MustCompile(`(?s)\{.*?\}`)
	guardSafety   = regexp.MustCompile(`(?i)Safety:\s*(Safe|Unsafe|Controversial)`)
	guardCategory = regexp.MustCompile(`(?i)\bS9\b|hate`)
)

// guardScores maps guard-model labels to a hate score.
var guardScores = map[Label]float64{
	LabelUnsafe:        1.0,
	LabelControversial: 0.7,
	LabelSafe:          0,
}

// ParseVerdict reads a completion. It prefers the JSON verdict the prompt
// asks for and falls back to guard-model output ("unsafe\nS9" or
// "Safety: Unsafe").
func ParseVerdict(content string) (Verdict, error) {
	for _, obj := range jsonObject.FindAllString(content, -1) {
		var raw struct {
			Label string   `json:"label"`
			Score *float64 `json:"score"`
		}
		if err := json.Unmarshal([]byte(obj), &raw); err != nil || raw.Score == nil {
			continue
		}
		v := Verdict{Label: Label(strings.ToLower(strings.TrimSpace(raw.Label))), Score: clamp(*raw.Score)}
		if v.Label == "" {
			v.Label = LabelHate
			if v.Score < 0.5 {
				v.Label = LabelNotHate
			}
		}
		return v, nil
	}

	text := strings.ToLower(strings.TrimSpace(content))
	if m := guardSafety.FindStringSubmatch(content); len(m) == 2 {
		label := Label(strings.ToLower(m[1]))
		return Verdict{Label: label, Score: guardScores[label]}, nil
	}
	switch {
	case strings.HasPrefix(text, string(LabelUnsafe)):
		// a guard model that flags categories other than hate is still a signal
		score := guardScores[LabelControversial]
		if guardCategory.MatchString(text) {
			score = guardScores[LabelUnsafe]
		}
		return Verdict{Label: LabelUnsafe, Score: score}, nil
	case strings.HasPrefix(text, string(LabelSafe)):
		return Verdict{Label: LabelSafe}, nil
	case strings.HasPrefix(text, string(LabelNotHate)):
		return Verdict{Label: LabelNotHate}, nil
	case strings.HasPrefix(text, string(LabelHate)):
		return Verdict{Label: LabelHate, Score: 1}, nil
	}
	return Verdict{}, ErrUnparsable
}

func clamp(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
