package filter

import (
	"testing"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercase",
			input:    "GO BACK",
			expected: "go back",
		},
		{
			name:     "leetspeak numbers",
			input:    "1d10t",
			expected: "idiot",
		},
		{
			name:     "leetspeak symbols",
			input:    "tr@$h",
			expected: "trash",
		},
		{
			name:     "diacritics",
			input:    "ídìót",
			expected: "idiot",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input); got != tt.expected {
				t.Errorf("NormalizeText(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAutomaton_Search(t *testing.T) {
	a := NewAutomaton([]Pattern{
		{Phrase: "he", Weight: 0.1},
		{Phrase: "she", Weight: 0.2},
		{Phrase: "his", Weight: 0.3},
		{Phrase: "hers", Weight: 0.4},
	})

	tests := []struct {
		name   string
		text   string
		count  int
		starts map[string]int
	}{
		{name: "overlapping", text: "she", count: 2, starts: map[string]int{"she": 0, "he": 1}},
		{name: "suffix chain", text: "ushers", count: 3, starts: map[string]int{"she": 1, "he": 2, "hers": 2}},
		{name: "none", text: "abc", count: 0},
		{name: "empty", text: "", count: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := a.Search(tt.text)
			if len(matches) != tt.count {
				t.Fatalf("Search(%q) returned %d matches; want %d", tt.text, len(matches), tt.count)
			}
			for _, m := range matches {
				want, ok := tt.starts[m.Phrase]
				if !ok {
					t.Errorf("Search(%q) found unexpected %q", tt.text, m.Phrase)
					continue
				}
				if m.Start != want {
					t.Errorf("Search(%q) %q start = %d; want %d", tt.text, m.Phrase, m.Start, want)
				}
			}
		})
	}
}

func TestAutomaton_Distinct(t *testing.T) {
	a := NewAutomaton([]Pattern{
		{Phrase: "die", Weight: 0.8},
		{Phrase: "go die", Weight: 0.95},
		{Phrase: "  ", Weight: 1},
	})

	found := a.Distinct("go die, just die, DIE")
	if len(found) != 2 {
		t.Fatalf("Distinct returned %d patterns; want 2: %v", len(found), found)
	}
	total := 0.0
	for _, p := range found {
		total += p.Weight
	}
	if total != 0.8+0.95 {
		t.Errorf("weights sum = %v; want %v", total, 0.8+0.95)
	}
}

func TestAutomaton_Contains(t *testing.T) {
	a := NewAutomaton([]Pattern{{Phrase: "trash", Weight: 0.4}})

	tests := []struct {
		text     string
		expected bool
	}{
		{"what trash", true},
		{"TRASH talk", true},
		{"tr4$h", true},
		{"tras", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := a.Contains(tt.text); got != tt.expected {
			t.Errorf("Contains(%q) = %v; want %v", tt.text, got, tt.expected)
		}
	}
}

func TestAutomaton_Rebuild(t *testing.T) {
	a := NewAutomaton([]Pattern{{Phrase: "old", Weight: 1}})
	a.Build([]Pattern{{Phrase: "new", Weight: 1}})
	if a.Contains("old") {
		t.Error("expected old pattern to be gone after Build")
	}
	if !a.Contains("brand new") {
		t.Error("expected new pattern to match after Build")
	}
}

func BenchmarkAutomaton_Distinct(b *testing.B) {
	patterns := make([]Pattern, 1000)
	for i := range patterns {
		patterns[i] = Pattern{Phrase: "pattern" + string(rune('a'+i%26)), Weight: 0.1}
	}
	a := NewAutomaton(patterns)
	text := "This is a long comment that contains patterna and patternb and some other words."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Distinct(text)
	}
}
