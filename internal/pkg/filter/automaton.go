package filter

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Pattern is a phrase to look for and the weight it carries.
type Pattern struct {
	Phrase string
	Weight float64
}

// Match is one occurrence of a pattern. Start counts runes of the
// normalized text.
type Match struct {
	Pattern
	Start int
}

type node struct {
	children map[rune]*node
	fail     *node
	depth    int
	out      []int // indexes into Automaton.patterns
}

func newNode(depth int) *node {
	return &node{children: make(map[rune]*node), depth: depth}
}

// Automaton is an Aho-Corasick matcher over normalized text. It is safe
// for concurrent use; Build replaces the pattern set atomically.
type Automaton struct {
	mu       sync.RWMutex
	root     *node
	patterns []Pattern
}

// NewAutomaton builds an automaton for patterns.
func NewAutomaton(patterns []Pattern) *Automaton {
	a := &Automaton{}
	a.Build(patterns)
	return a
}

// Build replaces the pattern set. Blank phrases are skipped.
func (a *Automaton) Build(patterns []Pattern) {
	root := newNode(0)
	kept := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		phrase := NormalizeText(p.Phrase)
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		n := root
		for _, r := range phrase {
			child, ok := n.children[r]
			if !ok {
				child = newNode(n.depth + 1)
				n.children[r] = child
			}
			n = child
		}
		n.out = append(n.out, len(kept))
		kept = append(kept, p)
	}
	link(root)

	a.mu.Lock()
	a.root = root
	a.patterns = kept
	a.mu.Unlock()
}

// link sets fail links breadth first and merges outputs along them.
func link(root *node) {
	queue := make([]*node, 0, len(root.children))
	for _, child := range root.children {
		child.fail = root
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for r, child := range cur.children {
			queue = append(queue, child)
			f := cur.fail
			for f != nil && f.children[r] == nil {
				f = f.fail
			}
			if f == nil {
				child.fail = root
				continue
			}
			child.fail = f.children[r]
			child.out = append(child.out, child.fail.out...)
		}
	}
}

// walk feeds the normalized text through the automaton and calls visit for
// every pattern ending at each rune; visit returns false to stop.
func (a *Automaton) walk(text string, visit func(end int, n *node) bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.root == nil {
		return
	}
	n := a.root
	pos := 0
	for _, r := range NormalizeText(text) {
		for n != a.root && n.children[r] == nil {
			n = n.fail
		}
		if next, ok := n.children[r]; ok {
			n = next
		}
		if len(n.out) > 0 && !visit(pos, n) {
			return
		}
		pos++
	}
}

// Search returns every occurrence, overlapping ones included.
func (a *Automaton) Search(text string) []Match {
	var matches []Match
	a.walk(text, func(end int, n *node) bool {
		for _, i := range n.out {
			p := a.patterns[i]
			length := len([]rune(NormalizeText(p.Phrase)))
			matches = append(matches, Match{Pattern: p, Start: end - length + 1})
		}
		return true
	})
	return matches
}

// Distinct returns each pattern found in text once, in order of first match.
func (a *Automaton) Distinct(text string) []Pattern {
	var (
		found []Pattern
		seen  = make(map[int]struct{})
	)
	a.walk(text, func(_ int, n *node) bool {
		for _, i := range n.out {
			if _, ok := seen[i]; ok {
				continue
			}
			seen[i] = struct{}{}
			found = append(found, a.patterns[i])
		}
		return true
	})
	return found
}

// Contains reports whether any pattern occurs in text.
func (a *Automaton) Contains(text string) bool {
	hit := false
	a.walk(text, func(int, *node) bool {
		hit = true
		return false
	})
	return hit
}

var leet = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'8': 'b',
	'@': 'a',
	'$': 's',
}

// NormalizeText lowercases, strips diacritics and undoes common leetspeak.
func NormalizeText(text string) string {
	// chains carry state, so one per call
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(strip, text)
	if err != nil {
		folded = text
	}
	out := make([]rune, 0, len(folded))
	for _, r := range folded {
		r = unicode.ToLower(r)
		if sub, ok := leet[r]; ok {
			r = sub
		}
		out = append(out, r)
	}
	return string(out)
}
