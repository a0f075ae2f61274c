package biz

// Deduplicator drops candidate texts already present in flagged or hidden
// state. Texts are compared in stored form.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator indexes the existing flagged and hidden texts.
func NewDeduplicator(flagged []FlaggedItem, hidden []HiddenItem) *Deduplicator {
	d := &Deduplicator{seen: make(map[string]struct{}, len(flagged)+len(hidden))}
	for _, it := range flagged {
		d.add(it.Text)
	}
	for _, it := range hidden {
		d.add(it.Text)
	}
	return d
}

// Contains reports an exact match.
func (d *Deduplicator) Contains(text string) bool {
	_, ok := d.seen[StoredText(text)]
	return ok
}

func (d *Deduplicator) add(text string) {
	d.seen[StoredText(text)] = struct{}{}
}

// FilterNew returns candidates not seen before, in order. A text repeated
// within candidates is kept once.
func (d *Deduplicator) FilterNew(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, text := range candidates {
		if d.Contains(text) {
			continue
		}
		d.add(text)
		out = append(out, text)
	}
	return out
}

// FilterNew is the one-shot form of Deduplicator.FilterNew.
func FilterNew(candidates []string, flagged []FlaggedItem, hidden []HiddenItem) []string {
	return NewDeduplicator(flagged, hidden).FilterNew(candidates)
}
