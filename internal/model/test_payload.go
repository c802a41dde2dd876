package model

// SectionKind classifies a test section for grading purposes.
type SectionKind string

const (
	SectionListening SectionKind = "listening"
	SectionReading   SectionKind = "reading"
	SectionWriting   SectionKind = "writing"
)

// ItemType enumerates the supported question types.
type ItemType string

const (
	ItemMultipleChoice ItemType = "multiple_choice"
	ItemTrueFalse      ItemType = "true_false"
	ItemShortAnswer    ItemType = "short_answer"
	ItemFreeText       ItemType = "free_text"
	ItemGapFill        ItemType = "gap_fill"
	ItemInfo           ItemType = "info"
)

// Scorable reports whether the type carries points and a correct answer.
// Free text is human-graded; info items are instructions only.
func (t ItemType) Scorable() bool {
	switch t {
	case ItemMultipleChoice, ItemTrueFalse, ItemShortAnswer, ItemGapFill:
		return true
	}
	return false
}

// TestPayload is the full authored test for one exam period, including
// correct answers. It is read-only during an attempt and is stripped before
// any part of it reaches a candidate.
type TestPayload struct {
	Randomize bool      `json:"randomize"`
	Sections  []Section `json:"sections"`
}

// Section groups items under one heading, e.g. listening or reading.
type Section struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Kind  SectionKind `json:"kind"`
	Items []Item      `json:"items"`
}

// Item is a single question. Options are present for multiple_choice and
// gap_fill; Correct holds the canonical answer for scorable types.
type Item struct {
	ID      string   `json:"id"`
	Type    ItemType `json:"type"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
	Points  int      `json:"points,omitempty"`
	Correct string   `json:"correct,omitempty"`
}

// ForClient returns a deep copy with correct answers and points stripped.
// This copy is the only form that ever leaves the server.
func (p *TestPayload) ForClient() *TestPayload {
	out := &TestPayload{
		Randomize: p.Randomize,
		Sections:  make([]Section, len(p.Sections)),
	}
	for i, sec := range p.Sections {
		cs := Section{ID: sec.ID, Title: sec.Title, Kind: sec.Kind, Items: make([]Item, len(sec.Items))}
		for j, it := range sec.Items {
			ci := it
			ci.Correct = ""
			ci.Points = 0
			if it.Options != nil {
				ci.Options = append([]string(nil), it.Options...)
			}
			cs.Items[j] = ci
		}
		out.Sections[i] = cs
	}
	return out
}

// FindItem looks up an item by id across all sections.
func (p *TestPayload) FindItem(itemID string) (*Item, *Section) {
	for i := range p.Sections {
		for j := range p.Sections[i].Items {
			if p.Sections[i].Items[j].ID == itemID {
				return &p.Sections[i].Items[j], &p.Sections[i]
			}
		}
	}
	return nil, nil
}
