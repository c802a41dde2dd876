package grading

import (
	"testing"

	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/random"
	"github.com/stretchr/testify/assert"
)

func gradedPayload() *model.TestPayload {
	return &model.TestPayload{
		Sections: []model.Section{
			{
				ID:   "sec-listening",
				Kind: model.SectionListening,
				Items: []model.Item{
					{ID: "l-info", Type: model.ItemInfo},
					{ID: "l-1", Type: model.ItemMultipleChoice, Options: []string{"a", "b", "c", "d"}, Points: 2, Correct: "B"},
					{ID: "l-2", Type: model.ItemTrueFalse, Points: 1, Correct: "false"},
					{ID: "l-3", Type: model.ItemShortAnswer, Points: 2, Correct: "9:30"},
				},
			},
			{
				ID:   "sec-reading",
				Kind: model.SectionReading,
				Items: []model.Item{
					{ID: "r-1", Type: model.ItemMultipleChoice, Options: []string{"x", "y", "z"}, Points: 2, Correct: "C"},
					{ID: "r-2", Type: model.ItemShortAnswer, Points: 3, Correct: "Blue Whale"},
				},
			},
			{
				ID:   "sec-writing",
				Kind: model.SectionWriting,
				Items: []model.Item{
					{ID: "w-1", Type: model.ItemGapFill, Points: 1, Correct: "goes"},
					{ID: "w-essay", Type: model.ItemFreeText},
				},
			},
		},
	}
}

// identityPlan maps every shuffled index to itself.
func identityPlan(payload *model.TestPayload) *random.Plan {
	return random.NewPlan("any", payload) // Randomize is false, so identity.
}

func TestCanonicalizeMultipleChoice(t *testing.T) {
	payload := gradedPayload()
	plan := &random.Plan{OptionOrder: map[string][]int{
		"l-1": {3, 1, 0, 2}, // shuffled 0 shows authored option D
		"r-1": {0, 1, 2},
	}}

	out := Canonicalize(payload, plan, map[string]string{
		"l-1": "0",   // authored index 3 -> "D"
		"r-1": " 2 ", // whitespace tolerated, authored index 2 -> "C"
	})
	assert.Equal(t, "D", out["l-1"])
	assert.Equal(t, "C", out["r-1"])
}

func TestCanonicalizeRejectsBadChoice(t *testing.T) {
	payload := gradedPayload()
	plan := identityPlan(payload)

	out := Canonicalize(payload, plan, map[string]string{
		"l-1": "not-a-number",
		"r-1": "7", // out of range
	})
	assert.Empty(t, out)
}

func TestCanonicalizeTrueFalse(t *testing.T) {
	payload := gradedPayload()
	plan := identityPlan(payload)

	for raw, want := range map[string]string{
		"true": "true", "TRUE": "true", "1": "true", "t": "true",
		"false": "false", "0": "false", "F": "false", " false ": "false",
	} {
		out := Canonicalize(payload, plan, map[string]string{"l-2": raw})
		assert.Equal(t, want, out["l-2"], "raw %q", raw)
	}

	// Unrecognized boolean values are dropped.
	out := Canonicalize(payload, plan, map[string]string{"l-2": "yes"})
	assert.Empty(t, out)
}

func TestCanonicalizeDropsInfoAndUnknown(t *testing.T) {
	payload := gradedPayload()
	plan := identityPlan(payload)

	out := Canonicalize(payload, plan, map[string]string{
		"l-info":  "anything",
		"ghost":   "42",
		"l-3":     "  9:30  ",
		"w-essay": "  my essay  ",
	})
	assert.Equal(t, map[string]string{
		"l-3":     "9:30",
		"w-essay": "my essay",
	}, out)
}

func TestWritingText(t *testing.T) {
	payload := gradedPayload()

	assert.Equal(t, "An essay about travel.", WritingText(payload, map[string]string{
		"w-essay": "An essay about travel.",
		"l-3":     "9:30",
	}))
	assert.Equal(t, "", WritingText(payload, map[string]string{"l-3": "9:30"}))
}

func TestObjectiveScore(t *testing.T) {
	payload := gradedPayload()

	// Max covers l-1(2) + l-2(1) + l-3(2) + r-1(2) + r-2(3) + w-1(1) = 11.
	// The essay never counts.
	earned, max := ObjectiveScore(payload, map[string]string{})
	assert.Equal(t, 0, earned)
	assert.Equal(t, 11, max)

	earned, max = ObjectiveScore(payload, map[string]string{
		"l-1":     "B",          // correct, 2
		"l-2":     "true",       // wrong
		"l-3":     "9:30",       // correct, 2
		"r-1":     "A",          // wrong
		"r-2":     "blue whale", // case-insensitive, 3
		"w-1":     "Goes",       // gap fill in writing still objective, 1
		"w-essay": "long essay", // never scored
	})
	assert.Equal(t, 8, earned)
	assert.Equal(t, 11, max)
}

func TestObjectiveScorePerfect(t *testing.T) {
	payload := gradedPayload()
	earned, max := ObjectiveScore(payload, map[string]string{
		"l-1": "B", "l-2": "false", "l-3": "9:30",
		"r-1": "C", "r-2": "Blue Whale", "w-1": "goes",
	})
	assert.Equal(t, max, earned)
}

func intPtr(v int) *int { return &v }

func TestBlend(t *testing.T) {
	// 80% objective, writing 100, speaking 90:
	// 80*0.6 + 100*0.2 + 90*0.2 = 48 + 20 + 18 = 86.
	assert.Equal(t, 86, Blend(8, 10, intPtr(90), intPtr(100)))

	// Missing human scores count as zero.
	assert.Equal(t, 48, Blend(8, 10, nil, nil))
	assert.Equal(t, 68, Blend(8, 10, nil, intPtr(100)))

	// Zero max objective contributes nothing instead of dividing by zero.
	assert.Equal(t, 40, Blend(0, 0, intPtr(100), intPtr(100)))

	// Rounding: 7/11 ≈ 63.64% -> 63.64*0.6 = 38.18 -> 38.
	assert.Equal(t, 38, Blend(7, 11, nil, nil))
}
