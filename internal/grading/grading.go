// Package grading canonicalizes submitted answers and computes scores. The
// objective score is machine-graded at submission time; speaking and writing
// scores arrive later from examiners and the blended total is recomputed
// whenever they change.
package grading

import (
	"math"
	"strconv"
	"strings"

	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/random"
)

// Blend weights. Objective carries the bulk; the two human-graded components
// split the remainder.
const (
	ObjectiveWeight = 0.6
	WritingWeight   = 0.2
	SpeakingWeight  = 0.2
)

// Canonicalize translates raw client answers into the stored canonical form:
// multiple-choice shuffled indices become authored option letters, true/false
// values collapse to "true"/"false", and text answers are trimmed. Info items
// and unknown item ids are dropped, so the stored map only ever references
// the authored test.
func Canonicalize(payload *model.TestPayload, plan *random.Plan, raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))

	for id, value := range raw {
		item, _ := payload.FindItem(id)
		if item == nil || item.Type == model.ItemInfo {
			continue
		}

		switch item.Type {
		case model.ItemMultipleChoice:
			letter, ok := canonicalChoice(plan, item, value)
			if !ok {
				continue
			}
			out[id] = letter

		case model.ItemTrueFalse:
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "true", "1", "t":
				out[id] = "true"
			case "false", "0", "f":
				out[id] = "false"
			}

		default:
			out[id] = strings.TrimSpace(value)
		}
	}
	return out
}

// canonicalChoice maps a shuffled option index to the authored option letter.
func canonicalChoice(plan *random.Plan, item *model.Item, value string) (string, bool) {
	shuffled, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	orig := plan.OriginalOptionIndex(item.ID, shuffled)
	if orig < 0 || orig >= len(item.Options) {
		return "", false
	}
	return string(rune('A' + orig)), true
}

// WritingText pulls the free-text writing response out of the canonical
// answers for separate storage and examiner review.
func WritingText(payload *model.TestPayload, canonical map[string]string) string {
	for _, sec := range payload.Sections {
		if sec.Kind != model.SectionWriting {
			continue
		}
		for _, it := range sec.Items {
			if it.Type == model.ItemFreeText {
				if text, ok := canonical[it.ID]; ok {
					return text
				}
			}
		}
	}
	return ""
}

// ObjectiveScore grades the machine-scorable portion of a submission:
// every scorable item in the listening and reading sections, plus gap-fill
// items in the writing section. Free-text answers are never machine-graded.
func ObjectiveScore(payload *model.TestPayload, canonical map[string]string) (earned, max int) {
	for _, sec := range payload.Sections {
		for _, it := range sec.Items {
			if !objectiveItem(sec.Kind, it.Type) {
				continue
			}
			max += it.Points
			if answer, ok := canonical[it.ID]; ok && correct(it, answer) {
				earned += it.Points
			}
		}
	}
	return earned, max
}

// objectiveItem reports whether an item counts toward the objective score.
func objectiveItem(kind model.SectionKind, t model.ItemType) bool {
	if !t.Scorable() {
		return false
	}
	if kind == model.SectionWriting {
		return t == model.ItemGapFill
	}
	return true
}

// correct compares a canonical answer against the authored key. Choice and
// boolean answers compare exactly; typed answers compare case-insensitively
// after trimming.
func correct(it model.Item, answer string) bool {
	switch it.Type {
	case model.ItemMultipleChoice, model.ItemTrueFalse:
		return answer == it.Correct
	default:
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(it.Correct))
	}
}

// Blend computes the final grade from the objective percentage and the two
// human scores. A human score not yet entered counts as zero, so the total
// is always defined and rises as examiner scores land.
func Blend(objectiveEarned, objectiveMax int, speaking, writing *int) int {
	var objPct float64
	if objectiveMax > 0 {
		objPct = float64(objectiveEarned) / float64(objectiveMax) * 100
	}

	var sp, wr float64
	if speaking != nil {
		sp = float64(*speaking)
	}
	if writing != nil {
		wr = float64(*writing)
	}

	return int(math.Round(objPct*ObjectiveWeight + wr*WritingWeight + sp*SpeakingWeight))
}
