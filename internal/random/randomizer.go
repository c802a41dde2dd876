// Package random derives the per-session presentation order of a test from
// the session token alone. The order is never persisted: hashing the token
// with section/item ids yields the same permutations on every call, so a
// page reload re-renders exactly what the candidate saw before.
package random

import (
	"github.com/mariosrafail/english4sp-sub000/internal/model"
)

const (
	offset32 = 2166136261
	prime32  = 16777619

	// Fallback seed for the degenerate hash value; xorshift32 would get
	// stuck at zero otherwise.
	seedFallback = 0x9E3779B9
)

// fnv32a hashes s with 32-bit FNV-1a.
func fnv32a(s string) uint32 {
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// SectionSeed derives the shuffle seed for a section's item order.
func SectionSeed(token, sectionID string) uint32 {
	return fnv32a(token + "|sec|" + sectionID)
}

// ItemSeed derives the shuffle seed for one item's option order.
func ItemSeed(token, itemID string) uint32 {
	return fnv32a(token + "|q|" + itemID)
}

// xorshift32 is a tiny deterministic PRNG seeded per shuffle.
type xorshift32 struct {
	state uint32
}

func newXorshift32(seed uint32) *xorshift32 {
	if seed == 0 {
		seed = seedFallback
	}
	return &xorshift32{state: seed}
}

func (r *xorshift32) next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// permutation returns a Fisher–Yates shuffle of [0, n) driven by seed.
func permutation(n int, seed uint32) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rng := newXorshift32(seed)
	for i := n - 1; i > 0; i-- {
		j := int(rng.next() % uint32(i+1))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// identity returns the identity permutation of length n.
func identity(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

// Plan is the complete randomization of one payload for one token.
// OptionOrder maps item id to a permutation where perm[shuffledIndex]
// equals the original option index, so client selections translate back to
// authored indices before storage and grading.
type Plan struct {
	// ItemOrder maps section id to the presentation order of its items,
	// expressed as indices into the authored item slice.
	ItemOrder map[string][]int
	// OptionOrder maps multiple-choice item id to its option permutation.
	OptionOrder map[string][]int
}

// NewPlan computes the deterministic randomization of payload for token.
// When the payload declares randomization disabled every permutation is the
// identity, so downstream code has a single path either way.
func NewPlan(token string, payload *model.TestPayload) *Plan {
	plan := &Plan{
		ItemOrder:   make(map[string][]int, len(payload.Sections)),
		OptionOrder: make(map[string][]int),
	}

	for _, sec := range payload.Sections {
		n := len(sec.Items)
		if payload.Randomize {
			plan.ItemOrder[sec.ID] = permutation(n, SectionSeed(token, sec.ID))
		} else {
			plan.ItemOrder[sec.ID] = identity(n)
		}

		for _, it := range sec.Items {
			if it.Type != model.ItemMultipleChoice {
				continue
			}
			if payload.Randomize {
				plan.OptionOrder[it.ID] = permutation(len(it.Options), ItemSeed(token, it.ID))
			} else {
				plan.OptionOrder[it.ID] = identity(len(it.Options))
			}
		}
	}
	return plan
}

// OriginalOptionIndex translates a shuffled option index back to the
// authored index. Returns -1 when the index is out of range or the item has
// no recorded permutation.
func (p *Plan) OriginalOptionIndex(itemID string, shuffledIdx int) int {
	perm, ok := p.OptionOrder[itemID]
	if !ok || shuffledIdx < 0 || shuffledIdx >= len(perm) {
		return -1
	}
	return perm[shuffledIdx]
}

// Apply reorders a client-safe payload in place according to the plan:
// section items follow ItemOrder and multiple-choice options follow
// OptionOrder. The input must already be stripped of correct answers.
func (p *Plan) Apply(payload *model.TestPayload) {
	for si := range payload.Sections {
		sec := &payload.Sections[si]
		order, ok := p.ItemOrder[sec.ID]
		if ok && len(order) == len(sec.Items) {
			shuffled := make([]model.Item, len(sec.Items))
			for pos, origIdx := range order {
				shuffled[pos] = sec.Items[origIdx]
			}
			sec.Items = shuffled
		}

		for ii := range sec.Items {
			it := &sec.Items[ii]
			perm, ok := p.OptionOrder[it.ID]
			if !ok || len(perm) != len(it.Options) {
				continue
			}
			opts := make([]string, len(it.Options))
			for pos, origIdx := range perm {
				opts[pos] = it.Options[origIdx]
			}
			it.Options = opts
		}
	}
}
