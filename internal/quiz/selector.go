package quiz

import (
	"cmp"
	"math/rand/v2"
	"slices"
)

// SelectQuestion picks the next question to show from a user's pool:
// fewest times shown first, then worst historical accuracy, with any
// remaining ties broken uniformly at random. The random tie-break is done
// here, over the fetched pool, rather than with ORDER BY RANDOM() — the
// ranking contract stays testable and storage-agnostic.
//
// Returns false when the pool is empty. That is a normal outcome ("nothing
// to send this round"), not an error.
func SelectQuestion(pool []Question) (Question, bool) {
	if len(pool) == 0 {
		return Question{}, false
	}

	ranked := make([]Question, len(pool))
	copy(ranked, pool)

	// Shuffle first so the stable sort leaves equal-ranked questions in
	// uniformly random order.
	rand.Shuffle(len(ranked), func(i, j int) {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	})

	slices.SortStableFunc(ranked, func(a, b Question) int {
		if c := cmp.Compare(a.TimesShown, b.TimesShown); c != 0 {
			return c
		}
		return cmp.Compare(a.Accuracy(), b.Accuracy())
	})

	return ranked[0], true
}
