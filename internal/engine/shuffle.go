package engine

import "math/rand/v2"

// ComputeShuffle returns a randomized reassignment of names across members:
// each member's candidate name (nickname if set, else display name) is
// handed to some member, every name is used exactly once, and every member
// receives exactly one name. The permutation is uniform; a member may by
// chance draw their own current name.
func ComputeShuffle(members []Member) map[string]string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.EffectiveName()
	}
	rand.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})

	assign := make(map[string]string, len(members))
	for i, m := range members {
		assign[m.ID] = names[i]
	}
	return assign
}
