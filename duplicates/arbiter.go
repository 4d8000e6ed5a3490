package duplicates

import "imagededup/types"

// SelectKeeper keeps the member with the most pixels. Ties, including a
// group where every resolution is unknown, go to the earliest member.
func SelectKeeper(group types.DuplicateGroup) types.KeepDecision {
	decision := types.KeepDecision{Group: group}
	if len(group.Members) == 0 {
		return decision
	}

	best := 0
	for i, m := range group.Members[1:] {
		if m.Resolution() > group.Members[best].Resolution() {
			best = i + 1
		}
	}

	decision.Keeper = group.Members[best]
	decision.Losers = make([]types.ImageRecord, 0, len(group.Members)-1)
	for i, m := range group.Members {
		if i != best {
			decision.Losers = append(decision.Losers, m)
		}
	}
	return decision
}
