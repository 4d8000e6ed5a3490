// Package duplicates groups scanned images by fingerprint and decides which
// member of each group to keep.
package duplicates

import (
	"imagededup/types"
)

// bucket collects records sharing one digest, in record order
type bucket struct {
	key     string
	members []types.ImageRecord
}

// bucketize groups records by the key returned from keyOf, skipping records
// for which ok is false. Buckets come back in order of first appearance.
func bucketize(records []types.ImageRecord, keyOf func(types.ImageRecord) (string, bool)) []bucket {
	index := make(map[string]int)
	var buckets []bucket
	for _, rec := range records {
		key, ok := keyOf(rec)
		if !ok {
			continue
		}
		i, seen := index[key]
		if !seen {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, bucket{key: key})
		}
		buckets[i].members = append(buckets[i].members, rec)
	}
	return buckets
}

func exactKey(rec types.ImageRecord) (string, bool) {
	if rec.Exact == nil {
		return "", false
	}
	return "exact:" + rec.Exact.String(), true
}

func perceptualKey(rec types.ImageRecord) (string, bool) {
	if rec.Perceptual == nil {
		return "", false
	}
	return "perceptual:" + rec.Perceptual.String(), true
}

type pathSet map[string]struct{}

func newPathSet(members []types.ImageRecord) pathSet {
	set := make(pathSet, len(members))
	for _, m := range members {
		set[m.Path] = struct{}{}
	}
	return set
}

func (s pathSet) equal(other pathSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if _, ok := other[p]; !ok {
			return false
		}
	}
	return true
}

// FindGroups returns every exact-digest group followed by every
// perceptual-hash group whose path set differs from all exact groups.
// Only exact set equality suppresses a perceptual group; a subset or
// superset of an exact group is kept, so a file can appear in two groups.
func FindGroups(records []types.ImageRecord) []types.DuplicateGroup {
	var groups []types.DuplicateGroup
	var exactSets []pathSet

	for _, b := range bucketize(records, exactKey) {
		if len(b.members) < 2 {
			continue
		}
		groups = append(groups, types.DuplicateGroup{
			Key:     b.key,
			Method:  types.MethodExact,
			Members: b.members,
		})
		exactSets = append(exactSets, newPathSet(b.members))
	}

	for _, b := range bucketize(records, perceptualKey) {
		if len(b.members) < 2 {
			continue
		}
		set := newPathSet(b.members)
		suppressed := false
		for _, existing := range exactSets {
			if set.equal(existing) {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}
		groups = append(groups, types.DuplicateGroup{
			Key:     b.key,
			Method:  types.MethodPerceptual,
			Members: b.members,
		})
	}

	return groups
}
