package workspace

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/exp/slices"
)

// MAX_FUZZY_DISTANCE bounds how different a fuzzy match may be from the
// typed word.
const MAX_FUZZY_DISTANCE = 8

// Complete returns the records to offer for word. Prefix matches come
// first, closest names first. With fuzzy set, names that merely contain the
// letters of word in order are appended.
func (idx *Index) Complete(word string, fuzzyMatch bool) []*Record {
	lowerWord := strings.ToLower(word)
	hits := idx.Search(word)

	slices.SortStableFunc(hits, func(a, b *Record) int {
		da := levenshtein.ComputeDistance(lowerWord, strings.ToLower(a.Name))
		db := levenshtein.ComputeDistance(lowerWord, strings.ToLower(b.Name))
		return da - db
	})

	if !fuzzyMatch || len(word) == 0 {
		return hits
	}

	seen := make(map[string]bool, len(hits))
	for _, rec := range hits {
		seen[rec.Name] = true
	}

	names := make([]string, 0, len(idx.records))
	for name := range idx.records {
		if !seen[name] {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	ranks := fuzzy.RankFindNormalizedFold(word, names)
	slices.SortStableFunc(ranks, func(a, b fuzzy.Rank) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		return strings.Compare(a.Target, b.Target)
	})
	for _, rank := range ranks {
		if rank.Distance > MAX_FUZZY_DISTANCE {
			continue
		}
		hits = append(hits, idx.records[rank.Target])
	}
	return hits
}
