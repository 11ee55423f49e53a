package regimen

import (
	"sort"
	"strconv"
	"strings"
)

// combinations lists, per regimen index, the drug sets a prescription under
// that regimen may resolve to. Order matters: the first entry is the
// fallback when the patient's weight is unknown.
var combinations = map[int][][]int{
	0:  {{1044, 968}, {1044, 22}, {969, 22}, {969, 968}},
	2:  {{732}, {732, 736}, {732, 39}, {731}, {731, 39}, {731, 736}},
	4:  {{736, 30}, {736, 11}, {39, 11}, {39, 30}},
	5:  {{735}},
	6:  {{734, 22}},
	7:  {{734, 932}},
	8:  {{39, 932}},
	9:  {{1044, 979}, {1044, 74}, {1044, 73}, {969, 73}, {969, 74}},
	10: {{734, 73}},
	11: {{736, 74}, {736, 73}, {736, 1044}, {39, 73}, {39, 74}},
	12: {{976, 977, 982}},
	13: {{983}},
	14: {{984, 982}},
	15: {{969, 982}},
	16: {{1043, 1044}, {954, 969}},
	17: {{30, 1044}, {11, 969}},
}

// Combinations returns a copy of the valid drug sets for regimenIndex.
func Combinations(regimenIndex int) [][]int {
	src := combinations[regimenIndex]
	out := make([][]int, len(src))
	for i, c := range src {
		out[i] = append([]int(nil), c...)
	}
	return out
}

// ValidCombination reports whether drugs, taken as a set, is exactly one of
// the combinations of regimenIndex.
func ValidCombination(regimenIndex int, drugs []int) bool {
	key := setKey(drugs)
	for _, c := range combinations[regimenIndex] {
		if setKey(c) == key {
			return true
		}
	}
	return false
}

// FormCombinations enumerates candidate sets out of an ingredient list and
// keeps those that are valid for regimenIndex. Each candidate is a pivot
// drug plus a contiguous run drugs[start:end] with pivot <= start. Results
// are deduplicated and keep their first-found order.
func FormCombinations(regimenIndex int, drugs []int) [][]int {
	var found [][]int
	seen := make(map[string]struct{})

	n := len(drugs)
	for pivot := 0; pivot < n; pivot++ {
		for start := pivot; start < n; start++ {
			for end := start; end <= n; end++ {
				trial := unique(append([]int{drugs[pivot]}, drugs[start:end]...))
				if !ValidCombination(regimenIndex, trial) {
					continue
				}
				key := setKey(trial)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				found = append(found, trial)
			}
		}
	}
	return found
}

// unique drops repeated ids, keeping first occurrences in place.
func unique(ids []int) []int {
	out := ids[:0]
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func setKey(ids []int) string {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	sorted = unique(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
