package match

import (
	"sort"

	"github.com/sawpanic/fourdrun/internal/box"
)

// slots partitions the row-major cells by column: one number is formed by
// taking one cell from each slot.
var slots = [box.Size][box.Size]int{
	{0, 4, 8, 12},
	{1, 5, 9, 13},
	{2, 6, 10, 14},
	{3, 7, 11, 15},
}

// RawPermutations is the size of the expansion of one grid: 4^4 slot
// combinations times 4! orderings each.
const RawPermutations = 256 * 24

var orderings = permutations(box.Size)

func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := make([]int, 0, n)
			q = append(q, p[:i]...)
			q = append(q, n-1)
			q = append(q, p[i:]...)
			out = append(out, q)
		}
	}
	return out
}

// ExpandGrid returns every ordering of every slot combination of a flattened
// grid. The result has RawPermutations entries and keeps duplicates.
func ExpandGrid(flat [box.Cells]int) []string {
	out := make([]string, 0, RawPermutations)
	group := make([]byte, box.Size)
	buf := make([]byte, box.Size)
	for _, a := range slots[0] {
		for _, b := range slots[1] {
			for _, c := range slots[2] {
				for _, d := range slots[3] {
					for i, idx := range [box.Size]int{a, b, c, d} {
						group[i] = byte('0' + flat[idx])
					}
					for _, order := range orderings {
						for i, j := range order {
							buf[i] = group[j]
						}
						out = append(out, string(buf))
					}
				}
			}
		}
	}
	return out
}

// Canonical returns the digits of n in ascending order, the key shared by
// all of its anagrams.
func Canonical(n string) string {
	b := []byte(n)
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	return string(b)
}
