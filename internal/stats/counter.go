package stats

import "sort"

// DigitCounter holds a weighted count per digit 0-9.
type DigitCounter [10]float64

// Total sums all counts.
func (c DigitCounter) Total() float64 {
	var t float64
	for _, v := range c {
		t += v
	}
	return t
}

// Top returns up to n observed digits ordered by count descending, then by
// digit ascending. Digits with a zero count are never returned.
func (c DigitCounter) Top(n int) []int {
	digits := make([]int, 0, 10)
	for d, v := range c {
		if v > 0 {
			digits = append(digits, d)
		}
	}
	sort.SliceStable(digits, func(i, j int) bool {
		return c[digits[i]] > c[digits[j]]
	})
	if n >= 0 && len(digits) > n {
		digits = digits[:n]
	}
	return digits
}

// Probability returns count(d)/Total, or 0 when nothing was counted.
func (c DigitCounter) Probability(d int) float64 {
	t := c.Total()
	if t == 0 || d < 0 || d > 9 {
		return 0
	}
	return c[d] / t
}
