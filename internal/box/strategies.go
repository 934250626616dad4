package box

import (
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/fourdrun/internal/stats"
)

// PositionTable counts, for each of the 16 cells, how often each digit
// appeared there across previously generated boxes.
type PositionTable [Cells]stats.DigitCounter

// TableFromBoxes builds a PositionTable from past boxes.
func TableFromBoxes(boxes []Box) PositionTable {
	var t PositionTable
	for _, b := range boxes {
		for i, d := range b.Flat() {
			if d >= 0 && d <= 9 {
				t[i][d]++
			}
		}
	}
	return t
}

// GreedyTop4 puts each position's four most weighted digits down its column,
// top to bottom. Positions with fewer than four observed digits are padded
// with the lowest digits not already in that column. Digits still missing
// from the box are then swapped in for duplicates, scanning from the last cell.
func GreedyTop4(positions [stats.Positions]stats.DigitCounter) Box {
	var b Box
	for c := 0; c < Size; c++ {
		top := positions[c].Top(Size)
		used := [10]bool{}
		for _, d := range top {
			used[d] = true
		}
		for d := 0; len(top) < Size && d <= 9; d++ {
			if !used[d] {
				top = append(top, d)
				used[d] = true
			}
		}
		for r := 0; r < Size; r++ {
			b[r][c] = top[r]
		}
	}
	return backfillFromEnd(b)
}

func backfillFromEnd(b Box) Box {
	missing := b.Missing()
	if len(missing) == 0 {
		return b
	}
	flat := b.Flat()
	idx := Cells - 1
	for _, d := range missing {
		for idx >= 0 {
			if count(flat[:], flat[idx]) > 1 {
				flat[idx] = d
				break
			}
			idx--
		}
	}
	return FromFlat(flat)
}

// Constrained fills the box row-major. Each cell takes the highest ranked
// digit from that cell's history that is not already in the row or column
// and occupies fewer than maxColumns columns. Without a ranked candidate it
// takes the lowest admissible digit, and 0 when none is admissible; those
// forced cells are returned. A repair pass then swaps missing digits in for
// duplicates.
func Constrained(history PositionTable, maxColumns int) (Box, []Cell) {
	var (
		b       Box
		forced  []Cell
		inRow   [Size][10]bool
		inCol   [Size][10]bool
		spreads [10]int
	)
	for r := range b {
		for c := range b[r] {
			b[r][c] = -1
		}
	}

	admissible := func(r, c, d int) bool {
		return !inRow[r][d] && !inCol[c][d] && spreads[d] < maxColumns
	}

	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			digit := -1
			for _, d := range history[r*Size+c].Top(10) {
				if admissible(r, c, d) {
					digit = d
					break
				}
			}
			if digit < 0 {
				for d := 0; d <= 9; d++ {
					if admissible(r, c, d) {
						digit = d
						break
					}
				}
			}
			if digit < 0 {
				digit = 0
				forced = append(forced, Cell{Row: r, Col: c})
				log.Debug().Int("row", r).Int("col", c).Msg("No admissible digit for box cell, using 0")
			}

			b[r][c] = digit
			inRow[r][digit] = true
			if !inCol[c][digit] {
				inCol[c][digit] = true
				spreads[digit]++
			}
		}
	}

	return repairForward(b, maxColumns), forced
}

// repairForward swaps each missing digit into a cell whose digit occurs more
// than once. It prefers a cell whose digit is over the column cap and alone in
// its column, so the swap also shrinks that digit's spread; otherwise it takes
// the first duplicate scanning from the top-left.
func repairForward(b Box, maxColumns int) Box {
	for _, d := range b.Missing() {
		flat := b.Flat()
		spread := b.ColumnSpread()
		target := -1
		for i := 0; i < Cells; i++ {
			if count(flat[:], flat[i]) < 2 {
				continue
			}
			if target < 0 {
				target = i
			}
			if spread[flat[i]] > maxColumns && aloneInColumn(b, i) {
				target = i
				break
			}
		}
		if target < 0 {
			break
		}
		b[target/Size][target%Size] = d
	}
	return b
}

func aloneInColumn(b Box, cell int) bool {
	r, c := cell/Size, cell%Size
	for row := 0; row < Size; row++ {
		if row != r && b[row][c] == b[r][c] {
			return false
		}
	}
	return true
}
