package box

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Size is the edge length of a box.
const Size = 4

// Cells is the number of cells in a box.
const Cells = Size * Size

// ErrInvalidBox is returned when text does not hold exactly 16 digits.
var ErrInvalidBox = errors.New("invalid box")

// Box is a 4x4 digit grid indexed [row][column]. Each column is one output
// position of a four-digit number.
type Box [Size][Size]int

// Cell addresses one box cell.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// FromFlat builds a box from row-major digits.
func FromFlat(flat [Cells]int) Box {
	var b Box
	for i, d := range flat {
		b[i/Size][i%Size] = d
	}
	return b
}

// Flat returns the digits in row-major order.
func (b Box) Flat() [Cells]int {
	var out [Cells]int
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out[r*Size+c] = b[r][c]
		}
	}
	return out
}

// String renders one row per line with two spaces between digits.
func (b Box) String() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c := 0; c < Size; c++ {
			if c > 0 {
				sb.WriteString("  ")
			}
			fmt.Fprintf(&sb, "%d", b[r][c])
		}
	}
	return sb.String()
}

// Parse collects the digits of s in order; any separators are ignored. It
// fails unless exactly 16 digits are found.
func Parse(s string) (Box, error) {
	var flat [Cells]int
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		if n == Cells {
			return Box{}, fmt.Errorf("%w: more than %d digits", ErrInvalidBox, Cells)
		}
		flat[n] = int(r - '0')
		n++
	}
	if n != Cells {
		return Box{}, fmt.Errorf("%w: found %d digits, need %d", ErrInvalidBox, n, Cells)
	}
	return FromFlat(flat), nil
}

// Missing returns the digits 0-9 that appear nowhere in the box, ascending.
func (b Box) Missing() []int {
	var seen [10]bool
	for _, row := range b {
		for _, d := range row {
			if d >= 0 && d <= 9 {
				seen[d] = true
			}
		}
	}
	var out []int
	for d, ok := range seen {
		if !ok {
			out = append(out, d)
		}
	}
	return out
}

// ColumnSpread returns, per digit present, how many distinct columns hold it.
func (b Box) ColumnSpread() map[int]int {
	spread := make(map[int]int)
	for c := 0; c < Size; c++ {
		var inCol [10]bool
		for r := 0; r < Size; r++ {
			d := b[r][c]
			if d < 0 || d > 9 || inCol[d] {
				continue
			}
			inCol[d] = true
			spread[d]++
		}
	}
	return spread
}

// Violation is a digit spread over more columns than the cap allows.
type Violation struct {
	Digit   int `json:"digit"`
	Columns int `json:"columns"`
	Cap     int `json:"cap"`
}

func (v Violation) String() string {
	return fmt.Sprintf("digit %d in %d columns (cap %d)", v.Digit, v.Columns, v.Cap)
}

// Violations lists digits occupying more than maxColumns columns, by digit.
func (b Box) Violations(maxColumns int) []Violation {
	var out []Violation
	for d, n := range b.ColumnSpread() {
		if n > maxColumns {
			out = append(out, Violation{Digit: d, Columns: n, Cap: maxColumns})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Digit < out[j].Digit })
	return out
}

func count(flat []int, d int) int {
	n := 0
	for _, x := range flat {
		if x == d {
			n++
		}
	}
	return n
}
