// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package starfield

import (
	"sort"

	"github.com/noga-stacklab/stackcore/internal/fitsio"
	"github.com/noga-stacklab/stackcore/internal/icp"
)

// minBlobPixels and maxBlobPixels bound the accepted blob size: smaller
// is noise, larger is a saturated cluster or satellite streak.
const (
	minBlobPixels = 25
	maxBlobPixels = 2048
)

// Detect scans a flattened non-negative image in row-major order and
// extracts one star per contiguous positive-valued blob, via 4-connected
// flood fill and intensity-weighted centroiding. The input image is
// consumed: visited pixels are zeroed in place. Returns stars sorted
// ascending by brightness.
func Detect(flat *fitsio.Image) List {
	rows, cols := flat.Rows, flat.Cols
	stars := make(List, 0)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if flat.At(r, c) > 0 {
				if s, ok := fitAndRemove(flat, r, c); ok {
					stars = append(stars, s)
				}
			}
		}
	}

	sort.Stable(stars)
	return stars
}

// point is a flood-fill work-stack entry.
type point struct{ r, c int }

// fitAndRemove performs a 4-connected flood fill from (r0, c0) over the
// set of positive pixels, using an explicit work stack rather than
// recursion (realistic blobs can touch thousands of pixels, which would
// overflow the call stack under naive recursion). Each visited pixel is
// zeroed in place. The fill stops early once more than maxBlobPixels
// pixels have been visited.
func fitAndRemove(img *fitsio.Image, r0, c0 int) (Star, bool) {
	rows, cols := img.Rows, img.Cols
	stack := []point{{r0, c0}}

	var sumV, sumRV, sumCV float64
	n := 0

	for len(stack) > 0 && n <= maxBlobPixels {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.r < 0 || p.r >= rows || p.c < 0 || p.c >= cols {
			continue
		}
		v := img.At(p.r, p.c)
		if v <= 0 {
			continue
		}

		img.Set(p.r, p.c, 0)
		n++
		sumV += v
		sumRV += float64(p.r) * v
		sumCV += float64(p.c) * v

		// 4-connected neighbours, enumerated in a fixed order.
		stack = append(stack,
			point{p.r - 1, p.c},
			point{p.r + 1, p.c},
			point{p.r, p.c - 1},
			point{p.r, p.c + 1},
		)
	}

	if n < minBlobPixels || n > maxBlobPixels {
		return Star{}, false
	}
	return Star{
		Pos:        icp.Point{Row: sumRV / sumV, Col: sumCV / sumV},
		Brightness: sumV,
		Size:       n,
	}, true
}
