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

// Package starfield detects point sources in a flattened image by
// thresholding, 4-connected flood fill, and intensity-weighted centroid
// extraction.
package starfield

import (
	"sort"

	"github.com/noga-stacklab/stackcore/internal/icp"
)

// Star is a detected point source: its intensity-weighted centroid, total
// brightness (sum of flattened pixel values in its blob), and blob size in
// pixels (used only to size diagnostic star-overlay dumps).
type Star struct {
	Pos        icp.Point
	Brightness float64
	Size       int
}

// List is an ordered sequence of detected stars, sorted ascending by
// brightness (dimmest first).
type List []Star

func (l List) Len() int           { return len(l) }
func (l List) Less(i, j int) bool { return l[i].Brightness < l[j].Brightness }
func (l List) Swap(i, j int)      { l[i], l[j] = l[j], l[i] }

var _ sort.Interface = List(nil)

// Positions extracts the centroid of every star, in list order, for
// feeding directly into icp.Solve.
func (l List) Positions() []icp.Point {
	out := make([]icp.Point, len(l))
	for i, s := range l {
		out[i] = s.Pos
	}
	return out
}
