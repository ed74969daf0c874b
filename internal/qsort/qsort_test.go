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

package qsort

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortMatchesStdlib(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	a := make([]float64, 200)
	for i := range a {
		a[i] = r.Float64() * 1000
	}
	want := append([]float64{}, a...)
	sort.Float64s(want)

	Sort(a)
	assert.Equal(t, want, a)
}

func TestSelectMedian(t *testing.T) {
	a := []float64{5, 3, 1, 4, 2}
	assert.Equal(t, 3.0, Median(append([]float64{}, a...)))
}

func TestMedian8(t *testing.T) {
	a := [8]float64{9, 1, 8, 2, 7, 3, 6, 4}
	// sorted: 1 2 3 4 6 7 8 9, 4th order statistic (1-indexed) is 4
	assert.Equal(t, 4.0, Median8(a))
	// original array untouched
	assert.Equal(t, [8]float64{9, 1, 8, 2, 7, 3, 6, 4}, a)
}
